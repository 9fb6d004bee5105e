package job

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSampler_SamplesSelf(t *testing.T) {
	s, err := NewProcessSampler(context.Background(), os.Getpid(), 10*time.Millisecond)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		return s.Stats().Samples >= 2
	}, 5*time.Second, 10*time.Millisecond)

	stats := s.Stop()
	assert.Equal(t, int32(os.Getpid()), stats.PID)
	assert.NotZero(t, stats.RSSBytes)
	assert.GreaterOrEqual(t, stats.PeakRSSBytes, stats.RSSBytes)
	assert.False(t, stats.LastSampledAt.IsZero())

	// Stop is idempotent and sampling has ended.
	again := s.Stop()
	assert.Equal(t, stats.Samples, again.Samples)
}
