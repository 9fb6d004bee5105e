package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonotonic_Admit(t *testing.T) {
	var m Monotonic

	steps := []struct {
		in   Update
		emit bool
	}{
		{Update{Stage: StageDownloading, Percent: 0}, true},
		{Update{Stage: StageDownloading, Percent: 40}, true},
		{Update{Stage: StageDownloading, Percent: 10}, false},
		{Update{Stage: StageDownloading, Percent: 40}, true},
		{Update{Stage: StageFetching, Percent: 100}, false},
		{Update{Stage: StageCutting, Percent: 0}, true},
		{Update{Stage: StageDownloading, Percent: 90}, false},
		{Update{Stage: StageComplete, Percent: 100}, true},
	}

	for i, step := range steps {
		got, ok := m.Admit(step.in)
		assert.Equal(t, step.emit, ok, "step %d", i)
		if ok {
			assert.Equal(t, step.in, got, "step %d", i)
		}
	}
	assert.Equal(t, StageComplete, m.Stage())
}

func TestMonotonic_ResetAllowsRestart(t *testing.T) {
	var m Monotonic
	_, _ = m.Admit(Update{Stage: StageCutting, Percent: 70})

	_, ok := m.Admit(Update{Stage: StageCutting, Percent: 0})
	assert.False(t, ok)

	m.Reset()
	_, ok = m.Admit(Update{Stage: StageCutting, Percent: 0, Message: "Re-encoding video (this may take longer)..."})
	assert.True(t, ok)
}

func TestMonotonic_ErrorAlwaysAdmitted(t *testing.T) {
	var m Monotonic
	_, _ = m.Admit(Update{Stage: StageCutting, Percent: 80})

	got, ok := m.Admit(Failure("Failed to cut video: ffmpeg encoding failed"))
	assert.True(t, ok)
	assert.Equal(t, StageError, got.Stage)
	assert.Zero(t, got.Percent)
}
