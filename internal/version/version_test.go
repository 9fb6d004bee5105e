package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuildVars(t *testing.T, version, commit, date, dirty string) {
	t.Helper()
	v, c, d, x := Version, Commit, Date, Dirty
	t.Cleanup(func() { Version, Commit, Date, Dirty = v, c, d, x })
	Version, Commit, Date, Dirty = version, commit, date, dirty
}

func TestString(t *testing.T) {
	t.Run("without commit", func(t *testing.T) {
		withBuildVars(t, "1.4.0", "unknown", "unknown", "false")
		assert.Equal(t, "dlcut version 1.4.0 ("+runtime.Version()+", "+runtime.GOOS+"/"+runtime.GOARCH+")", String())
	})

	t.Run("with commit", func(t *testing.T) {
		withBuildVars(t, "1.4.0", "0123456789abcdef", "2025-06-01T10:00:00Z", "false")
		s := String()
		assert.Contains(t, s, "commit: 01234567,")
		assert.Contains(t, s, "built: 2025-06-01T10:00:00Z")
	})
}

func TestShort(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		dirty  string
		want   string
	}{
		{"plain", "unknown", "false", "2.0.0"},
		{"short commit ignored", "abc", "false", "2.0.0"},
		{"clean", "0123456789abcdef", "false", "2.0.0 (01234567)"},
		{"dirty", "0123456789abcdef", "true", "2.0.0 (01234567*)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildVars(t, "2.0.0", tt.commit, "unknown", tt.dirty)
			assert.Equal(t, tt.want, Short())
		})
	}
}

func TestJSON(t *testing.T) {
	withBuildVars(t, "1.0.0", "0123456789abcdef", "2025-06-01T10:00:00Z", "true")

	var info Info
	require.NoError(t, json.Unmarshal([]byte(JSON()), &info))
	assert.Equal(t, "1.0.0", info.Version)
	assert.True(t, info.Dirty)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestUserAgent(t *testing.T) {
	withBuildVars(t, "1.0.0", "unknown", "unknown", "false")
	assert.Equal(t, "dlcut/1.0.0", UserAgent())
}

func TestFromBuildInfo(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		withBuildVars(t, "dev", "unknown", "unknown", "false")
		fromBuildInfo(&debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "feedfacecafe"},
				{Key: "vcs.time", Value: "2025-05-05T05:05:05Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		})
		assert.Equal(t, "0.3.1", Version)
		assert.Equal(t, "feedfacecafe", Commit)
		assert.Equal(t, "2025-05-05T05:05:05Z", Date)
		assert.Equal(t, "true", Dirty)
	})

	t.Run("ldflags win", func(t *testing.T) {
		withBuildVars(t, "1.2.3", "0123456789abcdef", "2025-01-01T00:00:00Z", "false")
		fromBuildInfo(&debug.BuildInfo{
			Main:     debug.Module{Version: "v0.3.1"},
			Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "feedfacecafe"}},
		})
		assert.Equal(t, "1.2.3", Version)
		assert.Equal(t, "0123456789abcdef", Commit)
	})

	t.Run("devel version ignored", func(t *testing.T) {
		withBuildVars(t, "dev", "unknown", "unknown", "false")
		fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
		assert.Equal(t, "dev", Version)
	})
}
