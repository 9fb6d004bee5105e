package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFilename(t *testing.T) {
	tests := []struct {
		title string
		ext   string
		want  string
	}{
		{"Test Video", "mp4", "Test Video.mp4"},
		{"Test/Video:Name", "mp4", "Test_Video_Name.mp4"},
		{`a\b*c?d"e<f>g|h`, "mp3", "a_b_c_d_e_f_g_h.mp3"},
		{"  padded  ", ".webm", "padded.webm"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateFilename(tt.title, tt.ext))
		})
	}
}

func TestGenerateFilename_Truncates(t *testing.T) {
	got := GenerateFilename(strings.Repeat("a", 300), "mp4")
	assert.Equal(t, strings.Repeat("a", 200)+".mp4", got)

	// Multi-byte runes straddling the limit are dropped whole.
	got = GenerateFilename(strings.Repeat("a", 199)+"éé", "mp4")
	name := strings.TrimSuffix(got, ".mp4")
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, strings.Repeat("a", 199), name)
}

func TestDefaultDownloadDir(t *testing.T) {
	t.Run("configured wins", func(t *testing.T) {
		assert.Equal(t, "/srv/media", DefaultDownloadDir("/srv/media"))
	})

	t.Run("downloads under home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.Mkdir(filepath.Join(home, "Downloads"), 0o755))
		assert.Equal(t, filepath.Join(home, "Downloads"), DefaultDownloadDir(""))
	})

	t.Run("home without downloads", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		assert.Equal(t, home, DefaultDownloadDir(""))
	})
}
