package tag

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memfetch/internal/logger"
)

func TestParseFilenameDate(t *testing.T) {
	when, ok := ParseFilenameDate("2024-03-01_12-30-45_0123456789abcdef.jpg")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC), when)

	_, ok = ParseFilenameDate("unknown_date_0123456789abcdef.jpg")
	assert.False(t, ok)

	_, ok = ParseFilenameDate("IMG_1234.jpg")
	assert.False(t, ok)

	// month out of range
	_, ok = ParseFilenameDate("2024-13-01_12-30-45_x.jpg")
	assert.False(t, ok)
}

func TestFindMediaUsesSubdirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{
		"out/images/2024-03-01_12-30-45_a.jpg",
		"out/images/2024-03-02_12-30-45_b.jpeg",
		"out/videos/2024-03-03_12-30-45_c.mp4",
		"out/videos/notes.txt",
		"out/download_state.json",
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))
	}

	tagger := &Tagger{fs: fs, dir: "out", log: logger.Nop()}
	files, err := tagger.FindMedia()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"out/images/2024-03-01_12-30-45_a.jpg",
		"out/images/2024-03-02_12-30-45_b.jpeg",
		"out/videos/2024-03-03_12-30-45_c.mp4",
	}, files)
}

func TestFindMediaFallsBackToFlatDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, path := range []string{
		"flat/2024-03-01_12-30-45_a.jpg",
		"flat/2024-03-03_12-30-45_c.mov",
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))
	}

	tagger := &Tagger{fs: fs, dir: "flat", log: logger.Nop()}
	files, err := tagger.FindMedia()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestIsVideo(t *testing.T) {
	assert.True(t, isVideo("out/videos/a.mp4"))
	assert.True(t, isVideo("out/videos/a.MOV"))
	assert.False(t, isVideo("out/images/a.jpg"))
}
