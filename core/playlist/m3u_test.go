package playlist

import (
	"path/filepath"
	"strings"
	"testing"

	"Lyra/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportM3U(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "Artist/song.ogg")

	input := "#EXTM3U\n#EXTINF:123,Artist - song\n" + files[0] + "\n" + filepath.Join(dir, "missing.ogg") + "\n" + dir + "\n"
	songs, err := ImportM3U(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, files[0], songs[0].File)
	assert.Equal(t, model.DefaultRank, songs[0].Rank)
}

func TestImportM3UFile_Missing(t *testing.T) {
	_, err := ImportM3UFile(filepath.Join(t.TempDir(), "none.m3u"))
	assert.Error(t, err)
}
