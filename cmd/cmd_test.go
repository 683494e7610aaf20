package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Lyra/config"
	"Lyra/core/player"
	"Lyra/core/playlist"
	"Lyra/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSongs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	require.NoError(t, os.WriteFile(a, nil, 0o644))
	require.NoError(t, os.WriteFile(b, nil, 0o644))

	store := playlist.NewFileStore(filepath.Join(dir, "playlist"))
	pl := playlist.New(store)
	require.NoError(t, pl.Load(context.Background()))

	input := strings.Join([]string{a, "", b, a, filepath.Join(dir, "missing.mp3"), "  "}, "\n")
	added, err := addSongs(context.Background(), pl, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	songs, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, songs, 2)
}

func TestExitError(t *testing.T) {
	err := withCode(ExitNoAction, errNotRunning)

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitNoAction, ee.code)
	assert.ErrorIs(t, err, errNotRunning)
	assert.Equal(t, "server not running", err.Error())
	assert.Equal(t, "exit 2", withCode(ExitUsage, nil).Error())
}

func TestSayCommand_NotRunning(t *testing.T) {
	dir, err := os.MkdirTemp("", "lyra")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	cfg = &config.Config{SocketPath: filepath.Join(dir, "sock")}
	c := sayCommand("next", "", server.CmdNext)

	err = c.RunE(c, nil)
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitNoAction, ee.code)
}

func TestNewPlayer(t *testing.T) {
	assert.IsType(t, &player.Mocp{}, newPlayer(&config.Config{Player: config.PlayerMocp, MocpPath: "mocp"}))
	assert.IsType(t, &player.MPD{}, newPlayer(&config.Config{Player: config.PlayerMPD}))
}
