package mplayer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMPlayer writes a script that ignores its arguments and echoes stdin,
// which is enough to stand in for mplayer in pipe mode.
func fakeMPlayer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mplayer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexec cat\n"), 0755))
	return path
}

func TestDo_FIFOMissing(t *testing.T) {
	m := New(Options{Mode: ModeFIFO, FIFO: filepath.Join(t.TempDir(), "fifo")})
	_, err := m.Do("pause")
	assert.ErrorIs(t, err, ErrFIFOMissing)
	// marked playing before the command is written
	assert.True(t, m.Playing())
}

func TestDo_MarksPlayingWhenNotStarted(t *testing.T) {
	m := New(Options{Mode: ModePipe})
	require.False(t, m.Playing())
	_, err := m.Do("volume 10 1")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.True(t, m.Playing())
}

func TestDo_FIFONoReader(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "fifo")
	require.NoError(t, ensureFIFO(fifo))
	m := New(Options{Mode: ModeFIFO, FIFO: fifo})
	_, err := m.Do("pause")
	assert.ErrorIs(t, err, ErrNoReader)
}

func TestDo_FIFO(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "fifo")
	require.NoError(t, ensureFIFO(fifo))
	require.NoError(t, ensureFIFO(fifo), "existing fifo is reused")

	reader, err := os.OpenFile(fifo, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	require.NoError(t, err)
	defer reader.Close()

	m := New(Options{Mode: ModeFIFO, FIFO: fifo, Settle: 10 * time.Millisecond})
	out, err := m.Do("loadfile a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.True(t, m.Playing())

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "loadfile a.mp3\n", string(got))
}

func TestEnsureFIFO_RegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	assert.Error(t, ensureFIFO(path))
}

func TestPipeMode(t *testing.T) {
	m := New(Options{Path: fakeMPlayer(t), Mode: ModePipe, Settle: 100 * time.Millisecond})

	_, err := m.Do("pause")
	assert.ErrorIs(t, err, ErrNotStarted)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.Start(ctx))
	assert.False(t, m.Playing())

	out, err := m.LoadFile(`/music/say "hi".mp3`, false)
	require.NoError(t, err)
	assert.Equal(t, "loadfile \"/music/say \\\"hi\\\".mp3\" 0\n", out)
	assert.True(t, m.Playing())

	out, err = m.Pause()
	require.NoError(t, err)
	assert.Equal(t, "pause\n", out)
	assert.False(t, m.Playing())

	_, err = m.Pause()
	require.NoError(t, err)
	assert.True(t, m.Playing())

	out, err = m.Seek(-5, false)
	require.NoError(t, err)
	assert.Equal(t, "seek -5 0\n", out)

	out, err = m.Volume(80, true)
	require.NoError(t, err)
	assert.Equal(t, "volume 80 1\n", out)

	// cat exits once stdin is closed
	m.mu.Lock()
	m.stdin.Close()
	m.mu.Unlock()
	require.NoError(t, m.Wait(ctx))
	assert.False(t, m.Playing())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"plain"`, quote("plain"))
	assert.Equal(t, `"a\\b\"c"`, quote(`a\b"c`))
}
