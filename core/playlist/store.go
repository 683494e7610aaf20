package playlist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Lyra/model"
)

// ErrNoPlaylist is returned by a Store that has nothing persisted yet.
var ErrNoPlaylist = errors.New("no playlist stored")

// Store persists the song list.
type Store interface {
	Load(ctx context.Context) ([]*model.Song, error)
	Save(ctx context.Context, songs []*model.Song) error
}

// FileStore keeps the playlist as NUL-delimited lines in a flat file.
type FileStore struct {
	path string

	mu        sync.Mutex
	lastMod   time.Time
	lastSize  int64
	lastValid bool
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads every line of the playlist file.
func (s *FileStore) Load(ctx context.Context) ([]*model.Song, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoPlaylist
		}
		return nil, fmt.Errorf("failed to open playlist %s: %w", s.path, err)
	}
	defer f.Close()

	var songs []*model.Song
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		song, err := model.ParseSong(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", s.path, lineNo, err)
		}
		songs = append(songs, song)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist %s: %w", s.path, err)
	}
	return songs, nil
}

// Save rewrites the playlist file through a temp file and rename.
func (s *FileStore) Save(ctx context.Context, songs []*model.Song) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create playlist directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".playlist-*")
	if err != nil {
		return fmt.Errorf("failed to create temp playlist: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, song := range songs {
		if _, err := w.WriteString(song.String() + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write playlist: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp playlist: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace playlist %s: %w", s.path, err)
	}

	if fi, err := os.Stat(s.path); err == nil {
		s.mu.Lock()
		s.lastMod, s.lastSize, s.lastValid = fi.ModTime(), fi.Size(), true
		s.mu.Unlock()
	}
	return nil
}

// ownWrite reports whether fi describes the file as this store last wrote it.
func (s *FileStore) ownWrite(fi os.FileInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastValid && fi.ModTime().Equal(s.lastMod) && fi.Size() == s.lastSize
}
