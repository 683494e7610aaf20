package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Lyra/logger"
	"Lyra/model"
)

var (
	// ErrEmptyPlaylist is returned by Choose when there is nothing to pick from.
	ErrEmptyPlaylist = errors.New("playlist is empty")
	// ErrNoCurrent is returned when ranking without a current song.
	ErrNoCurrent = errors.New("no song is playing")
	// ErrDuplicate is returned by Add for a file already in the playlist.
	ErrDuplicate = errors.New("song already in playlist")
	// ErrNotFile is returned by Add for paths that are not regular files.
	ErrNotFile = errors.New("not a regular file")
)

// Playlist is a weighted song list. Points always equals the sum of all ranks.
type Playlist struct {
	mu         sync.Mutex
	store      Store
	importPath string
	rng        *rand.Rand

	songs   []*model.Song
	points  int
	current *model.Song
}

// Option configures a Playlist.
type Option func(*Playlist)

// WithRand sets the random source used by Choose.
func WithRand(r *rand.Rand) Option {
	return func(p *Playlist) { p.rng = r }
}

// WithImport sets the m3u playlist imported when the store is empty.
func WithImport(path string) Option {
	return func(p *Playlist) { p.importPath = path }
}

// New creates an empty playlist over store. Call Load before use.
func New(store Store, opts ...Option) *Playlist {
	p := &Playlist{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load replaces the in-memory songs with the stored ones. When nothing is
// stored yet the import playlist is used and saved.
func (p *Playlist) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

func (p *Playlist) loadLocked(ctx context.Context) error {
	songs, err := p.store.Load(ctx)
	if errors.Is(err, ErrNoPlaylist) && p.importPath != "" {
		logger.Info("importing player playlist", logger.String("path", p.importPath))
		songs, err = ImportM3UFile(p.importPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// 没有可导入的列表，从空列表开始，等 add
			logger.Warn("import playlist not found, starting empty", logger.String("path", p.importPath))
			songs = nil
		case err != nil:
			return err
		default:
			if err := p.store.Save(ctx, songs); err != nil {
				return err
			}
		}
	} else if errors.Is(err, ErrNoPlaylist) {
		songs = nil
	} else if err != nil {
		return err
	}

	p.songs = songs
	p.recount()

	// keep the current song across reloads
	if p.current != nil {
		cur := p.current
		p.current = nil
		for _, s := range p.songs {
			if s.File == cur.File {
				p.current = s
				break
			}
		}
	}
	return nil
}

// Refresh reloads the playlist from its store.
func (p *Playlist) Refresh(ctx context.Context) error {
	return p.Load(ctx)
}

// Save writes the songs to the store.
func (p *Playlist) Save(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Save(ctx, p.songs)
}

func (p *Playlist) recount() {
	total := 0
	for _, s := range p.songs {
		total += s.Rank
	}
	p.points = total
}

// Choose picks a song with probability rank/Points. Songs whose file has
// disappeared are dropped and the draw is repeated.
func (p *Playlist) Choose(ctx context.Context) (*model.Song, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if len(p.songs) == 0 || p.points <= 0 {
			return nil, ErrEmptyPlaylist
		}
		r := p.rng.Intn(p.points)
		idx := p.pick(r)
		if idx < 0 {
			return nil, fmt.Errorf("no song found for draw %d of %d points", r, p.points)
		}

		song := p.songs[idx]
		if !isFile(song.File) {
			logger.Info("dropping missing file", logger.String("file", song.File))
			p.songs = append(p.songs[:idx], p.songs[idx+1:]...)
			p.recount()
			continue
		}

		p.current = song
		song.PlayedTimes++
		if err := p.store.Save(ctx, p.songs); err != nil {
			logger.Warn("failed to save playlist after choose", logger.ErrorField(err))
		}
		return song, nil
	}
}

// pick returns the index of the song whose cumulative range contains r.
func (p *Playlist) pick(r int) int {
	sum := 0
	for i, s := range p.songs {
		sum += s.Rank
		if r < sum {
			return i
		}
	}
	return -1
}

// Rank moves the current song up or down and saves the playlist.
func (p *Playlist) Rank(ctx context.Context, up bool) (*model.Song, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil, ErrNoCurrent
	}
	if up {
		p.current.Up()
	} else {
		p.current.Down()
	}
	p.recount()
	if err := p.store.Save(ctx, p.songs); err != nil {
		return nil, err
	}
	cp := *p.current
	return &cp, nil
}

// Add appends file with the average rank of the playlist and saves.
func (p *Playlist) Add(ctx context.Context, file string) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	if !isFile(abs) {
		return fmt.Errorf("%s: %w", abs, ErrNotFile)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.containsLocked(abs) {
		return fmt.Errorf("%s: %w", abs, ErrDuplicate)
	}

	rank := model.DefaultRank
	if len(p.songs) > 0 {
		rank = p.points / len(p.songs)
	}
	if rank < model.MinRank {
		rank = model.MinRank
	}
	p.songs = append(p.songs, &model.Song{File: abs, Rank: rank})
	p.recount()
	return p.store.Save(ctx, p.songs)
}

// Contains reports whether file (an absolute path) is in the playlist.
func (p *Playlist) Contains(file string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.containsLocked(file)
}

func (p *Playlist) containsLocked(file string) bool {
	for _, s := range p.songs {
		if s.File == file {
			return true
		}
	}
	return false
}

// Current returns a copy of the song last returned by Choose, or nil.
func (p *Playlist) Current() *model.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}

// Songs returns a copy of all songs in order.
func (p *Playlist) Songs() []model.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Song, len(p.songs))
	for i, s := range p.songs {
		out[i] = *s
	}
	return out
}

// Points returns the sum of all ranks.
func (p *Playlist) Points() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.points
}

// Len returns the number of songs.
func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.songs)
}
