package playlist

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Lyra/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store.
type memStore struct {
	songs []*model.Song
	saves int
	empty bool
}

func (m *memStore) Load(ctx context.Context) ([]*model.Song, error) {
	if m.empty {
		return nil, ErrNoPlaylist
	}
	out := make([]*model.Song, len(m.songs))
	for i, s := range m.songs {
		cp := *s
		out[i] = &cp
	}
	return out, nil
}

func (m *memStore) Save(ctx context.Context, songs []*model.Song) error {
	m.saves++
	m.empty = false
	m.songs = make([]*model.Song, len(songs))
	for i, s := range songs {
		cp := *s
		m.songs[i] = &cp
	}
	return nil
}

// touch creates empty files under dir and returns their paths.
func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
		paths = append(paths, p)
	}
	return paths
}

func newTestPlaylist(t *testing.T, store Store, opts ...Option) *Playlist {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	p := New(store, opts...)
	require.NoError(t, p.Load(context.Background()))
	return p
}

func TestPlaylist_LoadComputesPoints(t *testing.T) {
	store := &memStore{songs: []*model.Song{
		{File: "/a", Rank: 10},
		{File: "/b", Rank: 20},
		{File: "/c", Rank: 30},
	}}
	p := newTestPlaylist(t, store)
	assert.Equal(t, 60, p.Points())
	assert.Equal(t, 3, p.Len())
	assert.Nil(t, p.Current())
}

func TestPlaylist_ChooseEmpty(t *testing.T) {
	p := newTestPlaylist(t, &memStore{empty: true})
	_, err := p.Choose(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestPlaylist_ChooseIsWeighted(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "heavy/a.mp3", "light/b.mp3")
	store := &memStore{songs: []*model.Song{
		{File: files[0], Rank: 900},
		{File: files[1], Rank: 100},
	}}
	p := newTestPlaylist(t, store)

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		s, err := p.Choose(context.Background())
		require.NoError(t, err)
		counts[s.File]++
	}
	assert.Greater(t, counts[files[0]], counts[files[1]]*4)
	assert.Greater(t, counts[files[1]], 0)

	songs := p.Songs()
	assert.Equal(t, 2000, songs[0].PlayedTimes+songs[1].PlayedTimes)
}

func TestPlaylist_ChooseDropsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "x/present.mp3")
	store := &memStore{songs: []*model.Song{
		{File: filepath.Join(dir, "gone-1.mp3"), Rank: 1000},
		{File: files[0], Rank: 1},
		{File: filepath.Join(dir, "gone-2.mp3"), Rank: 1000},
	}}
	p := newTestPlaylist(t, store)

	s, err := p.Choose(context.Background())
	require.NoError(t, err)
	assert.Equal(t, files[0], s.File)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1, p.Points())
	assert.Equal(t, 1, p.Current().PlayedTimes)
	require.Len(t, store.songs, 1)
}

func TestPlaylist_ChooseAllMissing(t *testing.T) {
	store := &memStore{songs: []*model.Song{{File: "/nonexistent/a.mp3", Rank: 5}}}
	p := newTestPlaylist(t, store)
	_, err := p.Choose(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestPlaylist_Rank(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "s/a.mp3")
	store := &memStore{songs: []*model.Song{{File: files[0], Rank: 1000}, {File: "/other", Rank: 500}}}
	p := newTestPlaylist(t, store)
	ctx := context.Background()

	_, err := p.Rank(ctx, true)
	assert.ErrorIs(t, err, ErrNoCurrent)

	// the missing "/other" is dropped by Choose
	_, err = p.Choose(ctx)
	require.NoError(t, err)

	s, err := p.Rank(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1100, s.Rank)
	assert.Equal(t, 1100, p.Points())

	s, err = p.Rank(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1010, s.Rank)
	assert.Equal(t, 1010, p.Points())
	assert.Equal(t, 1010, store.songs[0].Rank)
}

func TestPlaylist_Add(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "a/one.mp3", "b/two.mp3")
	store := &memStore{songs: []*model.Song{{File: files[0], Rank: 300}, {File: "/x", Rank: 100}}}
	p := newTestPlaylist(t, store)
	ctx := context.Background()

	require.NoError(t, p.Add(ctx, files[1]))
	assert.True(t, p.Contains(files[1]))
	songs := p.Songs()
	assert.Equal(t, 200, songs[2].Rank)
	assert.Equal(t, 600, p.Points())

	assert.ErrorIs(t, p.Add(ctx, files[1]), ErrDuplicate)
	assert.ErrorIs(t, p.Add(ctx, filepath.Join(dir, "nope.mp3")), ErrNotFile)
	assert.ErrorIs(t, p.Add(ctx, dir), ErrNotFile)
}

func TestPlaylist_AddToEmpty(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "a/one.mp3")
	p := newTestPlaylist(t, &memStore{empty: true})
	require.NoError(t, p.Add(context.Background(), files[0]))
	assert.Equal(t, model.DefaultRank, p.Points())
}

func TestPlaylist_ImportWhenStoreEmpty(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "a/one.mp3", "b/two.mp3")
	m3u := filepath.Join(dir, "playlist.m3u")
	content := strings.Join([]string{
		"#EXTM3U",
		files[0],
		"",
		"  " + files[1] + "  ",
		filepath.Join(dir, "missing.mp3"),
	}, "\n")
	require.NoError(t, os.WriteFile(m3u, []byte(content), 0644))

	store := &memStore{empty: true}
	p := newTestPlaylist(t, store, WithImport(m3u))
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 2*model.DefaultRank, p.Points())
	assert.Equal(t, 1, store.saves)
}

func TestPlaylist_ImportFileMissing(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "a/one.mp3")
	store := &memStore{empty: true}
	p := newTestPlaylist(t, store, WithImport(filepath.Join(dir, "no-such.m3u")))
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 0, store.saves)

	// the empty playlist can still be seeded
	require.NoError(t, p.Add(context.Background(), files[0]))
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1, store.saves)
}

func TestPlaylist_ImportFileMissingWithFileStore(t *testing.T) {
	dir := t.TempDir()
	p := New(NewFileStore(filepath.Join(dir, "playlist")), WithImport(filepath.Join(dir, "no-such.m3u")))
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, 0, p.Len())
}

func TestPlaylist_RefreshKeepsCurrent(t *testing.T) {
	dir := t.TempDir()
	files := touch(t, dir, "a/one.mp3")
	store := &memStore{songs: []*model.Song{{File: files[0], Rank: 1000}}}
	p := newTestPlaylist(t, store)
	ctx := context.Background()

	_, err := p.Choose(ctx)
	require.NoError(t, err)

	store.songs[0].Rank = 42
	require.NoError(t, p.Refresh(ctx))
	assert.Equal(t, 42, p.Points())

	s, err := p.Rank(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 42+100000/42, s.Rank)
}

func TestPlaylist_LoadError(t *testing.T) {
	p := New(&failingStore{})
	err := p.Load(context.Background())
	assert.True(t, errors.Is(err, errBoom))
}

var errBoom = errors.New("boom")

type failingStore struct{}

func (failingStore) Load(context.Context) ([]*model.Song, error) { return nil, errBoom }
func (failingStore) Save(context.Context, []*model.Song) error   { return errBoom }
