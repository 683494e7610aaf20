// Package history records the songs the daemon plays.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Lyra/model"

	"github.com/go-redis/redis/v8"
)

const (
	recentKey = "lyra:history"
	countKey  = "lyra:played"
)

// Entry is one play.
type Entry struct {
	File     string    `json:"file"`
	Info     string    `json:"info"`
	Rank     int       `json:"rank"`
	PlayedAt time.Time `json:"playedAt"`
}

// Count is a file with the number of times it was played.
type Count struct {
	File  string
	Plays int64
}

// Recorder stores play history.
type Recorder interface {
	Record(ctx context.Context, song model.Song) error
	Recent(ctx context.Context, n int) ([]Entry, error)
	Top(ctx context.Context, n int) ([]Count, error)
}

// Redis keeps the last size plays in a list and a play counter per file in
// a sorted set.
type Redis struct {
	client *redis.Client
	size   int
	now    func() time.Time
}

// NewRedis creates a recorder. size <= 0 keeps the list unbounded.
func NewRedis(client *redis.Client, size int) *Redis {
	return &Redis{client: client, size: size, now: time.Now}
}

// Record pushes song onto the history.
func (r *Redis) Record(ctx context.Context, song model.Song) error {
	data, err := json.Marshal(Entry{
		File:     song.File,
		Info:     song.Info(),
		Rank:     song.Rank,
		PlayedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, recentKey, data)
	if r.size > 0 {
		pipe.LTrim(ctx, recentKey, 0, int64(r.size-1))
	}
	pipe.ZIncrBy(ctx, countKey, 1, song.File)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (r *Redis) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, recentKey, 0, int64(n-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, s := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			// 跳过损坏的记录
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Top returns the n most played files.
func (r *Redis) Top(ctx context.Context, n int) ([]Count, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, countKey, 0, int64(n-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read play counts: %w", err)
	}
	counts := make([]Count, 0, len(zs))
	for _, z := range zs {
		file, _ := z.Member.(string)
		counts = append(counts, Count{File: file, Plays: int64(z.Score)})
	}
	return counts, nil
}

// Nop drops everything. Used when no Redis server is configured.
type Nop struct{}

func (Nop) Record(context.Context, model.Song) error     { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return nil, nil }
func (Nop) Top(context.Context, int) ([]Count, error)    { return nil, nil }
