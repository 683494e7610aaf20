package repository

import (
	"context"
	"fmt"

	"Lyra/core/playlist"
	"Lyra/model"

	"gorm.io/gorm"
)

// SongRepository keeps the playlist in the songs table. It implements
// playlist.Store.
type SongRepository struct {
	db *gorm.DB
}

var _ playlist.Store = (*SongRepository)(nil)

// NewSongRepository 创建歌曲仓库
func NewSongRepository(db *gorm.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Load returns the songs in playlist order.
func (r *SongRepository) Load(ctx context.Context) ([]*model.Song, error) {
	var records []model.SongRecord
	if err := r.db.WithContext(ctx).Order("position").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load songs: %w", err)
	}
	if len(records) == 0 {
		return nil, playlist.ErrNoPlaylist
	}
	return fromRecords(records), nil
}

// Save replaces the stored playlist with songs.
func (r *SongRepository) Save(ctx context.Context, songs []*model.Song) error {
	records := toRecords(songs)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.SongRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save songs: %w", err)
	}
	return nil
}

func toRecords(songs []*model.Song) []model.SongRecord {
	records := make([]model.SongRecord, 0, len(songs))
	for i, s := range songs {
		records = append(records, model.SongRecord{
			Position:    i,
			File:        s.File,
			Rank:        s.Rank,
			PlayedTimes: s.PlayedTimes,
		})
	}
	return records
}

func fromRecords(records []model.SongRecord) []*model.Song {
	songs := make([]*model.Song, 0, len(records))
	for _, rec := range records {
		rank := rec.Rank
		if rank < model.MinRank {
			rank = model.MinRank
		}
		songs = append(songs, &model.Song{
			File:        rec.File,
			Rank:        rank,
			PlayedTimes: rec.PlayedTimes,
		})
	}
	return songs
}
