package repository

import (
	"context"
	"testing"

	"Lyra/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// dryRunDB builds statements without talking to a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "lyra:secret@tcp(127.0.0.1:1)/lyra?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestRecordsRoundTrip(t *testing.T) {
	songs := []*model.Song{
		{File: "/m/a.mp3", Rank: 1000, PlayedTimes: 2},
		{File: "/m/b.mp3", Rank: 50, PlayedTimes: 0},
	}

	records := toRecords(songs)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Position)
	assert.Equal(t, 1, records[1].Position)
	assert.Equal(t, "/m/b.mp3", records[1].File)

	assert.Equal(t, songs, fromRecords(records))
}

func TestFromRecords_ClampsRank(t *testing.T) {
	songs := fromRecords([]model.SongRecord{{File: "/m/a.mp3", Rank: 0}})
	assert.Equal(t, model.MinRank, songs[0].Rank)
}

func TestLoadQuery(t *testing.T) {
	db := dryRunDB(t)
	var records []model.SongRecord
	stmt := db.WithContext(context.Background()).Order("position").Find(&records).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "FROM `songs`")
	assert.Contains(t, sql, "ORDER BY position")
}
