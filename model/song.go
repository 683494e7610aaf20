package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultRank is the weight given to songs imported without history.
	DefaultRank = 1000
	// MinRank keeps rank positive, it is used as a divisor.
	MinRank = 1

	rankScale = 100000
	fieldSep  = "\x00"
)

// ErrMalformedSong is returned when a playlist line cannot be decoded.
var ErrMalformedSong = errors.New("malformed song record")

// Song is one playlist entry.
type Song struct {
	File        string `json:"file"`
	Rank        int    `json:"rank"`
	PlayedTimes int    `json:"playedTimes"`
}

// NewSong returns a song with the default rank and no plays.
func NewSong(file string) *Song {
	return &Song{File: file, Rank: DefaultRank}
}

// Up raises the rank by an increment that shrinks as the rank grows.
func (s *Song) Up() {
	s.normalize()
	s.Rank += rankScale / s.Rank
	if s.Rank == 0 {
		s.Rank = 100
	}
}

// Down is the mirror of Up. The rank never drops below MinRank.
func (s *Song) Down() {
	s.normalize()
	s.Rank -= rankScale / s.Rank
	if s.Rank < MinRank {
		s.Rank = MinRank
	}
}

func (s *Song) normalize() {
	if s.Rank < MinRank {
		s.Rank = MinRank
	}
}

// Info returns "<singer> - <title>" where the singer is the parent directory.
func (s *Song) Info() string {
	dir, name := filepath.Split(s.File)
	singer := filepath.Base(filepath.Clean(dir))
	title := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%s - %s", singer, title)
}

// String encodes the song as a playlist line (without the newline).
func (s *Song) String() string {
	return s.File + fieldSep + strconv.Itoa(s.Rank) + fieldSep + strconv.Itoa(s.PlayedTimes)
}

// ParseSong decodes one playlist line. A non-positive rank is clamped to MinRank.
func ParseSong(line string) (*Song, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, fieldSep)
	if len(fields) != 3 || fields[0] == "" {
		return nil, fmt.Errorf("%w: want 3 fields, got %d", ErrMalformedSong, len(fields))
	}
	rank, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: rank %q: %v", ErrMalformedSong, fields[1], err)
	}
	played, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: played times %q: %v", ErrMalformedSong, fields[2], err)
	}
	s := &Song{File: fields[0], Rank: rank, PlayedTimes: played}
	s.normalize()
	return s, nil
}

// SongRecord 是歌曲在数据库中的存储形式
type SongRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Position    int    `gorm:"index;not null"`
	File        string `gorm:"size:768;uniqueIndex;not null"`
	Rank        int    `gorm:"not null;default:1000"`
	PlayedTimes int    `gorm:"not null;default:0"`
}

// TableName 指定表名
func (SongRecord) TableName() string {
	return "songs"
}
