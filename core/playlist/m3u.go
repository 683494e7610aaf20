package playlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"Lyra/logger"
	"Lyra/model"
)

// ImportM3U reads a player playlist: one path per line, '#' lines are comments.
// Entries whose file does not exist are skipped.
func ImportM3U(r io.Reader) ([]*model.Song, error) {
	var songs []*model.Song
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !isFile(line) {
			logger.Info("skipping missing file", logger.String("file", line))
			continue
		}
		songs = append(songs, model.NewSong(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read m3u playlist: %w", err)
	}
	return songs, nil
}

// ImportM3UFile is ImportM3U over a file path.
func ImportM3UFile(path string) ([]*model.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open m3u playlist %s: %w", path, err)
	}
	defer f.Close()
	return ImportM3U(f)
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
