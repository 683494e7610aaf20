package storage

import (
	"testing"

	"Lyra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "playlists/playlist.xmocp", ObjectName("/home/u/.moc/playlist.xmocp"))
	assert.Equal(t, "playlists/list", ObjectName("list"))
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.size))
	}
}

func TestNewBackup(t *testing.T) {
	_, err := NewBackup(&config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MINIO_ENDPOINT")

	b, err := NewBackup(&config.Config{
		MinioEndpoint:  "localhost:9000",
		MinioAccessKey: "key",
		MinioSecretKey: "secret",
		MinioBucket:    "lyra",
		MinioRegion:    "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "lyra", b.bucket)
}
