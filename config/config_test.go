package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".moc/xmocp"), ExpandHome("~/.moc/xmocp"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PLAYER", "mpd")
	t.Setenv("SOCKET_PATH", "/tmp/lyra.sock")
	t.Setenv("USE_NOTIFY", "false")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HISTORY_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, PlayerMPD, cfg.Player)
	assert.Equal(t, "/tmp/lyra.sock", cfg.SocketPath)
	assert.False(t, cfg.UseNotify)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 500, cfg.HistorySize)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Player:          PlayerMocp,
			PlaylistBackend: BackendFile,
			PlaylistFile:    "/tmp/playlist",
			SocketPath:      "/tmp/sock",
			MPDNetwork:      "tcp",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "unknown player", mutate: func(c *Config) { c.Player = "vlc" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.PlaylistBackend = "sqlite" }, wantErr: true},
		{name: "empty socket", mutate: func(c *Config) { c.SocketPath = "" }, wantErr: true},
		{name: "empty playlist file", mutate: func(c *Config) { c.PlaylistFile = "" }, wantErr: true},
		{name: "mysql without file", mutate: func(c *Config) {
			c.PlaylistBackend = BackendMySQL
			c.PlaylistFile = ""
		}},
		{name: "bad mpd network", mutate: func(c *Config) {
			c.Player = PlayerMPD
			c.MPDNetwork = "udp"
		}, wantErr: true},
		{name: "negative history", mutate: func(c *Config) { c.HistorySize = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
