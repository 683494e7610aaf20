package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Player backends understood by the daemon.
const (
	PlayerMocp = "mocp"
	PlayerMPD  = "mpd"
)

// Playlist storage backends.
const (
	BackendFile  = "file"
	BackendMySQL = "mysql"
)

// Config stores the application configuration.
type Config struct {
	// Playlist daemon
	PlaylistFile     string // NUL-delimited playlist kept by the daemon
	PlaylistBackend  string // file or mysql
	SocketPath       string // control socket
	MocpPlaylistFile string // imported when no playlist exists yet
	MocpConfig       string // mocp config receiving the OnStop hook
	MocpPath         string
	Player           string // mocp or mpd
	UseNotify        bool
	NotifyOnStartup  bool
	HTTPAddr         string // optional HTTP control surface, empty = disabled

	// MPD
	MPDNetwork  string
	MPDAddr     string
	MPDPassword string
	MPDMusicDir string

	// mplayer
	MPlayerPath string

	// MediaWiki
	WikiAPIURL   string
	WikiUser     string
	WikiPassword string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	// Redis配置，用于播放历史
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	HistorySize   int

	// MySQL, only used with PlaylistBackend == mysql
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MinIO playlist backups
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		PlaylistFile:     ExpandHome(getEnv("PLAYLIST_FILE", "~/.moc/playlist.xmocp")),
		PlaylistBackend:  getEnv("PLAYLIST_BACKEND", BackendFile),
		SocketPath:       ExpandHome(getEnv("SOCKET_PATH", "~/.moc/xmocp")),
		MocpPlaylistFile: ExpandHome(getEnv("MOCP_PLAYLIST_FILE", "~/.moc/playlist.m3u")),
		MocpConfig:       ExpandHome(getEnv("MOCP_CONFIG", "~/.moc/config")),
		MocpPath:         getEnv("MOCP_PATH", "mocp"),
		Player:           getEnv("PLAYER", PlayerMocp),
		UseNotify:        getEnvBool("USE_NOTIFY", true),
		NotifyOnStartup:  getEnvBool("NOTIFY_ON_STARTUP", true),
		HTTPAddr:         getEnv("HTTP_ADDR", ""),

		MPDNetwork:  getEnv("MPD_NETWORK", "tcp"),
		MPDAddr:     getEnv("MPD_ADDR", "localhost:6600"),
		MPDPassword: getEnv("MPD_PASSWORD", ""),
		MPDMusicDir: ExpandHome(getEnv("MPD_MUSIC_DIR", "~/Music")),

		MPlayerPath: getEnv("MPLAYER_PATH", "mplayer"),

		WikiAPIURL:   getEnv("WIKI_API_URL", ""),
		WikiUser:     getEnv("WIKI_USER", ""),
		WikiPassword: os.Getenv("WIKI_PASSWORD"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       ExpandHome(getEnv("LOG_FILE", "")),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 28),

		// 默认不启用 Redis
		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		HistorySize:   getEnvInt("HISTORY_SIZE", 500),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "lyra"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "lyra"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
	}
}

// Validate reports configuration values the daemon cannot work with.
func (c *Config) Validate() error {
	switch c.Player {
	case PlayerMocp, PlayerMPD:
	default:
		return fmt.Errorf("unknown player %q (want %s or %s)", c.Player, PlayerMocp, PlayerMPD)
	}
	switch c.PlaylistBackend {
	case BackendFile, BackendMySQL:
	default:
		return fmt.Errorf("unknown playlist backend %q (want %s or %s)", c.PlaylistBackend, BackendFile, BackendMySQL)
	}
	if c.SocketPath == "" {
		return fmt.Errorf("socket path must not be empty")
	}
	if c.PlaylistBackend == BackendFile && c.PlaylistFile == "" {
		return fmt.Errorf("playlist file must not be empty")
	}
	if c.Player == PlayerMPD && c.MPDNetwork != "tcp" && c.MPDNetwork != "unix" {
		return fmt.Errorf("invalid MPD network %q", c.MPDNetwork)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history size must not be negative")
	}
	return nil
}

// HistoryEnabled reports whether a Redis server is configured for play history.
func (c *Config) HistoryEnabled() bool {
	return c.RedisHost != ""
}

// BackupEnabled reports whether MinIO playlist backups are configured.
func (c *Config) BackupEnabled() bool {
	return c.MinioEndpoint != ""
}
