package db

import (
	"context"
	"testing"

	"Lyra/config"
	"Lyra/model"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser:     "lyra",
		DBPassword: "p@ss:word",
		DBHost:     "db.local",
		DBPort:     "3307",
		DBName:     "music",
	}

	dsn := DSN(cfg)
	parsed, err := mysqldrv.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "lyra", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "music", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestCloseWithoutConnect(t *testing.T) {
	GormDB = nil
	assert.NoError(t, CloseGormDB())
	assert.Error(t, AutoMigrateModels(context.Background(), &model.SongRecord{}))
}

func TestCloseRedisWithoutConnect(t *testing.T) {
	RedisClient = nil
	assert.NoError(t, CloseRedis())
}
