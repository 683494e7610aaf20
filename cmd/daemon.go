package cmd

import (
	"context"

	"Lyra/config"
	"Lyra/core/history"
	"Lyra/core/player"
	"Lyra/core/playlist"
	"Lyra/db"
	"Lyra/logger"
	"Lyra/model"
	"Lyra/repository"
)

// newPlayer returns the configured music player.
func newPlayer(cfg *config.Config) player.Player {
	if cfg.Player == config.PlayerMPD {
		return player.NewMPD(cfg.MPDNetwork, cfg.MPDAddr, cfg.MPDPassword, cfg.MPDMusicDir)
	}
	return player.NewMocp(cfg.MocpPath)
}

// openStore opens the configured playlist store. The FileStore is returned
// separately when the flat file backend is used so it can be watched.
func openStore(ctx context.Context, cfg *config.Config) (playlist.Store, *playlist.FileStore, func(), error) {
	if cfg.PlaylistBackend != config.BackendMySQL {
		fs := playlist.NewFileStore(cfg.PlaylistFile)
		return fs, fs, func() {}, nil
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := db.CloseGormDB(); err != nil {
			logger.Warn("failed to close database", logger.ErrorField(err))
		}
	}
	if err := db.AutoMigrateModels(ctx, &model.SongRecord{}); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return repository.NewSongRepository(db.GormDB), nil, cleanup, nil
}

// openHistory connects the play history, falling back to a no-op recorder.
func openHistory(cfg *config.Config) (history.Recorder, func()) {
	if !cfg.HistoryEnabled() {
		return history.Nop{}, func() {}
	}
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("play history disabled", logger.ErrorField(err))
		return history.Nop{}, func() {}
	}
	return history.NewRedis(db.RedisClient, cfg.HistorySize), func() {
		if err := db.CloseRedis(); err != nil {
			logger.Warn("failed to close Redis", logger.ErrorField(err))
		}
	}
}
