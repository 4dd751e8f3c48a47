package main

import (
	"context"
	"io"

	"salesapi/config"
	"salesapi/repository"
	"salesapi/service"

	"go.uber.org/zap"
)

type store interface {
	service.Repository
	Migrate(ctx context.Context) error
	io.Closer
}

type sqlStore struct {
	repository.SQLRepository
	io.Closer
}

// openStore picks Postgres when a database is configured and the local SQLite
// file otherwise.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store, error) {
	if cfg.UsesPostgres() {
		db, err := config.InitDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("using postgres store")
		return sqlStore{
			SQLRepository: repository.NewPostgresRepository(db),
			Closer:        db,
		}, nil
	}

	db, err := config.InitSQLite(ctx, cfg.SQLiteFile())
	if err != nil {
		return nil, err
	}
	log.Info("using sqlite store", zap.String("path", cfg.SQLiteFile()))
	return sqlStore{
		SQLRepository: repository.NewSQLiteRepository(db),
		Closer:        db,
	}, nil
}
