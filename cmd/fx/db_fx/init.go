package db_fx

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"codereview/internal/config"
	"codereview/internal/infra"
)

var Module = fx.Provide(
	provideSQL,
	provideDB)

// provideSQL opens the pool and migrates before anything else touches the schema.
func provideSQL(lc fx.Lifecycle, cfg *config.Config, log *zerolog.Logger) (*sql.DB, error) {
	ctx := context.Background()

	sqlDB, err := infra.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := infra.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info().Msg("database migrations applied")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			infra.ClosePostgresql(sqlDB, log)
			return nil
		},
	})

	return sqlDB, nil
}

func provideDB(sqlDB *sql.DB, cfg *config.Config, log *zerolog.Logger) (*gorm.DB, error) {
	return infra.NewGorm(sqlDB, log, cfg.IsDevelopment())
}
