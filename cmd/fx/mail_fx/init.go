package mail_fx

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"codereview/internal/config"
	"codereview/internal/services"
)

var Module = fx.Provide(
	provideMailService,
	func(m services.AsyncMailService) services.IMailService { return m })

func provideMailService(lc fx.Lifecycle, cfg *config.Config, log *zerolog.Logger) services.AsyncMailService {
	mailService := services.NewMailService(cfg, nil, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			mailService.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return mailService.Stop(ctx)
		},
	})

	return mailService
}
