package prompt_fx

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"codereview/internal/config"
	"codereview/pkg/utils"
)

var Module = fx.Provide(ProvideReviewClient)

// ProvideReviewClient builds the LLM client selected by AI_PROVIDER.
func ProvideReviewClient(lc fx.Lifecycle, cfg *config.Config, log *zerolog.Logger) (utils.ReviewClientInterface, error) {
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model()).Msg("initializing review client")

	client, err := utils.NewReviewClient(cfg.AI.Provider, cfg.AI.APIKey(), cfg.AI.Model())
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
