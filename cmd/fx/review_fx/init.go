package review_fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"codereview/internal/config"
	"codereview/internal/repositories"
	"codereview/internal/services"
	"codereview/pkg/utils"
)

var Module = fx.Provide(
	provideReviewRepo,
	services.NewEntitlementService,
	provideReviewService)

func provideReviewRepo(db *gorm.DB) repositories.ReviewRepository {
	return repositories.NewReviewRepository(db)
}

func provideReviewService(
	reviewRepo repositories.ReviewRepository,
	entitlement services.EntitlementServiceInterface,
	reviewer utils.ReviewClientInterface,
	cfg *config.Config,
	log *zerolog.Logger,
) services.ReviewServiceInterface {
	return services.NewReviewService(reviewRepo, entitlement, reviewer, cfg, log)
}
