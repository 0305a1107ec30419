package payment_service_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"codereview/internal/repositories"
	"codereview/internal/services"
)

var Module = fx.Provide(
	provideSubscriptionRepo,
	provideBillingEventRepo,
	services.NewStripeGateway,
	services.NewPlanCatalog,
	services.NewBillingService)

func provideSubscriptionRepo(db *gorm.DB) repositories.SubscriptionRepository {
	return repositories.NewSubscriptionRepository(db)
}

func provideBillingEventRepo(db *gorm.DB) repositories.BillingEventRepository {
	return repositories.NewBillingEventRepository(db)
}
