package controllers_fx

import (
	"database/sql"

	"go.uber.org/fx"

	"codereview/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewReviewController),
	fx.Provide(controllers.NewBillingController),
	fx.Provide(func(db *sql.DB) *controllers.HealthController {
		return controllers.NewHealthController(db)
	}))
