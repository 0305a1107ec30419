package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"codereview/cmd/fx/account_fx"
	"codereview/cmd/fx/config_fx"
	"codereview/cmd/fx/controllers_fx"
	"codereview/cmd/fx/db_fx"
	"codereview/cmd/fx/mail_fx"
	"codereview/cmd/fx/memcache_fx"
	"codereview/cmd/fx/payment_service_fx"
	"codereview/cmd/fx/prompt_fx"
	"codereview/cmd/fx/review_fx"
	"codereview/internal/api/controllers"
	"codereview/internal/config"
	"codereview/internal/services"
	"codereview/pkg/middleware"
	"codereview/pkg/ratelimit"
)

func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		mail_fx.Module,
		prompt_fx.Module,
		account_fx.Module,
		review_fx.Module,
		payment_service_fx.Module,
		controllers_fx.Module,

		fx.WithLogger(func(log *zerolog.Logger) fxevent.Logger {
			return &fxevent.ConsoleLogger{W: fxWriter{log: log}}
		}),
		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

// fxWriter routes fx lifecycle output through zerolog at debug level.
type fxWriter struct {
	log *zerolog.Logger
}

func (w fxWriter) Write(p []byte) (int, error) {
	w.log.Debug().Str("component", "fx").Msg(string(p))
	return len(p), nil
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, log *zerolog.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("http server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	cfg *config.Config,
	log *zerolog.Logger,
	accountService services.AccountServiceInterface,
	limiter ratelimit.Limiter,
	accountController *controllers.AccountController,
	reviewController *controllers.ReviewController,
	billingController *controllers.BillingController,
	healthController *controllers.HealthController,
) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	RegisterRoutes(r,
		middleware.SessionAuthMiddleware(accountService),
		middleware.RateLimit(limiter),
		accountController,
		reviewController,
		billingController,
		healthController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	auth gin.HandlerFunc,
	rateLimit gin.HandlerFunc,
	accountController *controllers.AccountController,
	reviewController *controllers.ReviewController,
	billingController *controllers.BillingController,
	healthController *controllers.HealthController) {

	r.GET("/health", healthController.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", rateLimit, accountController.Register)
	authGroup.POST("/verify-email", rateLimit, accountController.VerifyEmail)
	authGroup.POST("/login", rateLimit, accountController.Login)
	authGroup.POST("/verify-login-otp", rateLimit, accountController.VerifyLoginOTP)
	authGroup.POST("/resend-otp", rateLimit, accountController.ResendOTP)
	authGroup.POST("/forgot-password", rateLimit, accountController.ForgotPassword)
	authGroup.POST("/reset-password", rateLimit, accountController.ResetPassword)
	authGroup.POST("/logout", auth, accountController.Logout)

	accountGroup := api.Group("/account", auth)
	accountGroup.GET("/me", accountController.GetMe)
	accountGroup.PATCH("/me", accountController.UpdateMe)
	accountGroup.POST("/change-password", accountController.ChangePassword)

	reviewGroup := api.Group("/reviews", auth)
	reviewGroup.POST("", reviewController.CreateReview)
	reviewGroup.GET("", reviewController.ListReviews)
	reviewGroup.GET("/usage", reviewController.GetUsage)
	reviewGroup.GET("/:id", reviewController.GetReview)
	reviewGroup.DELETE("/:id", reviewController.DeleteReview)

	billingGroup := api.Group("/billing")
	billingGroup.GET("/plans", billingController.ListPlans)
	billingGroup.POST("/webhook", billingController.HandleWebhook)
	billingGroup.POST("/checkout", auth, billingController.CreateCheckout)
	billingGroup.POST("/portal", auth, billingController.CreatePortal)
	billingGroup.GET("/subscription", auth, billingController.GetSubscription)
}
