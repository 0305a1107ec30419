package account_fx

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"codereview/internal/config"
	"codereview/internal/repositories"
	"codereview/internal/services"
	mem "codereview/pkg/memcache"
)

const sessionSweepInterval = time.Hour

var Module = fx.Options(
	fx.Provide(
		provideAccountRepo,
		provideSessionRepo,
		provideOtpRepo,
		providePasswordResetRepo,
		provideAccountService),
	fx.Invoke(startSessionSweeper))

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideSessionRepo(db *gorm.DB) repositories.SessionRepository {
	return repositories.NewSessionRepository(db)
}

func provideOtpRepo(db *gorm.DB) repositories.OtpRepository {
	return repositories.NewOtpRepository(db)
}

func providePasswordResetRepo(db *gorm.DB) repositories.PasswordResetRepository {
	return repositories.NewPasswordResetRepository(db)
}

func provideAccountService(
	accountRepo repositories.AccountRepository,
	sessionRepo repositories.SessionRepository,
	otpRepo repositories.OtpRepository,
	resetRepo repositories.PasswordResetRepository,
	pending mem.PendingLoginStore,
	mailService services.IMailService,
	cfg *config.Config,
	log *zerolog.Logger,
) services.AccountServiceInterface {
	return services.NewAccountService(accountRepo, sessionRepo, otpRepo, resetRepo, pending, mailService, cfg, log)
}

// startSessionSweeper deletes expired sessions in the background.
func startSessionSweeper(lc fx.Lifecycle, sessionRepo repositories.SessionRepository, log *zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ticker := time.NewTicker(sessionSweepInterval)
			go func() {
				defer close(done)
				defer ticker.Stop()
				sweepSessions(ctx, sessionRepo, log, ticker.C)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func sweepSessions(ctx context.Context, sessionRepo repositories.SessionRepository, log *zerolog.Logger, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticks:
			n, err := sessionRepo.DeleteExpired(ctx, now.UTC())
			if err != nil {
				log.Error().Err(err).Msg("sweep expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("expired sessions removed")
			}
		}
	}
}
