package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"codereview/internal/config"
	"codereview/internal/models/db_models"
	"codereview/internal/models/request_models"
	"codereview/internal/models/response_models"
	"codereview/internal/repositories"
	mem "codereview/pkg/memcache"
	"codereview/pkg/utils"
)

type AccountServiceInterface interface {
	Register(ctx context.Context, request request_models.RegisterRequest) (*response_models.RegisterResponse, error)
	VerifyEmail(ctx context.Context, email, otp string) error
	Login(ctx context.Context, email, password string) (*response_models.LoginResponse, error)
	VerifyLoginOTP(ctx context.Context, email, otp string) (*response_models.SessionResponse, error)
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*db_models.User, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (*response_models.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, request request_models.UpdateProfileRequest) (*response_models.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, request request_models.ChangePasswordRequest) error
}

type AccountService struct {
	accountRepo repositories.AccountRepository
	sessionRepo repositories.SessionRepository
	otpRepo     repositories.OtpRepository
	resetRepo   repositories.PasswordResetRepository
	pending     mem.PendingLoginStore
	mail        IMailService
	cfg         config.AuthConfig
	log         *zerolog.Logger
	now         func() time.Time
}

func NewAccountService(
	accountRepo repositories.AccountRepository,
	sessionRepo repositories.SessionRepository,
	otpRepo repositories.OtpRepository,
	resetRepo repositories.PasswordResetRepository,
	pending mem.PendingLoginStore,
	mail IMailService,
	cfg *config.Config,
	log *zerolog.Logger,
) AccountServiceInterface {
	return &AccountService{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		otpRepo:     otpRepo,
		resetRepo:   resetRepo,
		pending:     pending,
		mail:        mail,
		cfg:         cfg.Auth,
		log:         log,
		now:         utils.NowUTC,
	}
}

func (a *AccountService) Register(ctx context.Context, request request_models.RegisterRequest) (*response_models.RegisterResponse, error) {
	request.Email = utils.NormalizeEmail(request.Email)
	if err := utils.ValidateStruct(request); err != nil {
		return nil, err
	}

	existing, err := a.accountRepo.FindByEmail(ctx, request.Email)
	if err != nil {
		return nil, utils.Database("find account", err)
	}
	if existing != nil {
		return nil, utils.ErrEmailAlreadyExists
	}

	hashedPassword, err := utils.HashPassword(request.Password, a.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	otpSecret, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, err
	}

	user := &db_models.User{
		Email:        request.Email,
		PasswordHash: hashedPassword,
		FirstName:    request.FirstName,
		LastName:     request.LastName,
		Phone:        request.Phone,
		OtpSecret:    otpSecret,
	}

	if err := a.accountRepo.Insert(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, utils.ErrEmailAlreadyExists
		}
		return nil, utils.Database("insert account", err)
	}

	if err := a.issueOtp(ctx, user, db_models.OtpPurposeEmailVerification); err != nil {
		return nil, err
	}

	a.log.Info().Str("user_id", user.ID.String()).Msg("account registered")

	return &response_models.RegisterResponse{UserID: user.ID}, nil
}

func (a *AccountService) VerifyEmail(ctx context.Context, email, otp string) error {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateStruct(request_models.VerifyOtpRequest{Email: email, Otp: otp}); err != nil {
		return err
	}

	user, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.Database("find account", err)
	}
	if user == nil {
		return utils.ErrInvalidCode
	}
	if user.IsEmailVerified() {
		return nil
	}

	if err := a.verifyOtp(ctx, user, db_models.OtpPurposeEmailVerification, otp); err != nil {
		return err
	}

	if err := a.accountRepo.MarkEmailVerified(ctx, user.ID, a.now()); err != nil {
		return utils.Database("mark email verified", err)
	}
	return nil
}

func (a *AccountService) Login(ctx context.Context, email, password string) (*response_models.LoginResponse, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateStruct(request_models.LoginRequest{Email: email, Password: password}); err != nil {
		return nil, err
	}

	user, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.Database("find account", err)
	}
	if user == nil {
		return nil, utils.ErrInvalidCredentials
	}

	if err := utils.ComparePasswords(user.PasswordHash, password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	if !user.IsEmailVerified() {
		if err := a.issueOtp(ctx, user, db_models.OtpPurposeEmailVerification); err != nil {
			return nil, err
		}
		return nil, utils.ErrEmailNotVerified
	}

	if err := a.issueOtp(ctx, user, db_models.OtpPurposeLogin); err != nil {
		return nil, err
	}

	err = a.pending.Put(ctx, mem.PendingLogin{
		UserID:   user.ID,
		Email:    user.Email,
		IssuedAt: a.now(),
	}, a.cfg.OtpTTL)
	if err != nil {
		return nil, err
	}

	return &response_models.LoginResponse{RequiresOTP: true, UserID: user.ID}, nil
}

func (a *AccountService) VerifyLoginOTP(ctx context.Context, email, otp string) (*response_models.SessionResponse, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateStruct(request_models.VerifyOtpRequest{Email: email, Otp: otp}); err != nil {
		return nil, err
	}

	pending, err := a.pending.Peek(ctx, email)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, utils.ErrInvalidCode
	}

	user, err := a.accountRepo.FindById(ctx, pending.UserID)
	if err != nil {
		return nil, utils.Database("find account", err)
	}
	if user == nil {
		return nil, utils.ErrNotFound
	}

	if err := a.verifyOtp(ctx, user, db_models.OtpPurposeLogin, otp); err != nil {
		return nil, err
	}

	if _, err := a.pending.Take(ctx, email); err != nil {
		return nil, err
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, err
	}

	session := &db_models.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: a.now().Add(a.cfg.SessionTTL),
	}
	if err := a.sessionRepo.Create(ctx, session); err != nil {
		return nil, utils.Database("create session", err)
	}

	a.log.Info().Str("user_id", user.ID.String()).Msg("session created")

	return &response_models.SessionResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      toUserResponse(user),
	}, nil
}

func (a *AccountService) ResendOTP(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateStruct(request_models.EmailRequest{Email: email}); err != nil {
		return err
	}

	user, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.Database("find account", err)
	}
	if user == nil {
		return utils.ErrNotFound
	}

	if !user.IsEmailVerified() {
		return a.issueOtp(ctx, user, db_models.OtpPurposeEmailVerification)
	}
	if err := a.issueOtp(ctx, user, db_models.OtpPurposeLogin); err != nil {
		return err
	}

	// The pending login must outlive the new code. Without one the
	// password step never happened, so nothing is created here.
	pending, err := a.pending.Peek(ctx, email)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}
	pending.IssuedAt = a.now()
	return a.pending.Put(ctx, *pending, a.cfg.OtpTTL)
}

func (a *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateStruct(request_models.EmailRequest{Email: email}); err != nil {
		return err
	}

	user, err := a.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return utils.Database("find account", err)
	}
	if user == nil {
		a.log.Debug().Msg("password reset requested for unknown email")
		return nil
	}

	now := a.now()
	token, jti, err := utils.CreateResetToken([]byte(a.cfg.ResetTokenSecret), user.ID, user.Email, a.cfg.ResetTokenTTL, now)
	if err != nil {
		return err
	}

	err = a.resetRepo.Create(ctx, &db_models.PasswordResetToken{
		JTI:       jti,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(a.cfg.ResetTokenTTL),
	})
	if err != nil {
		return utils.Database("store reset token", err)
	}

	a.mail.SendPasswordResetEmail(user.Email, user.FullName(), token)
	return nil
}

func (a *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	now := a.now()

	claims, err := utils.ParseResetToken([]byte(a.cfg.ResetTokenSecret), token, now)
	if err != nil {
		return utils.ErrInvalidToken
	}

	record, err := a.resetRepo.FindByJTI(ctx, claims.ID)
	if err != nil {
		return utils.Database("find reset token", err)
	}
	if record == nil || record.UsedAt != nil || record.UserID.String() != claims.Subject || !record.ExpiresAt.After(now) {
		return utils.ErrInvalidToken
	}

	if err := utils.ValidateStruct(request_models.ResetPasswordRequest{Token: token, NewPassword: newPassword}); err != nil {
		return err
	}

	hashedPassword, err := utils.HashPassword(newPassword, a.cfg.BcryptCost)
	if err != nil {
		return err
	}

	used, err := a.resetRepo.MarkUsed(ctx, record.JTI, now)
	if err != nil {
		return utils.Database("mark reset token used", err)
	}
	if !used {
		return utils.ErrInvalidToken
	}

	if err := a.accountRepo.UpdatePassword(ctx, record.UserID, hashedPassword); err != nil {
		return utils.Database("update password", err)
	}

	if a.cfg.InvalidateSessionsOnPasswordReset {
		n, err := a.sessionRepo.DeleteByUser(ctx, record.UserID)
		if err != nil {
			return utils.Database("delete sessions", err)
		}
		a.log.Info().Str("user_id", record.UserID.String()).Int64("sessions", n).Msg("sessions revoked after password reset")
	}

	return nil
}

func (a *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := a.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return utils.Database("delete session", err)
	}
	return nil
}

func (a *AccountService) Authenticate(ctx context.Context, token string) (*db_models.User, error) {
	if token == "" {
		return nil, utils.ErrUnauthorized
	}

	now := a.now()
	session, err := a.sessionRepo.FindValidByToken(ctx, token, now)
	if err != nil {
		return nil, utils.Database("find session", err)
	}
	if session == nil || session.IsExpired(now) || session.User.ID == uuid.Nil {
		return nil, utils.ErrUnauthorized
	}

	user := session.User
	return &user, nil
}

func (a *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*response_models.UserResponse, error) {
	user, err := a.accountRepo.FindById(ctx, userID)
	if err != nil {
		return nil, utils.Database("find account", err)
	}
	if user == nil {
		return nil, utils.ErrNotFound
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (a *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, request request_models.UpdateProfileRequest) (*response_models.UserResponse, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return nil, err
	}

	user, err := a.accountRepo.FindById(ctx, userID)
	if err != nil {
		return nil, utils.Database("find account", err)
	}
	if user == nil {
		return nil, utils.ErrNotFound
	}

	if request.FirstName != nil {
		user.FirstName = *request.FirstName
	}
	if request.LastName != nil {
		user.LastName = *request.LastName
	}
	if request.Phone != nil {
		user.Phone = *request.Phone
	}

	if err := a.accountRepo.UpdateProfile(ctx, user.ID, user.FirstName, user.LastName, user.Phone); err != nil {
		return nil, utils.Database("update profile", err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (a *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, request request_models.ChangePasswordRequest) error {
	user, err := a.accountRepo.FindById(ctx, userID)
	if err != nil {
		return utils.Database("find account", err)
	}
	if user == nil {
		return utils.ErrNotFound
	}

	if err := utils.ComparePasswords(user.PasswordHash, request.CurrentPassword); err != nil {
		return utils.ErrInvalidCredentials
	}

	if err := utils.ValidateStruct(request); err != nil {
		return err
	}

	hashedPassword, err := utils.HashPassword(request.NewPassword, a.cfg.BcryptCost)
	if err != nil {
		return err
	}

	if err := a.accountRepo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return utils.Database("update password", err)
	}
	return nil
}

// issueOtp replaces any live code for the purpose and mails the new one.
func (a *AccountService) issueOtp(ctx context.Context, user *db_models.User, purpose db_models.OtpPurpose) error {
	code, err := utils.GenerateOtpCode(user.OtpSecret, a.cfg.OtpLength)
	if err != nil {
		return err
	}

	err = a.otpRepo.Issue(ctx, &db_models.OneTimeCode{
		Email:     user.Email,
		Purpose:   purpose,
		CodeHash:  utils.HashOtpCode(user.OtpSecret, string(purpose), code),
		ExpiresAt: a.now().Add(a.cfg.OtpTTL),
	})
	if err != nil {
		return utils.Database("issue otp", err)
	}

	a.mail.SendVerificationEmail(user.Email, code, user.FullName(), purpose == db_models.OtpPurposeLogin, false)
	return nil
}

func (a *AccountService) verifyOtp(ctx context.Context, user *db_models.User, purpose db_models.OtpPurpose, otp string) error {
	now := a.now()

	record, err := a.otpRepo.FindActive(ctx, user.Email, purpose)
	if err != nil {
		return utils.Database("find otp", err)
	}
	if record == nil || !record.IsUsable(now, a.cfg.OtpMaxAttempts) {
		return utils.ErrInvalidCode
	}

	if !utils.VerifyOtpCode(user.OtpSecret, string(purpose), otp, record.CodeHash) {
		if err := a.otpRepo.IncrementAttempts(ctx, record.ID); err != nil {
			a.log.Error().Err(err).Msg("increment otp attempts")
		}
		return utils.ErrInvalidCode
	}

	consumed, err := a.otpRepo.Consume(ctx, record.ID, now)
	if err != nil {
		return utils.Database("consume otp", err)
	}
	if !consumed {
		return utils.ErrInvalidCode
	}
	return nil
}

func toUserResponse(user *db_models.User) response_models.UserResponse {
	return response_models.UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Phone:           user.Phone,
		EmailVerified:   user.IsEmailVerified(),
		EmailVerifiedAt: user.EmailVerifiedAt,
		CreatedAt:       user.CreatedAt,
	}
}
