package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"codereview/internal/models/request_models"
	"codereview/internal/services"
	"codereview/pkg/middleware"
	"codereview/pkg/utils"
)

type AccountController struct {
	accountService services.AccountServiceInterface
}

func NewAccountController(accountService services.AccountServiceInterface) *AccountController {
	return &AccountController{
		accountService: accountService,
	}
}

// currentUserID reads the id the session middleware put on the context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := currentUserID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

// Register godoc
// @Summary Register a new account
// @Description Create an unverified account and email a verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.RegisterRequest true "Account registration payload"
// @Success 201 {object} utils.APIResponse{data=response_models.RegisterResponse}
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/auth/register [post]
func (a *AccountController) Register(c *gin.Context) {
	var req request_models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	resp, err := a.accountService.Register(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, resp, "Account created, check your email for the verification code")
}

// VerifyEmail godoc
// @Summary Verify the account email
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.VerifyOtpRequest true "Email and code"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Router /api/auth/verify-email [post]
func (a *AccountController) VerifyEmail(c *gin.Context) {
	var req request_models.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := a.accountService.VerifyEmail(c.Request.Context(), req.Email, req.Otp); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Email verified successfully")
}

// Login godoc
// @Summary Start a login
// @Description Checks the password and emails a one-time sign-in code
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.LoginRequest true "Login payload"
// @Success 200 {object} utils.APIResponse{data=response_models.LoginResponse}
// @Failure 401 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /api/auth/login [post]
func (a *AccountController) Login(c *gin.Context) {
	var req request_models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	resp, err := a.accountService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, resp, "Sign-in code sent")
}

// VerifyLoginOTP godoc
// @Summary Finish a login with the emailed code
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.VerifyOtpRequest true "Email and code"
// @Success 200 {object} utils.APIResponse{data=response_models.SessionResponse}
// @Failure 400 {object} utils.APIResponse
// @Router /api/auth/verify-login-otp [post]
func (a *AccountController) VerifyLoginOTP(c *gin.Context) {
	var req request_models.VerifyOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := a.accountService.VerifyLoginOTP(c.Request.Context(), req.Email, req.Otp)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, session, "Login successful")
}

// ResendOTP godoc
// @Summary Send a fresh code
// @Description Replaces any outstanding code for the account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.EmailRequest true "Email"
// @Success 200 {object} utils.APIResponse
// @Router /api/auth/resend-otp [post]
func (a *AccountController) ResendOTP(c *gin.Context) {
	var req request_models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := a.accountService.ResendOTP(c.Request.Context(), req.Email); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "A new code has been sent")
}

// ForgotPassword godoc
// @Summary Request a password reset
// @Description Sends a reset link if the email exists. The response is the same either way.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.EmailRequest true "Email"
// @Success 200 {object} utils.APIResponse
// @Router /api/auth/forgot-password [post]
func (a *AccountController) ForgotPassword(c *gin.Context) {
	var req request_models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := a.accountService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "If the email exists, a reset link has been sent")
}

// ResetPassword godoc
// @Summary Reset the password with a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body request_models.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Router /api/auth/reset-password [post]
func (a *AccountController) ResetPassword(c *gin.Context) {
	var req request_models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := a.accountService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Password has been reset successfully")
}

// Logout godoc
// @Summary Revoke the current session
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/auth/logout [post]
func (a *AccountController) Logout(c *gin.Context) {
	token := c.GetString(middleware.ContextSessionToken)

	if err := a.accountService.Logout(c.Request.Context(), token); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Logged out")
}

// GetMe godoc
// @Summary Current account profile
// @Tags Account
// @Produce json
// @Success 200 {object} utils.APIResponse{data=response_models.UserResponse}
// @Security BearerAuth
// @Router /api/account/me [get]
func (a *AccountController) GetMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := a.accountService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, profile, "")
}

// UpdateMe godoc
// @Summary Update profile fields
// @Tags Account
// @Accept json
// @Produce json
// @Param request body request_models.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} utils.APIResponse{data=response_models.UserResponse}
// @Security BearerAuth
// @Router /api/account/me [patch]
func (a *AccountController) UpdateMe(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request_models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	profile, err := a.accountService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, profile, "Profile updated")
}

// ChangePassword godoc
// @Summary Change the password
// @Tags Account
// @Accept json
// @Produce json
// @Param request body request_models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/account/change-password [post]
func (a *AccountController) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request_models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := a.accountService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Password changed")
}
