package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	RespondStatus(c, http.StatusOK, data, message)
}

func RespondStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, APIResponse{
		Status:  "success",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	respondError(c, code, message, nil)
}

func respondError(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

// HandleServiceError maps a service error onto the HTTP status and a message
// that is safe to show. Unclassified errors are logged and reported as internal.
func HandleServiceError(c *gin.Context, err error) {
	var quotaErr *QuotaExceededError
	var validationErr *ValidationError

	switch {
	case errors.As(err, &quotaErr):
		respondError(c, http.StatusForbidden, "Review quota exceeded, upgrade your plan to continue", gin.H{
			"plan":  quotaErr.Plan,
			"used":  quotaErr.Used,
			"limit": quotaErr.Limit,
		})
	case errors.As(err, &validationErr):
		RespondError(c, http.StatusBadRequest, validationErr.Reason)
	case errors.Is(err, ErrValidation):
		RespondError(c, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrEmailNotVerified):
		RespondError(c, http.StatusForbidden, "Email not verified, a new verification code has been sent")
	case errors.Is(err, ErrInvalidCode):
		RespondError(c, http.StatusBadRequest, "Invalid or expired code")
	case errors.Is(err, ErrInvalidToken):
		RespondError(c, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, ErrEmailAlreadyExists):
		RespondError(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, ErrSubscriptionActive):
		RespondError(c, http.StatusConflict, "Subscription already active, manage it from the billing portal")
	case errors.Is(err, ErrNotFound):
		RespondError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrSignature):
		RespondError(c, http.StatusBadRequest, "Signature verification failed")
	case errors.Is(err, ErrInvalidPlan):
		RespondError(c, http.StatusBadRequest, "Invalid plan")
	case errors.Is(err, ErrInvalidPage):
		RespondError(c, http.StatusBadRequest, "Page must be greater than 0")
	case errors.Is(err, ErrInvalidPageSize):
		RespondError(c, http.StatusBadRequest, "Page size must be between 1 and 100")
	case errors.Is(err, ErrUpstream):
		logFromContext(c).Error().Err(err).Msg("upstream error")
		RespondError(c, http.StatusBadGateway, "Upstream service unavailable")
	case errors.Is(err, ErrDatabaseError):
		logFromContext(c).Error().Err(err).Msg("database error")
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	default:
		logFromContext(c).Error().Err(err).Msg("unhandled service error")
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

func logFromContext(c *gin.Context) *zerolog.Logger {
	return zerolog.Ctx(c.Request.Context())
}
