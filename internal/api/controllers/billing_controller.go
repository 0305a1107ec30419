package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"codereview/internal/models/request_models"
	"codereview/internal/services"
	"codereview/pkg/utils"
)

const maxWebhookBody = int64(65536)

type BillingController struct {
	billingService services.BillingServiceInterface
}

func NewBillingController(billingService services.BillingServiceInterface) *BillingController {
	return &BillingController{
		billingService: billingService,
	}
}

// HandleWebhook godoc
// @Summary Stripe webhook
// @Description Verifies the Stripe-Signature header and applies subscription events
// @Tags Billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} utils.APIResponse{data=response_models.WebhookAck}
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse "customer not linked to a user yet"
// @Failure 422 {object} utils.APIResponse "price not mapped to a plan"
// @Router /api/billing/webhook [post]
func (b *BillingController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, "Unable to read request body")
		return
	}

	ack, err := b.billingService.HandleBillingEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, utils.ErrInvalidPlan) {
			utils.RespondError(c, http.StatusUnprocessableEntity, "Price is not mapped to a plan")
			return
		}
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, ack, "")
}

// CreateCheckout godoc
// @Summary Start a subscription checkout
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body request_models.CheckoutRequest true "Plan to buy"
// @Success 200 {object} utils.APIResponse{data=response_models.RedirectResponse}
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse "subscription already active"
// @Security BearerAuth
// @Router /api/billing/checkout [post]
func (b *BillingController) CreateCheckout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request_models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	redirect, err := b.billingService.CreateCheckoutSession(c.Request.Context(), userID, req.Plan)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, redirect, "Checkout URL created successfully")
}

// CreatePortal godoc
// @Summary Open the billing portal
// @Tags Billing
// @Produce json
// @Success 200 {object} utils.APIResponse{data=response_models.RedirectResponse}
// @Security BearerAuth
// @Router /api/billing/portal [post]
func (b *BillingController) CreatePortal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	redirect, err := b.billingService.CreatePortalSession(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, redirect, "")
}

// GetSubscription godoc
// @Summary Current subscription
// @Tags Billing
// @Produce json
// @Success 200 {object} utils.APIResponse{data=response_models.SubscriptionResponse}
// @Security BearerAuth
// @Router /api/billing/subscription [get]
func (b *BillingController) GetSubscription(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	sub, err := b.billingService.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, sub, "")
}

// ListPlans godoc
// @Summary Available plans and their review limits
// @Tags Billing
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]response_models.PlanResponse}
// @Router /api/billing/plans [get]
func (b *BillingController) ListPlans(c *gin.Context) {
	utils.RespondSuccess(c, b.billingService.ListPlans(), "")
}
