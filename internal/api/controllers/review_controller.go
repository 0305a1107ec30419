package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"codereview/internal/models/request_models"
	"codereview/internal/services"
	"codereview/pkg/utils"
)

type ReviewController struct {
	reviewService      services.ReviewServiceInterface
	entitlementService services.EntitlementServiceInterface
}

func NewReviewController(reviewService services.ReviewServiceInterface, entitlementService services.EntitlementServiceInterface) *ReviewController {
	return &ReviewController{
		reviewService:      reviewService,
		entitlementService: entitlementService,
	}
}

// CreateReview godoc
// @Summary Submit code for review
// @Description Runs an AI review if the plan quota allows it
// @Tags Reviews
// @Accept json
// @Produce json
// @Param request body request_models.CreateReviewRequest true "Code to review"
// @Success 201 {object} utils.APIResponse{data=response_models.ReviewResponse}
// @Failure 403 {object} utils.APIResponse "quota exceeded, data carries plan, used and limit"
// @Failure 502 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/reviews [post]
func (r *ReviewController) CreateReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request_models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	review, err := r.reviewService.CreateReviewGuarded(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondStatus(c, http.StatusCreated, review, "Review created")
}

// ListReviews godoc
// @Summary List own reviews, newest first
// @Tags Reviews
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.APIResponse{data=response_models.ReviewPage}
// @Security BearerAuth
// @Router /api/reviews [get]
func (r *ReviewController) ListReviews(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var page request_models.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	reviews, err := r.reviewService.ListReviews(c.Request.Context(), userID, page.Page, page.PageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, reviews, "")
}

// GetReview godoc
// @Summary Get one review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} utils.APIResponse{data=response_models.ReviewResponse}
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/reviews/{id} [get]
func (r *ReviewController) GetReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid review id")
		return
	}

	review, err := r.reviewService.GetReview(c.Request.Context(), userID, reviewID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, review, "")
}

// DeleteReview godoc
// @Summary Delete one review
// @Description Deleted reviews no longer count towards the quota
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /api/reviews/{id} [delete]
func (r *ReviewController) DeleteReview(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid review id")
		return
	}

	if err := r.reviewService.DeleteReview(c.Request.Context(), userID, reviewID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Review deleted")
}

// GetUsage godoc
// @Summary Review quota usage
// @Tags Reviews
// @Produce json
// @Success 200 {object} utils.APIResponse{data=response_models.UsageResponse}
// @Security BearerAuth
// @Router /api/reviews/usage [get]
func (r *ReviewController) GetUsage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	usage, err := r.entitlementService.Usage(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, usage, "")
}
