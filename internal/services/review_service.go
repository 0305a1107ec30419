package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"codereview/internal/config"
	"codereview/internal/models/db_models"
	"codereview/internal/models/request_models"
	"codereview/internal/models/response_models"
	"codereview/internal/repositories"
	"codereview/pkg/utils"
)

const maxPageSize = 100

type ReviewServiceInterface interface {
	CreateReviewGuarded(ctx context.Context, userID uuid.UUID, request request_models.CreateReviewRequest) (*response_models.ReviewResponse, error)
	ListReviews(ctx context.Context, userID uuid.UUID, page, pageSize int) (*response_models.ReviewPage, error)
	GetReview(ctx context.Context, userID, reviewID uuid.UUID) (*response_models.ReviewResponse, error)
	DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error
}

type ReviewService struct {
	reviewRepo  repositories.ReviewRepository
	entitlement EntitlementServiceInterface
	reviewer    utils.ReviewClientInterface
	timeout     time.Duration
	log         *zerolog.Logger
}

func NewReviewService(
	reviewRepo repositories.ReviewRepository,
	entitlement EntitlementServiceInterface,
	reviewer utils.ReviewClientInterface,
	cfg *config.Config,
	log *zerolog.Logger,
) ReviewServiceInterface {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		entitlement: entitlement,
		reviewer:    reviewer,
		timeout:     cfg.AI.Timeout,
		log:         log,
	}
}

// CreateReviewGuarded checks quota before spending an AI call, then inserts
// under a row lock so concurrent submissions cannot exceed the plan.
func (r *ReviewService) CreateReviewGuarded(ctx context.Context, userID uuid.UUID, request request_models.CreateReviewRequest) (*response_models.ReviewResponse, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return nil, err
	}

	quota, err := r.entitlement.Quota(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !quota.Allows() {
		return nil, quota.Exceeded()
	}

	fileName := ""
	if request.FileName != nil {
		fileName = *request.FileName
	}

	aiCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		aiCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.reviewer.ReviewCode(aiCtx, utils.CodeReviewInput{Code: request.Code, FileName: fileName})
	if err != nil {
		return nil, utils.Upstream("review code", err)
	}
	r.log.Debug().Dur("took", time.Since(start)).Str("user_id", userID.String()).Msg("ai review finished")

	language := out.Language
	if language == "" {
		language = utils.DetectLanguage(fileName)
	}

	review := &db_models.CodeReview{
		UserID:      userID,
		FileName:    request.FileName,
		Code:        request.Code,
		Review:      out.Review,
		Score:       out.Score,
		IssuesFound: out.IssuesFound,
		Language:    language,
		Status:      db_models.ReviewStatusCompleted,
	}

	used, err := r.reviewRepo.CreateWithinQuota(ctx, review, quota.Limit, quota.Since)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrQuotaReached):
			return nil, &utils.QuotaExceededError{Plan: string(quota.Plan), Used: used, Limit: quota.Limit}
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, utils.ErrNotFound
		default:
			return nil, utils.Database("insert review", err)
		}
	}

	resp := toReviewResponse(review)
	return &resp, nil
}

func (r *ReviewService) ListReviews(ctx context.Context, userID uuid.UUID, page, pageSize int) (*response_models.ReviewPage, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return nil, utils.ErrInvalidPageSize
	}

	reviews, total, err := r.reviewRepo.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, utils.Database("list reviews", err)
	}

	items := make([]response_models.ReviewSummary, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, response_models.ReviewSummary{
			ID:          review.ID,
			FileName:    review.FileName,
			Score:       review.Score,
			IssuesFound: review.IssuesFound,
			Language:    review.Language,
			Status:      string(review.Status),
			CreatedAt:   review.CreatedAt,
		})
	}

	return &response_models.ReviewPage{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

func (r *ReviewService) GetReview(ctx context.Context, userID, reviewID uuid.UUID) (*response_models.ReviewResponse, error) {
	review, err := r.reviewRepo.FindByIdForUser(ctx, reviewID, userID)
	if err != nil {
		return nil, utils.Database("find review", err)
	}
	if review == nil {
		return nil, utils.ErrNotFound
	}

	resp := toReviewResponse(review)
	return &resp, nil
}

func (r *ReviewService) DeleteReview(ctx context.Context, userID, reviewID uuid.UUID) error {
	deleted, err := r.reviewRepo.DeleteForUser(ctx, reviewID, userID)
	if err != nil {
		return utils.Database("delete review", err)
	}
	if !deleted {
		return utils.ErrNotFound
	}
	return nil
}

func toReviewResponse(review *db_models.CodeReview) response_models.ReviewResponse {
	return response_models.ReviewResponse{
		ID:          review.ID,
		FileName:    review.FileName,
		Code:        review.Code,
		Review:      review.Review,
		Score:       review.Score,
		IssuesFound: review.IssuesFound,
		Language:    review.Language,
		Status:      string(review.Status),
		CreatedAt:   review.CreatedAt,
	}
}
