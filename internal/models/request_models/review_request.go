package request_models

type CreateReviewRequest struct {
	Code     string  `json:"code" binding:"required" validate:"required,max=200000"`
	FileName *string `json:"file_name" validate:"omitempty,max=255"`
}

type PageRequest struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}
