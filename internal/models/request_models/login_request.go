package request_models

type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100" validate:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100" validate:"required,max=100"`
	Email     string `json:"email" binding:"required,email" validate:"required,email,max=254"`
	Password  string `json:"password" binding:"required" validate:"required,password"`
	Phone     string `json:"phone" binding:"omitempty,max=32" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

type VerifyOtpRequest struct {
	Email string `json:"email" binding:"required,email" validate:"required,email"`
	Otp   string `json:"otp" binding:"required" validate:"required,numeric,min=4,max=9"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required" validate:"required"`
	NewPassword string `json:"new_password" binding:"required" validate:"required,password"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,e164"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required" validate:"required"`
	NewPassword     string `json:"new_password" binding:"required" validate:"required,password"`
}
