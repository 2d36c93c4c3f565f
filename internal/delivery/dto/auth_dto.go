package dto

// Request DTOs

type RegisterPatientRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,min=7,max=20"`
	DateOfBirth string `json:"date_of_birth" validate:"required"`
	Gender      string `json:"gender" validate:"required,oneof=M F"`
	Address     string `json:"address" validate:"omitempty,max=1000"`
}

type RegisterDoctorRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=255"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	PhoneNumber    string `json:"phone_number" validate:"omitempty,min=7,max=20"`
	Specialization string `json:"specialization" validate:"required,max=100"`
	Biography      string `json:"biography" validate:"omitempty,max=2000"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token so it can be revoked
// together with the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"omitempty"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
