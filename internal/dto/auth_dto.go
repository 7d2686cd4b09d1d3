package dto

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginOtpRequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

type LoginBypassRequest struct {
	MFAToken string `json:"mfa_token" validate:"required"`
	Token    string `json:"token" validate:"required,len=8"`
}

type LoginResponse struct {
	AccessToken       string `json:"access_token,omitempty"`
	ExpiresIn         int64  `json:"expires_in,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`
	RefreshExpiresIn  int64  `json:"refresh_expires_in,omitempty"`
	MFARequired       bool   `json:"mfa_required,omitempty"`
	MFAToken          string `json:"mfa_token,omitempty"`
	MFATokenExpiresIn int64  `json:"mfa_token_expires_in,omitempty"`
}
