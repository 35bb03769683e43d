package dto

// TokenRequest represents the request to exchange tenant credentials for tokens
type TokenRequest struct {
	Slug      string `json:"slug" validate:"required,min=2,max=100"`
	APISecret string `json:"api_secret" validate:"required,min=16,max=255"`
}

// RefreshTokenRequest represents the request to rotate an access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse represents issued tenant tokens
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
