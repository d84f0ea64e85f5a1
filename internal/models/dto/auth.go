package dto

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type WalletResponse struct {
	WalletAddress string `json:"walletAddress"`
}

type ChangePasswordRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type OnboardRequest struct {
	Name string `json:"name"`
}

type OnboardResponse struct {
	Token    string `json:"token"`
	ClientID string `json:"clientId"`
}

type APIKeyResponse struct {
	APIKey string `json:"apiKey"`
}
