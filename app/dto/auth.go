package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type AsyncRequestResponse struct {
	ID      string              `json:"id"`
	Status  string              `json:"status"`
	Result  string              `json:"result,omitempty"` // body gốc, chỉ khi done/error
	HTTP    int                 `json:"http_status,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
