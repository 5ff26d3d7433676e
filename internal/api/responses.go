package api

// ErrorResponse is the single error envelope every handler returns.
type ErrorResponse struct {
	Error string `json:"error" example:"insufficient funds"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
