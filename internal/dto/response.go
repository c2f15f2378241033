package dto

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	DB        string   `json:"db"`
	Plugins   []string `json:"plugins"`
}
