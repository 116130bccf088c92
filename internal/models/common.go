package models

// ErrorResponse is the JSON error body returned by every REST handler.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
