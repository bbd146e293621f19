package dto

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
