package dto

import "github.com/hugh/contact-keeper/internal/api/validation"

type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse lists every rejected field of a request body.
type ValidationErrorResponse struct {
	Errors []validation.FieldError `json:"errors"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
