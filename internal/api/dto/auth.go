package dto

import (
	"strings"

	"github.com/hugh/contact-keeper/internal/api/validation"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r RegisterRequest) Validate() []validation.FieldError {
	return validation.Credentials(r.Email, r.Password)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r LoginRequest) Validate() []validation.FieldError {
	return validation.Credentials(r.Email, r.Password)
}

type LoginResponse struct {
	Token string `json:"token"`
}
