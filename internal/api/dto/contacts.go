package dto

import (
	"strings"
	"time"

	"github.com/hugh/contact-keeper/internal/api/validation"
	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/database/models"
)

// ContactRequest is the body of POST /contacts and PUT /contacts/{id}.
type ContactRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

func (r *ContactRequest) Normalize() {
	r.Name = strings.TrimSpace(validation.SanitizeString(r.Name))
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = validation.OptionalString(r.Phone)
	r.Address = validation.OptionalString(r.Address)
	r.Timezone = validation.OptionalString(r.Timezone)
}

func (r ContactRequest) Validate() []validation.FieldError {
	return validation.Contact(r.Name, r.Email, r.Phone, r.Address, r.Timezone)
}

func (r ContactRequest) Fields() contacts.Fields {
	return contacts.Fields{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Address:  r.Address,
		Timezone: r.Timezone,
	}
}

type ContactResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Timezone  *string `json:"timezone"`
	UserID    uint    `json:"user_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func NewContactResponse(c *models.Contact) ContactResponse {
	resp := ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Timezone:  c.Timezone,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.UserID != nil {
		resp.UserID = *c.UserID
	}
	return resp
}

func NewContactList(list []models.Contact) []ContactResponse {
	out := make([]ContactResponse, len(list))
	for i := range list {
		out[i] = NewContactResponse(&list[i])
	}
	return out
}

type ContactCreatedResponse struct {
	Message string          `json:"message"`
	Contact ContactResponse `json:"contact"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}
