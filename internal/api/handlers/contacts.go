package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hugh/contact-keeper/internal/api/dto"
	"github.com/hugh/contact-keeper/internal/api/middleware"
	"github.com/hugh/contact-keeper/internal/contacts"
)

type ContactHandler struct {
	contacts *contacts.Service
	logger   *slog.Logger
}

func NewContactHandler(svc *contacts.Service, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{contacts: svc, logger: logger}
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req dto.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Normalize()

	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	contact, err := h.contacts.Create(r.Context(), userID, req.Fields())
	if err != nil {
		if errors.Is(err, contacts.ErrEmailExists) {
			writeError(w, http.StatusInternalServerError, "Email already exists")
			return
		}
		h.logger.Error("create contact failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to add contact")
		return
	}

	writeJSON(w, http.StatusCreated, dto.ContactCreatedResponse{
		Message: "Contact added successfully",
		Contact: dto.NewContactResponse(contact),
	})
}

// List accepts optional name, email and timezone substring filters.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	q := r.URL.Query()

	list, err := h.contacts.List(r.Context(), userID, contacts.Filter{
		Name:     q.Get("name"),
		Email:    q.Get("email"),
		Timezone: q.Get("timezone"),
	})
	if err != nil {
		h.logger.Error("list contacts failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve contacts")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactList(list))
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := contactID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return
	}

	contact, err := h.contacts.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Contact not found")
			return
		}
		h.logger.Error("get contact failed", "user_id", userID, "contact_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve contact")
		return
	}

	writeJSON(w, http.StatusOK, dto.NewContactResponse(contact))
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := contactID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return
	}

	var req dto.ContactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Normalize()

	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	if err := h.contacts.Update(r.Context(), id, userID, req.Fields()); err != nil {
		switch {
		case errors.Is(err, contacts.ErrNotFound):
			writeError(w, http.StatusNotFound, "Contact not found")
		case errors.Is(err, contacts.ErrEmailExists):
			writeError(w, http.StatusInternalServerError, "Email already exists")
		default:
			h.logger.Error("update contact failed", "user_id", userID, "contact_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update contact")
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Contact updated successfully"})
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := contactID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact ID")
		return
	}

	if err := h.contacts.SoftDelete(r.Context(), id, userID); err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Contact not found")
			return
		}
		h.logger.Error("delete contact failed", "user_id", userID, "contact_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete contact")
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Contact deleted successfully"})
}
