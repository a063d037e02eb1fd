package handlers

import (
	"log/slog"
	"net/http"

	"github.com/hugh/contact-keeper/internal/api/dto"
	"github.com/hugh/contact-keeper/internal/database"
	"gorm.io/gorm"
)

// AdminHandler serves maintenance endpoints that are only mounted outside
// production.
type AdminHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAdminHandler(db *gorm.DB, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{db: db, logger: logger}
}

// ResetTables drops users and contacts and recreates them empty.
func (h *AdminHandler) ResetTables(w http.ResponseWriter, r *http.Request) {
	if err := database.ResetSchema(r.Context(), h.db); err != nil {
		h.logger.Error("schema reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete tables.")
		return
	}

	h.logger.Warn("schema reset", "remote_addr", r.RemoteAddr)
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Tables deleted successfully."})
}
