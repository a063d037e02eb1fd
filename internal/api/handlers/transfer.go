package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hugh/contact-keeper/internal/api/dto"
	"github.com/hugh/contact-keeper/internal/api/middleware"
	"github.com/hugh/contact-keeper/internal/transfer"
)

// UploadField is the multipart form field carrying the CSV file.
const UploadField = "file"

var errNoUpload = errors.New("no file part")

type TransferHandler struct {
	importer *transfer.Importer
	exporter *transfer.Exporter
	maxBytes int64
	logger   *slog.Logger
}

func NewTransferHandler(importer *transfer.Importer, exporter *transfer.Exporter, maxBytes int64, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{
		importer: importer,
		exporter: exporter,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Upload imports a CSV sent as the "file" part of a multipart body. The part
// is streamed straight into the parser.
func (h *TransferHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if r.ContentLength > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	part, err := h.filePart(r)
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "File upload is required")
		return
	}
	defer part.Close()

	imported, err := h.importer.Import(r.Context(), userID, part)
	if err != nil {
		var rowErr *transfer.RowError
		switch {
		case isTooLarge(err):
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		case errors.As(err, &rowErr):
			writeError(w, http.StatusBadRequest, rowErr.Error())
		case errors.Is(err, transfer.ErrEmptyFile),
			errors.Is(err, transfer.ErrMissingColumns),
			errors.Is(err, transfer.ErrNoRows),
			errors.Is(err, transfer.ErrTooManyRows):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("contact upload failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to upload contacts")
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.UploadResponse{
		Message:  "Contacts uploaded successfully",
		Imported: imported,
	})
}

func (h *TransferHandler) filePart(r *http.Request) (io.ReadCloser, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoUpload
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == UploadField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Download streams the caller's contacts as an XLSX attachment. The workbook
// is built before any header is written so failures still get a JSON 500.
func (h *TransferHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	f, n, err := h.exporter.Workbook(r.Context(), userID)
	if err != nil {
		h.logger.Error("contact export failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to export contacts")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", transfer.XLSXContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+transfer.ExportFilename)
	w.WriteHeader(http.StatusOK)

	if err := f.Write(w); err != nil {
		h.logger.Warn("contact export interrupted", "user_id", userID, "error", err)
		return
	}
	h.logger.Debug("contacts exported", "user_id", userID, "count", n)
}
