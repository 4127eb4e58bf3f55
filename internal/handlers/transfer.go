package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/abrezinsky/talentscout/internal/services"
)

// ==================== Import ====================

// multipartOverhead is the room left for part headers and boundaries
const multipartOverhead = 1 << 20

// importReader returns the CSV payload, either the "file" part of a
// multipart upload or the raw request body. A file over maxUploadSize is
// rejected, never truncated.
func importReader(w http.ResponseWriter, r *http.Request) (io.Reader, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		body, err := readBody(w, r, maxUploadSize)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(body), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		if isTooLarge(err) {
			return nil, PayloadTooLarge(maxUploadSize)
		}
		return nil, BadRequest("Invalid multipart upload: " + err.Error())
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, BadRequest("Missing file field")
	}
	defer file.Close()
	if header.Size > maxUploadSize {
		return nil, PayloadTooLarge(maxUploadSize)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, BadRequest("Failed to read upload")
	}
	return bytes.NewReader(data), nil
}

func (h *Handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	src, err := importReader(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	rows, err := h.Transfer.ParseImportCSV(src)
	if err != nil {
		respondError(w, err)
		return
	}
	added, err := h.Transfer.ImportRows(r.Context(), rows)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, ImportResponse{Count: len(added), Candidates: added})
}

func (h *Handlers) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := h.Transfer.ImportTemplate(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondBytes(w, "text/csv; charset=utf-8", "talentscout-import-template.csv", data)
}

// ==================== Backup & Restore ====================

func (h *Handlers) handleBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.Transfer.ExportSnapshot(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	name := fmt.Sprintf("talentscout-backup-%s.json", backup.Timestamp.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	respondOK(w, backup)
}

func (h *Handlers) handleSchemaBackup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.Transfer.ExportSchema(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	name := fmt.Sprintf("talentscout-schema-%s.json", backup.Timestamp.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	respondOK(w, backup)
}

func (h *Handlers) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.restore(w, r, h.Transfer.RestoreSnapshot)
}

func (h *Handlers) handleSchemaRestore(w http.ResponseWriter, r *http.Request) {
	h.restore(w, r, h.Transfer.RestoreSchema)
}

// restore runs fn over the request body and reports its RestoreResult.
// Rejected input answers 400, a failed write 500.
func (h *Handlers) restore(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, blob []byte) services.RestoreResult) {
	body, err := readBody(w, r, maxUploadSize)
	if err != nil {
		respondError(w, err)
		return
	}
	result := fn(r.Context(), body)
	switch {
	case result.Success:
		respondOK(w, result)
	case result.Reason == services.ReasonPersistence:
		respondJSON(w, http.StatusInternalServerError, result)
	default:
		respondJSON(w, http.StatusBadRequest, result)
	}
}
