package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/services"
)

// ==================== Metric Schema ====================

func (h *Handlers) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	sports, err := h.Schema.GetSchema(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, sports)
}

func (h *Handlers) handleSaveSchema(w http.ResponseWriter, r *http.Request) {
	var req SchemaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Sports == nil {
		respondError(w, BadRequest("sports is required"))
		return
	}
	if msgs := services.ValidateSchema(req.Sports); len(msgs) > 0 {
		respondError(w, errors.Validations("invalid metric schema", msgs))
		return
	}
	if err := h.Schema.SaveSchema(r.Context(), req.Sports); err != nil {
		respondError(w, err)
		return
	}
	h.handleGetSchema(w, r)
}

func (h *Handlers) handleResetSchema(w http.ResponseWriter, r *http.Request) {
	if err := h.Schema.ResetToDefault(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	h.handleGetSchema(w, r)
}

func (h *Handlers) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	sportID := models.SportID(chi.URLParam(r, "sportID"))
	if err := h.requireSport(r, sportID); err != nil {
		respondError(w, err)
		return
	}
	metrics, err := h.Schema.GetMetrics(r.Context(), sportID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, metrics)
}

// requireSport returns an UnknownSportError when id is not in the schema
func (h *Handlers) requireSport(r *http.Request, id models.SportID) error {
	ids, err := h.Schema.SportIDs(r.Context())
	if err != nil {
		return err
	}
	for _, known := range ids {
		if known == id {
			return nil
		}
	}
	return &services.UnknownSportError{Sport: string(id)}
}
