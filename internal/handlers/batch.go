package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/services"
)

// ==================== Batch Operations ====================

// handleBatchStatus refuses with 409 and the offending ids when any
// candidate would move from eliminated to selected, unless force is set.
func (h *Handlers) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	var req BatchStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if len(req.IDs) > 0 && !req.Status.Valid() {
		respondError(w, errors.Validationf("invalid status %q", req.Status))
		return
	}

	setStatus := h.Batch.SetStatusChecked
	if req.Force {
		setStatus = h.Batch.SetStatus
	}
	n, err := setStatus(r.Context(), req.IDs, req.Status)
	var blocked *services.BlockedTransitionError
	if stderrors.As(err, &blocked) {
		respondJSON(w, http.StatusConflict, BlockedTransitionResponse{
			Code:    ErrCodeConflict,
			Message: "Eliminated candidates cannot be selected",
			Status:  blocked.Status,
			Blocked: blocked.IDs,
		})
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, CountResponse{Count: n})
}

func (h *Handlers) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	n, err := h.Batch.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, CountResponse{Count: n})
}

func (h *Handlers) handleBatchEvaluations(w http.ResponseWriter, r *http.Request) {
	var req BatchEvaluationsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	n, err := h.Batch.ApplyEvaluations(r.Context(), req.Entries)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, CountResponse{Count: n})
}
