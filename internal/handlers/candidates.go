package handlers

import (
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/talentscout/internal/models"
)

// ==================== Candidates ====================

// handleListCandidates returns every candidate, optionally narrowed by
// status, school and sport. minScore/maxScore filter by the mean score of
// sport and require it.
func (h *Handlers) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sport := models.SportID(strings.TrimSpace(q.Get("sport")))
	status := models.Status(strings.TrimSpace(q.Get("status")))
	school := strings.TrimSpace(q.Get("school"))

	if status != "" && !status.Valid() {
		respondError(w, BadRequest("Invalid status parameter"))
		return
	}

	var list []models.Candidate
	if q.Has("minScore") || q.Has("maxScore") {
		if sport == "" {
			respondError(w, BadRequest("sport is required when filtering by score"))
			return
		}
		if err := h.requireSport(r, sport); err != nil {
			respondError(w, err)
			return
		}
		min, err := queryFloat(r, "minScore", math.Inf(-1))
		if err != nil {
			respondError(w, err)
			return
		}
		max, err := queryFloat(r, "maxScore", math.Inf(1))
		if err != nil {
			respondError(w, err)
			return
		}
		if list, err = h.Rankings.FilterByPerformance(r.Context(), sport, min, max); err != nil {
			respondError(w, err)
			return
		}
	} else {
		var err error
		if list, err = h.Records.List(r.Context()); err != nil {
			respondError(w, err)
			return
		}
	}

	out := make([]models.Candidate, 0, len(list))
	for _, c := range list {
		if status != "" && c.Status != status {
			continue
		}
		if school != "" && c.SchoolName != school {
			continue
		}
		if sport != "" && c.SelectedSport != sport {
			continue
		}
		out = append(out, c)
	}
	respondOK(w, out)
}

func (h *Handlers) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	created, err := h.Records.Add(r.Context(), req.toCandidate(""))
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, created)
}

func (h *Handlers) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.Records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, c)
}

// handleUpdateCandidate applies the update and returns the stored record.
// Updating an unknown id writes nothing and answers 404.
func (h *Handlers) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req CandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Records.Update(r.Context(), req.toCandidate(id)); err != nil {
		respondError(w, err)
		return
	}
	h.handleGetCandidate(w, r)
}

func (h *Handlers) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	if err := h.Records.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleSaveEvaluation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sport := models.SportID(chi.URLParam(r, "sportID"))

	var req EvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.requireSport(r, sport); err != nil {
		respondError(w, err)
		return
	}

	c, err := h.Records.SaveEvaluation(r.Context(), id, sport, models.Evaluation{
		Scores:   req.Scores,
		Comments: req.Comments,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, c)
}

func (h *Handlers) handleCandidateQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Records.CandidateQR(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondBytes(w, "image/png", "", png)
}

func (h *Handlers) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Records.Organizations(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, orgs)
}
