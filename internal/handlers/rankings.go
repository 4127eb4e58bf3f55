package handlers

import (
	"net/http"
	"strings"

	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/ranking"
)

// ==================== Rankings & Stats ====================

// rankingOptions reads sport, school, ageMin, ageMax, ageGroup and limit.
// An age group fills whichever age bound was not given explicitly.
func (h *Handlers) rankingOptions(r *http.Request) (ranking.Options, error) {
	q := r.URL.Query()
	opts := ranking.Options{
		Sport:  models.SportID(strings.TrimSpace(q.Get("sport"))),
		School: strings.TrimSpace(q.Get("school")),
	}
	if opts.Sport != "" {
		if err := h.requireSport(r, opts.Sport); err != nil {
			return opts, err
		}
	}

	var err error
	if opts.AgeMin, err = queryInt(r, "ageMin"); err != nil {
		return opts, err
	}
	if opts.AgeMax, err = queryInt(r, "ageMax"); err != nil {
		return opts, err
	}
	if opts.Limit, err = queryInt(r, "limit"); err != nil {
		return opts, err
	}

	if group := strings.ToUpper(strings.TrimSpace(q.Get("ageGroup"))); group != "" {
		limits := ranking.AgeGroupLimits(group)
		if opts.AgeMin == 0 {
			opts.AgeMin = limits.Min
		}
		if opts.AgeMax == 0 {
			opts.AgeMax = limits.Max
		}
	}
	if opts.AgeMin > 0 && opts.AgeMax > 0 && opts.AgeMin > opts.AgeMax {
		return opts, BadRequest("ageMin must not exceed ageMax")
	}
	return opts, nil
}

func (h *Handlers) handleRankings(w http.ResponseWriter, r *http.Request) {
	opts, err := h.rankingOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}
	ranked, err := h.Rankings.Rank(r.Context(), opts)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ranked)
}

func (h *Handlers) handleSchoolRankings(w http.ResponseWriter, r *http.Request) {
	schools, err := h.Rankings.SchoolRankings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, schools)
}

func (h *Handlers) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, err)
		return
	}
	top, err := h.Rankings.TopPerformers(r.Context(), n)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, top)
}

func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetStats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}
