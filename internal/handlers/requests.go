package handlers

import (
	"strings"

	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/services"
)

// CandidateRequest is the body of a candidate create or update
type CandidateRequest struct {
	Name          string         `json:"name"`
	DateOfBirth   string         `json:"dateOfBirth"`
	SchoolName    string         `json:"schoolName"`
	SelectedSport models.SportID `json:"selectedSport"`
	Status        models.Status  `json:"status,omitempty"`
}

func (req CandidateRequest) toCandidate(id string) models.Candidate {
	return models.Candidate{
		ID:            id,
		Name:          req.Name,
		DateOfBirth:   req.DateOfBirth,
		SchoolName:    req.SchoolName,
		SelectedSport: models.SportID(strings.ToLower(strings.TrimSpace(string(req.SelectedSport)))),
		Status:        req.Status,
	}
}

// EvaluationRequest is the body of a single evaluation save
type EvaluationRequest struct {
	Scores   map[string]float64 `json:"scores"`
	Comments string             `json:"comments"`
}

// SchemaRequest is the body of a schema save
type SchemaRequest struct {
	Sports []models.SportConfig `json:"sports"`
}

// BatchStatusRequest moves candidates to a new status
type BatchStatusRequest struct {
	IDs    []string      `json:"ids"`
	Status models.Status `json:"status"`
	// Force skips the transition check
	Force bool `json:"force,omitempty"`
}

// BatchDeleteRequest removes candidates
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchEvaluationsRequest applies one evaluation per candidate
type BatchEvaluationsRequest struct {
	Entries []services.EvaluationEntry `json:"entries"`
}
