package handlers

import (
	"github.com/abrezinsky/talentscout/internal/models"
)

// CountResponse reports how many records an operation touched
type CountResponse struct {
	Count int `json:"count"`
}

// BlockedTransitionResponse lists candidates whose status cannot change
type BlockedTransitionResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"error"`
	Status  models.Status `json:"status"`
	Blocked []string      `json:"blocked"`
}

// ImportResponse describes a successful import
type ImportResponse struct {
	Count      int                `json:"count"`
	Candidates []models.Candidate `json:"candidates"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status     string `json:"status"`
	Candidates int    `json:"candidates"`
	WSClients  int    `json:"wsClients"`
}
