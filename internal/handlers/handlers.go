package handlers

import (
	"net/http"

	"github.com/abrezinsky/talentscout/internal/metrics"
	"github.com/abrezinsky/talentscout/internal/services"
	"github.com/abrezinsky/talentscout/internal/websocket"
)

// maxUploadSize bounds import and restore bodies
const maxUploadSize = 10 << 20

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Schema   services.SchemaServicer
	Records  services.RecordServicer
	Batch    services.BatchServicer
	Transfer services.TransferServicer
	Rankings services.RankingServicer
	Stats    services.StatsServicer
	Hub      *websocket.Hub
	Metrics  *metrics.Manager
	Log      HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies. hub and m may
// be nil, in which case /ws and /metrics are not mounted.
func New(
	schema services.SchemaServicer,
	records services.RecordServicer,
	batch services.BatchServicer,
	transfer services.TransferServicer,
	rankings services.RankingServicer,
	stats services.StatsServicer,
	hub *websocket.Hub,
	m *metrics.Manager,
	log HTTPLogger,
) *Handlers {
	if log == nil {
		log = NoopHTTPLogger{}
	}
	return &Handlers{
		Schema:   schema,
		Records:  records,
		Batch:    batch,
		Transfer: transfer,
		Rankings: rankings,
		Stats:    stats,
		Hub:      hub,
		Metrics:  m,
		Log:      log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	list, err := h.Records.List(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	resp := HealthResponse{Status: "ok", Candidates: len(list)}
	if h.Hub != nil {
		resp.WSClients = h.Hub.ClientCount()
	}
	respondOK(w, resp)
}
