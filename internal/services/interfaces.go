package services

import (
	"context"
	"io"
	"time"

	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/ranking"
)

// Broadcaster defines the interface for notifying clients about committed changes
type Broadcaster interface {
	BroadcastRecordsChanged(reason string, count int)
}

// Recorder receives operational measurements from the services
type Recorder interface {
	RecordMutation(op string)
	RecordStoreLatency(op string, d time.Duration)
	RecordImportRows(outcome string, n int)
	RecordRestore(outcome string)
}

// SchemaServicer defines the interface for metric schema operations
type SchemaServicer interface {
	GetSchema(ctx context.Context) ([]models.SportConfig, error)
	SaveSchema(ctx context.Context, sports []models.SportConfig) error
	ResetToDefault(ctx context.Context) error
	GetMetrics(ctx context.Context, sportID models.SportID) ([]models.Metric, error)
	SportIDs(ctx context.Context) ([]models.SportID, error)
}

// RecordServicer defines the interface for candidate record operations
type RecordServicer interface {
	List(ctx context.Context) ([]models.Candidate, error)
	Get(ctx context.Context, id string) (*models.Candidate, error)
	Add(ctx context.Context, c models.Candidate) (*models.Candidate, error)
	AddMany(ctx context.Context, list []models.Candidate) ([]models.Candidate, error)
	Update(ctx context.Context, c models.Candidate) error
	Delete(ctx context.Context, id string) error
	Persist(ctx context.Context, all []models.Candidate) error
	Restore(ctx context.Context, all []models.Candidate) error
	Mutate(ctx context.Context, reason string, fn MutateFunc) error
	SaveEvaluation(ctx context.Context, id string, sport models.SportID, ev models.Evaluation) (*models.Candidate, error)
	CandidateQR(ctx context.Context, id string) ([]byte, error)
	Organizations(ctx context.Context) ([]models.Organization, error)
}

// BatchServicer defines the interface for bulk mutations
type BatchServicer interface {
	SetStatus(ctx context.Context, ids []string, status models.Status) (int, error)
	SetStatusChecked(ctx context.Context, ids []string, status models.Status) (int, error)
	IsTransitionAllowed(current, next models.Status) bool
	BlockedTransitions(ctx context.Context, ids []string, status models.Status) ([]string, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
	ApplyEvaluations(ctx context.Context, entries []EvaluationEntry) (int, error)
}

// TransferServicer defines the interface for import, export and backup
type TransferServicer interface {
	ParseImportCSV(r io.Reader) ([]models.ImportRow, error)
	ImportRows(ctx context.Context, rows []models.ImportRow) ([]models.Candidate, error)
	ImportTemplate(ctx context.Context) ([]byte, error)
	ExportSnapshot(ctx context.Context) (*models.Backup, error)
	RestoreSnapshot(ctx context.Context, blob []byte) RestoreResult
	ExportSchema(ctx context.Context) (*models.SchemaBackup, error)
	RestoreSchema(ctx context.Context, blob []byte) RestoreResult
}

// RankingServicer defines the interface for rankings over the current snapshot
type RankingServicer interface {
	Rank(ctx context.Context, opts ranking.Options) ([]ranking.Ranked, error)
	SchoolRankings(ctx context.Context) ([]ranking.SchoolRanking, error)
	TopPerformers(ctx context.Context, n int) ([]ranking.Ranked, error)
	FilterByPerformance(ctx context.Context, sport models.SportID, min, max float64) ([]models.Candidate, error)
}

// StatsServicer defines the interface for roster statistics
type StatsServicer interface {
	GetStats(ctx context.Context) (*Stats, error)
}

// Ensure concrete types implement interfaces
var (
	_ SchemaServicer   = (*SchemaService)(nil)
	_ RecordServicer   = (*RecordService)(nil)
	_ BatchServicer    = (*BatchService)(nil)
	_ TransferServicer = (*TransferService)(nil)
	_ RankingServicer  = (*RankingService)(nil)
	_ StatsServicer    = (*StatsService)(nil)
)

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string)                    {}
func (nopRecorder) RecordStoreLatency(string, time.Duration) {}
func (nopRecorder) RecordImportRows(string, int)             {}
func (nopRecorder) RecordRestore(string)                     {}
