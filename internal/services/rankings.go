package services

import (
	"context"
	"time"

	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/ranking"
)

// RankingService runs the ranking engine over the current snapshot and schema
type RankingService struct {
	log     logger.Logger
	records RecordServicer
	schema  SchemaServicer
	now     func() time.Time
}

// NewRankingService creates a new RankingService
func NewRankingService(log logger.Logger, records RecordServicer, schema SchemaServicer) *RankingService {
	return &RankingService{log: log, records: records, schema: schema, now: time.Now}
}

// SetClock overrides the time source used for age calculations (for testing)
func (s *RankingService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *RankingService) snapshot(ctx context.Context) (*ranking.Engine, []models.Candidate, error) {
	sports, err := s.schema.GetSchema(ctx)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.records.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ranking.NewEngine(sports, s.now), list, nil
}

// Rank orders the candidates by score with the given filters
func (s *RankingService) Rank(ctx context.Context, opts ranking.Options) ([]ranking.Ranked, error) {
	engine, list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Rank(list, opts), nil
}

// SchoolRankings averages overall scores per school
func (s *RankingService) SchoolRankings(ctx context.Context) ([]ranking.SchoolRanking, error) {
	engine, list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return engine.SchoolRankings(list), nil
}

// TopPerformers returns the n best candidates by overall score
func (s *RankingService) TopPerformers(ctx context.Context, n int) ([]ranking.Ranked, error) {
	engine, list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return engine.TopPerformers(list, n), nil
}

// FilterByPerformance keeps candidates whose sport score lies within [min, max]
func (s *RankingService) FilterByPerformance(ctx context.Context, sport models.SportID, min, max float64) ([]models.Candidate, error) {
	engine, list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := engine.FilterByPerformance(list, sport, min, max)
	if out == nil {
		out = []models.Candidate{}
	}
	return out, nil
}
