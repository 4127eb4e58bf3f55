package services

import (
	"context"
	"fmt"
	"time"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
)

// EvaluationEntry pairs a candidate id with the evaluation to apply
type EvaluationEntry struct {
	ID         string            `json:"id"`
	Evaluation models.Evaluation `json:"evaluation"`
}

// BatchService handles bulk mutations. Each operation reads one snapshot,
// changes it in memory and persists it with a single write.
type BatchService struct {
	log     logger.Logger
	records RecordServicer
	schema  SchemaServicer
	now     func() time.Time
}

// NewBatchService creates a new BatchService
func NewBatchService(log logger.Logger, records RecordServicer, schema SchemaServicer) *BatchService {
	return &BatchService{log: log, records: records, schema: schema, now: time.Now}
}

// SetClock overrides the time source (for testing)
func (s *BatchService) SetClock(now func() time.Time) {
	s.now = now
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// TransitionAllowed reports whether a candidate may move from current to
// next. Only eliminated to selected is refused.
func TransitionAllowed(current, next models.Status) bool {
	return !(current == models.StatusEliminated && next == models.StatusSelected)
}

// IsTransitionAllowed reports whether a candidate may move from current to next
func (s *BatchService) IsTransitionAllowed(current, next models.Status) bool {
	return TransitionAllowed(current, next)
}

// BlockedTransitions returns the ids among ids whose current status cannot
// move to status. Unknown ids are ignored.
func (s *BatchService) BlockedTransitions(ctx context.Context, ids []string, status models.Status) ([]string, error) {
	list, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	want := idSet(ids)
	blocked := []string{}
	for _, c := range list {
		if want[c.ID] && !s.IsTransitionAllowed(c.Status, status) {
			blocked = append(blocked, c.ID)
		}
	}
	return blocked, nil
}

// SetStatus moves every listed candidate to status and stamps the change
// time. It does not consult IsTransitionAllowed. It returns how many
// candidates were updated.
func (s *BatchService) SetStatus(ctx context.Context, ids []string, status models.Status) (int, error) {
	return s.setStatus(ctx, ids, status, false)
}

// SetStatusChecked is SetStatus that refuses the whole batch with a
// *BlockedTransitionError when any listed candidate cannot make the move.
// The check and the write see the same snapshot.
func (s *BatchService) SetStatusChecked(ctx context.Context, ids []string, status models.Status) (int, error) {
	return s.setStatus(ctx, ids, status, true)
}

func (s *BatchService) setStatus(ctx context.Context, ids []string, status models.Status, checked bool) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoCandidateIDs
	}
	if !status.Valid() {
		return 0, errors.Validationf("invalid status %q", status)
	}

	want := idSet(ids)
	var updated int
	err := s.records.Mutate(ctx, "status", func(list []models.Candidate) ([]models.Candidate, int, error) {
		if checked {
			var blocked []string
			for _, c := range list {
				if want[c.ID] && !TransitionAllowed(c.Status, status) {
					blocked = append(blocked, c.ID)
				}
			}
			if len(blocked) > 0 {
				return nil, 0, &BlockedTransitionError{Status: status, IDs: blocked}
			}
		}
		now := s.now().UTC()
		for i := range list {
			if !want[list[i].ID] {
				continue
			}
			list[i].Status = status
			ts := now
			list[i].StatusUpdatedAt = &ts
			updated++
		}
		return list, updated, nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Status updated", "status", status, "requested", len(ids), "updated", updated)
	return updated, nil
}

// DeleteMany removes every listed candidate and returns how many were removed
func (s *BatchService) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoCandidateIDs
	}

	want := idSet(ids)
	var removed int
	err := s.records.Mutate(ctx, "delete", func(list []models.Candidate) ([]models.Candidate, int, error) {
		kept := make([]models.Candidate, 0, len(list))
		for _, c := range list {
			if want[c.ID] {
				removed++
				continue
			}
			kept = append(kept, c)
		}
		return kept, removed, nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Candidates deleted", "requested", len(ids), "deleted", removed)
	return removed, nil
}

// ApplyEvaluations replaces the evaluations of each listed candidate with a
// single entry for its selected sport, dated now and appended to its
// history. Every entry is validated before anything is written; a single
// invalid entry rejects the whole batch.
func (s *BatchService) ApplyEvaluations(ctx context.Context, entries []EvaluationEntry) (int, error) {
	if len(entries) == 0 {
		return 0, ErrNoCandidateIDs
	}

	schema, err := s.schema.GetSchema(ctx)
	if err != nil {
		return 0, err
	}
	metrics := make(map[models.SportID][]models.Metric, len(schema))
	for _, sport := range schema {
		metrics[sport.ID] = sport.Metrics
	}

	byID := make(map[string]models.Evaluation, len(entries))
	for _, e := range entries {
		byID[e.ID] = e.Evaluation
	}

	var applied int
	err = s.records.Mutate(ctx, "evaluations", func(list []models.Candidate) ([]models.Candidate, int, error) {
		var msgs []string
		for _, c := range list {
			ev, ok := byID[c.ID]
			if !ok {
				continue
			}
			for _, m := range ValidateEvaluation(metrics[c.SelectedSport], ev) {
				msgs = append(msgs, fmt.Sprintf("%s: %s", c.Name, m))
			}
		}
		if len(msgs) > 0 {
			return nil, 0, errors.Validations("invalid evaluations", msgs)
		}

		now := s.now().UTC()
		for i := range list {
			ev, ok := byID[list[i].ID]
			if !ok {
				continue
			}
			ev.Date = now
			sport := list[i].SelectedSport
			list[i].EnsureMaps()
			list[i].Evaluations = map[models.SportID]models.Evaluation{sport: ev}
			list[i].EvaluationHistory[sport] = append(list[i].EvaluationHistory[sport], ev)
			applied++
		}
		return list, applied, nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Evaluations applied", "requested", len(entries), "applied", applied)
	return applied, nil
}
