package services

import (
	"context"
	"sort"
	"time"

	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/ranking"
)

// SchoolStats counts the candidates of one school
type SchoolStats struct {
	School     string                 `json:"school"`
	Total      int                    `json:"total"`
	Pending    int                    `json:"pending"`
	Selected   int                    `json:"selected"`
	Eliminated int                    `json:"eliminated"`
	BySport    map[models.SportID]int `json:"bySport"`
}

// Stats summarises the roster
type Stats struct {
	Total      int                    `json:"total"`
	Evaluated  int                    `json:"evaluated"`
	ByStatus   map[models.Status]int  `json:"byStatus"`
	BySport    map[models.SportID]int `json:"bySport"`
	ByAgeGroup map[string]int         `json:"byAgeGroup"`
	Schools    []SchoolStats          `json:"schools"`
}

// StatsService computes roster statistics
type StatsService struct {
	log     logger.Logger
	records RecordServicer
	now     func() time.Time
}

// NewStatsService creates a new StatsService
func NewStatsService(log logger.Logger, records RecordServicer) *StatsService {
	return &StatsService{log: log, records: records, now: time.Now}
}

// SetClock overrides the time source used for age groups (for testing)
func (s *StatsService) SetClock(now func() time.Time) {
	s.now = now
}

// GetStats counts candidates by status, sport, age group and school.
// Schools are ordered by name.
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	list, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := &Stats{
		Total: len(list),
		ByStatus: map[models.Status]int{
			models.StatusPending:    0,
			models.StatusSelected:   0,
			models.StatusEliminated: 0,
		},
		BySport:    map[models.SportID]int{},
		ByAgeGroup: map[string]int{},
		Schools:    []SchoolStats{},
	}
	for _, g := range ranking.AgeGroups {
		stats.ByAgeGroup[g] = 0
	}

	schools := map[string]*SchoolStats{}
	for _, c := range list {
		stats.ByStatus[c.Status]++
		stats.BySport[c.SelectedSport]++
		if group := ranking.AgeGroup(c.DateOfBirth, now); group != "" {
			stats.ByAgeGroup[group]++
		}
		if _, ok := c.Evaluations[c.SelectedSport]; ok {
			stats.Evaluated++
		}

		school, ok := schools[c.SchoolName]
		if !ok {
			school = &SchoolStats{School: c.SchoolName, BySport: map[models.SportID]int{}}
			schools[c.SchoolName] = school
		}
		school.Total++
		school.BySport[c.SelectedSport]++
		switch c.Status {
		case models.StatusSelected:
			school.Selected++
		case models.StatusEliminated:
			school.Eliminated++
		default:
			school.Pending++
		}
	}

	for _, school := range schools {
		stats.Schools = append(stats.Schools, *school)
	}
	sort.Slice(stats.Schools, func(i, j int) bool {
		return stats.Schools[i].School < stats.Schools[j].School
	})
	return stats, nil
}
