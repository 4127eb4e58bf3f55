// Package ranking scores candidates against the metric schema and orders
// them. Everything here is a pure function over an explicit snapshot.
package ranking

import (
	"sort"
	"time"

	"github.com/abrezinsky/talentscout/internal/models"
)

// Engine computes scores against a fixed schema and clock.
type Engine struct {
	// known[sport] is the set of metric ids defined for sport. A nil map
	// means no schema was given and every score key counts.
	known map[models.SportID]map[string]struct{}
	now   func() time.Time
}

// NewEngine builds an engine for schema. now defaults to time.Now.
func NewEngine(schema []models.SportConfig, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{now: now}
	if schema != nil {
		e.known = make(map[models.SportID]map[string]struct{}, len(schema))
		for _, sport := range schema {
			ids := make(map[string]struct{}, len(sport.Metrics))
			for _, m := range sport.Metrics {
				ids[m.ID] = struct{}{}
			}
			e.known[sport.ID] = ids
		}
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// sportMean is the mean of the known scores of c's evaluation for sport.
// ok is false when there is no evaluation or none of its keys is known.
func (e *Engine) sportMean(c models.Candidate, sport models.SportID) (float64, bool) {
	ev, ok := c.Evaluations[sport]
	if !ok {
		return 0, false
	}

	var known map[string]struct{}
	if e.known != nil {
		known = e.known[sport]
	}

	keys := make([]string, 0, len(ev.Scores))
	for k := range ev.Scores {
		if e.known != nil {
			if _, ok := known[k]; !ok {
				continue
			}
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return 0, false
	}
	sort.Strings(keys)

	var sum float64
	for _, k := range keys {
		sum += ev.Scores[k]
	}
	return sum / float64(len(keys)), true
}

// ScoreOf returns the mean score of c for sport, or 0 when unscored.
// An empty sport yields the overall score.
func (e *Engine) ScoreOf(c models.Candidate, sport models.SportID) float64 {
	if sport == "" {
		return e.OverallScore(c)
	}
	mean, _ := e.sportMean(c, sport)
	return mean
}

// OverallScore is the mean of the per-sport means over every sport c has a
// scored evaluation for, or 0 when there is none.
func (e *Engine) OverallScore(c models.Candidate) float64 {
	sports := make([]string, 0, len(c.Evaluations))
	for sport := range c.Evaluations {
		sports = append(sports, string(sport))
	}
	sort.Strings(sports)

	var sum float64
	var n int
	for _, sport := range sports {
		if mean, ok := e.sportMean(c, models.SportID(sport)); ok {
			sum += mean
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Options filter and limit a ranking. Zero values mean "unset".
type Options struct {
	Sport  models.SportID `json:"sport,omitempty"`
	School string         `json:"school,omitempty"`
	AgeMin int            `json:"ageMin,omitempty"`
	AgeMax int            `json:"ageMax,omitempty"`
	Limit  int            `json:"limit,omitempty"`
}

// Ranked is a candidate with its computed score and 1-based rank.
type Ranked struct {
	Candidate models.Candidate `json:"candidate"`
	Score     float64          `json:"score"`
	Rank      int              `json:"rank"`
}

// Age is the calendar-year difference between now and the birth year.
// ok is false for an unparseable date of birth.
func Age(dob string, now time.Time) (int, bool) {
	birth, err := time.Parse(models.DateLayout, dob)
	if err != nil {
		return 0, false
	}
	return now.Year() - birth.Year(), true
}

// Rank filters records by school and age, then orders them by score
// descending. Equal scores are ordered by id ascending. Ranks are assigned
// by position, starting at 1.
func (e *Engine) Rank(records []models.Candidate, opts Options) []Ranked {
	now := e.now()
	out := make([]Ranked, 0, len(records))
	for _, c := range records {
		if opts.School != "" && c.SchoolName != opts.School {
			continue
		}
		if opts.AgeMin > 0 || opts.AgeMax > 0 {
			age, ok := Age(c.DateOfBirth, now)
			if !ok {
				continue
			}
			if opts.AgeMin > 0 && age < opts.AgeMin {
				continue
			}
			if opts.AgeMax > 0 && age > opts.AgeMax {
				continue
			}
		}
		out = append(out, Ranked{Candidate: c, Score: e.ScoreOf(c, opts.Sport)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Candidate.ID < out[j].Candidate.ID
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	for i := range out {
		rank := i + 1
		out[i].Rank = rank
		out[i].Candidate.Rank = &rank
	}
	return out
}

// TopPerformers returns the n best candidates by overall score.
func (e *Engine) TopPerformers(records []models.Candidate, n int) []Ranked {
	if n <= 0 {
		n = 10
	}
	return e.Rank(records, Options{Limit: n})
}

// FilterByPerformance keeps candidates whose score for sport lies within
// [min, max]. Candidates without a scored evaluation for sport are dropped.
func (e *Engine) FilterByPerformance(records []models.Candidate, sport models.SportID, min, max float64) []models.Candidate {
	var out []models.Candidate
	for _, c := range records {
		mean, ok := e.sportMean(c, sport)
		if !ok {
			continue
		}
		if mean >= min && mean <= max {
			out = append(out, c)
		}
	}
	return out
}

// SchoolRanking is the aggregate overall score of one school.
type SchoolRanking struct {
	School       string  `json:"school"`
	AverageScore float64 `json:"averageScore"`
	StudentCount int     `json:"studentCount"`
}

// SchoolRankings averages the overall score of every candidate per school,
// unscored candidates counting as 0. Sorted by average descending, then by
// school name.
func (e *Engine) SchoolRankings(records []models.Candidate) []SchoolRanking {
	totals := map[string]*SchoolRanking{}
	sums := map[string]float64{}
	for _, c := range records {
		r, ok := totals[c.SchoolName]
		if !ok {
			r = &SchoolRanking{School: c.SchoolName}
			totals[c.SchoolName] = r
		}
		r.StudentCount++
		sums[c.SchoolName] += e.OverallScore(c)
	}

	out := make([]SchoolRanking, 0, len(totals))
	for school, r := range totals {
		r.AverageScore = sums[school] / float64(r.StudentCount)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].School < out[j].School
	})
	return out
}
