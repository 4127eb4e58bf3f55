package models

import (
	"regexp"
	"strings"
	"time"
)

// SportID identifies a sport in the metric schema. The set is open; the
// schema is the registry of valid ids.
type SportID string

// Built-in sport ids. They can never be removed from the schema.
const (
	SportFootball  SportID = "football"
	SportAthletics SportID = "athletics"
)

var sportIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Valid reports whether id is a well-formed sport identifier.
func (id SportID) Valid() bool {
	return sportIDPattern.MatchString(string(id))
}

// Status is the selection state of a candidate.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSelected   Status = "selected"
	StatusEliminated Status = "eliminated"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSelected, StatusEliminated:
		return true
	}
	return false
}

// DateLayout is the format of Candidate.DateOfBirth.
const DateLayout = "2006-01-02"

// Evaluation is a single scoring session for one sport.
type Evaluation struct {
	Date     time.Time          `json:"date"`
	Scores   map[string]float64 `json:"scores"`
	Comments string             `json:"comments"`
}

// Candidate represents an athlete tracked through evaluation and selection
type Candidate struct {
	ID                string                   `json:"id"`
	Name              string                   `json:"name"`
	DateOfBirth       string                   `json:"dateOfBirth"`
	SchoolName        string                   `json:"schoolName"`
	SelectedSport     SportID                  `json:"selectedSport"`
	Status            Status                   `json:"status"`
	Rank              *int                     `json:"rank,omitempty"` // derived by ranking, never stored
	StatusUpdatedAt   *time.Time               `json:"statusUpdatedAt,omitempty"`
	Evaluations       map[SportID]Evaluation   `json:"evaluations"`
	EvaluationHistory map[SportID][]Evaluation `json:"evaluationHistory"`
	CreatedAt         time.Time                `json:"createdAt"`
}

// BirthDate parses DateOfBirth. ok is false when the stored value is malformed.
func (c *Candidate) BirthDate() (time.Time, bool) {
	t, err := time.Parse(DateLayout, c.DateOfBirth)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PruneEvaluations drops every evaluation that is not for the selected sport.
// History is left untouched. A record without a selected sport keeps all.
func (c *Candidate) PruneEvaluations() {
	if c.SelectedSport == "" {
		return
	}
	for sport := range c.Evaluations {
		if sport != c.SelectedSport {
			delete(c.Evaluations, sport)
		}
	}
}

// EnsureMaps replaces nil maps with empty ones so JSON output is stable.
func (c *Candidate) EnsureMaps() {
	if c.Evaluations == nil {
		c.Evaluations = map[SportID]Evaluation{}
	}
	if c.EvaluationHistory == nil {
		c.EvaluationHistory = map[SportID][]Evaluation{}
	}
}

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Rank != nil {
		r := *c.Rank
		out.Rank = &r
	}
	if c.StatusUpdatedAt != nil {
		ts := *c.StatusUpdatedAt
		out.StatusUpdatedAt = &ts
	}
	out.Evaluations = make(map[SportID]Evaluation, len(c.Evaluations))
	for sport, ev := range c.Evaluations {
		out.Evaluations[sport] = ev.clone()
	}
	out.EvaluationHistory = make(map[SportID][]Evaluation, len(c.EvaluationHistory))
	for sport, list := range c.EvaluationHistory {
		cp := make([]Evaluation, len(list))
		for i, ev := range list {
			cp[i] = ev.clone()
		}
		out.EvaluationHistory[sport] = cp
	}
	return out
}

func (e Evaluation) clone() Evaluation {
	scores := make(map[string]float64, len(e.Scores))
	for k, v := range e.Scores {
		scores[k] = v
	}
	e.Scores = scores
	return e
}

// Metric is one scored criterion of a sport
type Metric struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Min         float64 `json:"min" yaml:"min"`
	Max         float64 `json:"max" yaml:"max"`
}

// SportConfig describes a sport and its ordered metrics
type SportConfig struct {
	ID       SportID  `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Icon     string   `json:"icon" yaml:"icon"`
	Metrics  []Metric `json:"metrics" yaml:"metrics"`
	IsCustom bool     `json:"isCustom" yaml:"isCustom"`
}

// Organization is a school or club candidates belong to
type Organization struct {
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
}

// Backup is the full record snapshot written by export.
type Backup struct {
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Students  []Candidate `json:"students"`
}

// SchemaBackup is the sibling blob carrying the metric schema.
type SchemaBackup struct {
	Version   string        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Sports    []SportConfig `json:"sports"`
}

// ImportRow is one parsed line of a tabular import file.
// Line is its 1-based line in the source file, zero when unknown.
type ImportRow struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	SchoolName  string `json:"schoolName"`
	Sport       string `json:"sport"`
	Line        int    `json:"line,omitempty"`
}

// Normalize trims every field.
func (r ImportRow) Normalize() ImportRow {
	return ImportRow{
		Name:        strings.TrimSpace(r.Name),
		DateOfBirth: strings.TrimSpace(r.DateOfBirth),
		SchoolName:  strings.TrimSpace(r.SchoolName),
		Sport:       strings.TrimSpace(r.Sport),
		Line:        r.Line,
	}
}

// Empty reports whether every field is blank.
func (r ImportRow) Empty() bool {
	return r.Name == "" && r.DateOfBirth == "" && r.SchoolName == "" && r.Sport == ""
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
