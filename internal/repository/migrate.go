package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abrezinsky/talentscout/internal/models"
)

// MigrationState is the persisted progress of the flat-store migration.
type MigrationState string

const (
	MigrationNotStarted MigrationState = "not-started"
	MigrationMigrating  MigrationState = "migrating"
	MigrationComplete   MigrationState = "complete"
)

// MigrationReport summarizes one Migrator.Run call.
type MigrationReport struct {
	Skipped       bool `json:"skipped"`
	Resumed       bool `json:"resumed"`
	Candidates    int  `json:"candidates"`
	Organizations int  `json:"organizations"`
	Schema        bool `json:"schema"`
}

// Migrator copies everything from the flat key-value store into the
// structured store once. Its state lives in the target's settings under
// MigrationStateKey, so running it on every startup is safe.
type Migrator struct {
	source RecordStore
	target RecordStore
}

// NewMigrator creates a migrator from source (flat) into target (structured)
func NewMigrator(source, target RecordStore) *Migrator {
	return &Migrator{source: source, target: target}
}

// State returns the persisted migration state
func (m *Migrator) State(ctx context.Context) (MigrationState, error) {
	value, err := m.target.GetSetting(ctx, MigrationStateKey)
	if errors.Is(err, ErrNotFound) {
		return MigrationNotStarted, nil
	}
	if err != nil {
		return "", err
	}
	switch s := MigrationState(value); s {
	case MigrationNotStarted, MigrationMigrating, MigrationComplete:
		return s, nil
	default:
		return "", fmt.Errorf("unknown migration state %q", value)
	}
}

// Run performs the migration unless it already completed. Candidates are
// upserted by id, so an interrupted run in state migrating is re-run safely.
// The caller must ensure no mutation runs concurrently.
func (m *Migrator) Run(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	state, err := m.State(ctx)
	if err != nil {
		return report, err
	}
	switch state {
	case MigrationComplete:
		report.Skipped = true
		return report, nil
	case MigrationMigrating:
		report.Resumed = true
	}

	if err := m.target.SetSetting(ctx, MigrationStateKey, string(MigrationMigrating)); err != nil {
		return report, fmt.Errorf("mark migrating: %w", err)
	}

	candidates, err := m.source.ListCandidates(ctx)
	if err != nil {
		return report, fmt.Errorf("read flat candidates: %w", err)
	}
	for _, c := range candidates {
		c = normalizeLegacy(c)
		if err := m.target.PutCandidate(ctx, c); err != nil {
			return report, fmt.Errorf("copy candidate %s: %w", c.ID, err)
		}
		report.Candidates++
	}

	schema, err := m.legacySchema(ctx)
	if err != nil {
		return report, err
	}
	if schema != "" {
		if err := m.target.SetSetting(ctx, SchemaKey, schema); err != nil {
			return report, fmt.Errorf("copy schema: %w", err)
		}
		report.Schema = true
	}

	orgs, err := m.source.ListOrganizations(ctx)
	if err != nil {
		return report, fmt.Errorf("read flat organizations: %w", err)
	}
	schools, err := m.legacySchools(ctx)
	if err != nil {
		return report, err
	}
	for _, name := range schools {
		orgs = append(orgs, models.Organization{Name: name, Custom: true})
	}
	for _, org := range orgs {
		created, err := m.target.AddOrganization(ctx, org.Name, org.Custom)
		if err != nil {
			return report, fmt.Errorf("copy organization %q: %w", org.Name, err)
		}
		if created {
			report.Organizations++
		}
	}

	if err := m.source.ReplaceCandidates(ctx, nil); err != nil {
		return report, fmt.Errorf("clear flat candidates: %w", err)
	}
	for _, key := range []string{SchemaKey, LegacyConfigKey, LegacySchoolsKey} {
		if err := m.source.DeleteSetting(ctx, key); err != nil {
			return report, fmt.Errorf("clear flat %s: %w", key, err)
		}
	}

	if err := m.target.SetSetting(ctx, MigrationStateKey, string(MigrationComplete)); err != nil {
		return report, fmt.Errorf("mark complete: %w", err)
	}
	return report, nil
}

// normalizeLegacy applies the record write rules to a flat-layout record,
// which may predate status and selectedSport. A missing sport is inferred
// when exactly one sport was evaluated; otherwise it stays empty and every
// evaluation is kept.
func normalizeLegacy(c models.Candidate) models.Candidate {
	if c.Status == "" {
		c.Status = models.StatusPending
	}
	c.Rank = nil
	c.EnsureMaps()
	if c.SelectedSport == "" && len(c.Evaluations) == 1 {
		for sport := range c.Evaluations {
			c.SelectedSport = sport
		}
	}
	c.PruneEvaluations()
	return c
}

// legacySchema returns the schema document to carry over: the current
// document when present, else the older sport to metrics map, which the
// schema service decodes on read. Empty means neither exists.
func (m *Migrator) legacySchema(ctx context.Context) (string, error) {
	for _, key := range []string{SchemaKey, LegacyConfigKey} {
		raw, err := m.source.GetSetting(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read flat %s: %w", key, err)
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrCorruptStore, key, err)
		}
		return raw, nil
	}
	return "", nil
}

// legacySchools returns the custom school names of the flat layout
func (m *Migrator) legacySchools(ctx context.Context) ([]string, error) {
	raw, err := m.source.GetSetting(ctx, LegacySchoolsKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read flat %s: %w", LegacySchoolsKey, err)
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, LegacySchoolsKey, err)
	}
	return names, nil
}
