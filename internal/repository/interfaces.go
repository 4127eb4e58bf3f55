package repository

import (
	"context"

	"github.com/abrezinsky/talentscout/internal/models"
)

// Well-known keys shared by both backends.
const (
	// RecordsKey holds the candidate array in the flat key-value layout.
	RecordsKey = "talent-scout-data"
	// OrganizationsKey holds the organization list in the flat key-value layout.
	OrganizationsKey = "talent-scout-organizations"
	// LegacyConfigKey holds the flat layout's sport to metric list map.
	LegacyConfigKey = "talent-scout-config"
	// LegacySchoolsKey holds the flat layout's custom school names.
	LegacySchoolsKey = "custom-schools"
	// SchemaKey holds the persisted metric schema document.
	SchemaKey = "metric_schema"
	// MigrationStateKey holds the backend migration state.
	MigrationStateKey = "kv_migration_state"
)

// CandidateRepository defines candidate record operations
type CandidateRepository interface {
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	PutCandidate(ctx context.Context, c models.Candidate) error
	DeleteCandidate(ctx context.Context, id string) error
	ReplaceCandidates(ctx context.Context, all []models.Candidate) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// OrganizationRepository defines organization (school/club) operations
type OrganizationRepository interface {
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	AddOrganization(ctx context.Context, name string, custom bool) (created bool, err error)
}

// RecordStore combines all repository interfaces. Both the structured
// SQLite store and the flat key-value store implement it.
type RecordStore interface {
	CandidateRepository
	SettingsRepository
	OrganizationRepository
}

// Ensure both backends implement all interfaces
var (
	_ RecordStore = (*Repository)(nil)
	_ RecordStore = (*KVStore)(nil)
)
