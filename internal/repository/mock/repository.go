package mock

import (
	"context"

	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/repository"
)

// Repository wraps a real store and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.ReplaceCandidatesError = errors.New("database error")
//	svc := services.NewRecordService(log, mockRepo, nil)
//	err := svc.Persist(ctx, list)
//	// err will now contain the injected error
type Repository struct {
	repository.RecordStore

	// ===== Candidate Errors =====
	ListCandidatesError    error
	GetCandidateError      error
	PutCandidateError      error
	DeleteCandidateError   error
	ReplaceCandidatesError error

	// ===== Organization Errors =====
	ListOrganizationsError error
	AddOrganizationError   error

	// ===== Settings Errors =====
	GetSettingError    error
	SetSettingError    error
	DeleteSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.RecordStore) *Repository {
	return &Repository{
		RecordStore: real,
	}
}

// ===== Candidate Methods =====

func (m *Repository) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	if m.ListCandidatesError != nil {
		return nil, m.ListCandidatesError
	}
	return m.RecordStore.ListCandidates(ctx)
}

func (m *Repository) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	if m.GetCandidateError != nil {
		return nil, m.GetCandidateError
	}
	return m.RecordStore.GetCandidate(ctx, id)
}

func (m *Repository) PutCandidate(ctx context.Context, c models.Candidate) error {
	if m.PutCandidateError != nil {
		return m.PutCandidateError
	}
	return m.RecordStore.PutCandidate(ctx, c)
}

func (m *Repository) DeleteCandidate(ctx context.Context, id string) error {
	if m.DeleteCandidateError != nil {
		return m.DeleteCandidateError
	}
	return m.RecordStore.DeleteCandidate(ctx, id)
}

func (m *Repository) ReplaceCandidates(ctx context.Context, all []models.Candidate) error {
	if m.ReplaceCandidatesError != nil {
		return m.ReplaceCandidatesError
	}
	return m.RecordStore.ReplaceCandidates(ctx, all)
}

// ===== Organization Methods =====

func (m *Repository) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	if m.ListOrganizationsError != nil {
		return nil, m.ListOrganizationsError
	}
	return m.RecordStore.ListOrganizations(ctx)
}

func (m *Repository) AddOrganization(ctx context.Context, name string, custom bool) (bool, error) {
	if m.AddOrganizationError != nil {
		return false, m.AddOrganizationError
	}
	return m.RecordStore.AddOrganization(ctx, name, custom)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.RecordStore.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.RecordStore.SetSetting(ctx, key, value)
}

func (m *Repository) DeleteSetting(ctx context.Context, key string) error {
	if m.DeleteSettingError != nil {
		return m.DeleteSettingError
	}
	return m.RecordStore.DeleteSetting(ctx, key)
}
