package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/abrezinsky/talentscout/internal/models"
)

// KVStore is the synchronous flat key-value backend: a single JSON object
// mapping keys to string values, rewritten atomically on every change.
// Candidates live as one JSON array under RecordsKey. An empty path keeps
// everything in memory.
type KVStore struct {
	mu   sync.RWMutex
	path string
	data map[string]string
}

// OpenKVStore loads the store at path. A missing file is an empty store.
func OpenKVStore(path string) (*KVStore, error) {
	s := &KVStore{path: path, data: map[string]string{}}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	if s.data == nil {
		s.data = map[string]string{}
	}
	return s, nil
}

// Path returns the backing file, empty for an in-memory store
func (s *KVStore) Path() string {
	return s.path
}

// flush writes the map to a temp file and renames it over the target.
// Callers must hold the write lock.
func (s *KVStore) flush() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// set stores value under key and flushes; on flush failure the previous
// value is restored so memory matches disk.
func (s *KVStore) set(key, value string) error {
	prev, had := s.data[key]
	s.data[key] = value
	if err := s.flush(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

func (s *KVStore) remove(key string) error {
	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := s.flush(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

// ==================== Candidate Methods ====================

func (s *KVStore) readCandidates() ([]models.Candidate, error) {
	raw, ok := s.data[RecordsKey]
	if !ok || raw == "" {
		return nil, nil
	}
	var list []models.Candidate
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, RecordsKey, err)
	}
	for i := range list {
		list[i].EnsureMaps()
	}
	return list, nil
}

func (s *KVStore) writeCandidates(list []models.Candidate) error {
	if list == nil {
		list = []models.Candidate{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.set(RecordsKey, string(raw))
}

// ListCandidates returns the stored candidate array
func (s *KVStore) ListCandidates(_ context.Context) ([]models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readCandidates()
}

// GetCandidate returns one candidate by id
func (s *KVStore) GetCandidate(_ context.Context, id string) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.readCandidates()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, ErrNotFound
}

// PutCandidate replaces the candidate with the same id or appends it
func (s *KVStore) PutCandidate(_ context.Context, c models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readCandidates()
	if err != nil {
		return err
	}
	replaced := false
	for i := range list {
		if list[i].ID == c.ID {
			list[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, c)
	}
	return s.writeCandidates(list)
}

// DeleteCandidate removes the candidate with id, if present
func (s *KVStore) DeleteCandidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readCandidates()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, c := range list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return s.writeCandidates(kept)
}

// ReplaceCandidates overwrites the candidate array. A nil or empty slice
// removes the key entirely.
func (s *KVStore) ReplaceCandidates(_ context.Context, all []models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(all) == 0 {
		return s.remove(RecordsKey)
	}
	return s.writeCandidates(all)
}

// ==================== Organization Methods ====================

func (s *KVStore) readOrganizations() ([]models.Organization, error) {
	raw, ok := s.data[OrganizationsKey]
	if !ok || raw == "" {
		return nil, nil
	}
	var orgs []models.Organization
	if err := json.Unmarshal([]byte(raw), &orgs); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, OrganizationsKey, err)
	}
	return orgs, nil
}

// ListOrganizations returns organizations sorted by name
func (s *KVStore) ListOrganizations(_ context.Context) ([]models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgs, err := s.readOrganizations()
	if err != nil {
		return nil, err
	}
	sort.Slice(orgs, func(i, j int) bool {
		return strings.ToLower(orgs[i].Name) < strings.ToLower(orgs[j].Name)
	})
	return orgs, nil
}

// AddOrganization appends an organization unless one with the same name exists
func (s *KVStore) AddOrganization(_ context.Context, name string, custom bool) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orgs, err := s.readOrganizations()
	if err != nil {
		return false, err
	}
	for _, org := range orgs {
		if org.Name == name {
			return false, nil
		}
	}
	raw, err := json.Marshal(append(orgs, models.Organization{Name: name, Custom: custom}))
	if err != nil {
		return false, err
	}
	if err := s.set(OrganizationsKey, string(raw)); err != nil {
		return false, err
	}
	return true, nil
}

// ==================== Settings Methods ====================

// GetSetting returns the raw value stored under key
func (s *KVStore) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// SetSetting stores value under key
func (s *KVStore) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(key, value)
}

// DeleteSetting removes key; missing keys are not an error
func (s *KVStore) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(key)
}
