package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestKV(t *testing.T) (*KVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.json")
	store, err := OpenKVStore(path)
	if err != nil {
		t.Fatalf("OpenKVStore failed: %v", err)
	}
	return store, path
}

func TestOpenKVStore_MissingFileIsEmpty(t *testing.T) {
	store, _ := newTestKV(t)

	list, err := store.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty store, got %d", len(list))
	}
}

func TestOpenKVStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenKVStore(path)
	if !errors.Is(err, ErrCorruptStore) {
		t.Errorf("expected ErrCorruptStore, got %v", err)
	}
}

func TestKVStore_PersistsAcrossReopen(t *testing.T) {
	store, path := newTestKV(t)
	ctx := context.Background()

	if err := store.PutCandidate(ctx, sampleCandidate("c1", "Ana")); err != nil {
		t.Fatalf("PutCandidate failed: %v", err)
	}
	if err := store.PutCandidate(ctx, sampleCandidate("c2", "Ben")); err != nil {
		t.Fatalf("PutCandidate failed: %v", err)
	}

	reopened, err := OpenKVStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	list, err := reopened.ListCandidates(ctx)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c1" || list[1].ID != "c2" {
		t.Errorf("unexpected candidates after reopen: %+v", list)
	}

	// The raw file uses the flat layout: one key holding the record array as a string
	raw, _ := os.ReadFile(path)
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("file is not a flat string map: %v", err)
	}
	if _, ok := flat[RecordsKey]; !ok {
		t.Errorf("expected key %q in file", RecordsKey)
	}
}

func TestKVStore_PutReplacesByID(t *testing.T) {
	store, _ := newTestKV(t)
	ctx := context.Background()

	store.PutCandidate(ctx, sampleCandidate("c1", "Ana"))
	store.PutCandidate(ctx, sampleCandidate("c1", "Ana Maria"))

	list, _ := store.ListCandidates(ctx)
	if len(list) != 1 || list[0].Name != "Ana Maria" {
		t.Errorf("expected single replaced candidate, got %+v", list)
	}
}

func TestKVStore_GetAndDelete(t *testing.T) {
	store, _ := newTestKV(t)
	ctx := context.Background()

	store.PutCandidate(ctx, sampleCandidate("c1", "Ana"))

	got, err := store.GetCandidate(ctx, "c1")
	if err != nil || got.Name != "Ana" {
		t.Fatalf("GetCandidate returned %+v, %v", got, err)
	}
	if _, err := store.GetCandidate(ctx, "zz"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.DeleteCandidate(ctx, "zz"); err != nil {
		t.Errorf("deleting missing id should be a no-op, got %v", err)
	}
	if err := store.DeleteCandidate(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCandidate failed: %v", err)
	}
	list, _ := store.ListCandidates(ctx)
	if len(list) != 0 {
		t.Errorf("expected empty store, got %d", len(list))
	}
}

func TestKVStore_ReplaceEmptyClearsKey(t *testing.T) {
	store, _ := newTestKV(t)
	ctx := context.Background()

	store.PutCandidate(ctx, sampleCandidate("c1", "Ana"))
	if err := store.ReplaceCandidates(ctx, nil); err != nil {
		t.Fatalf("ReplaceCandidates failed: %v", err)
	}
	if _, err := store.GetSetting(ctx, RecordsKey); err != ErrNotFound {
		t.Errorf("expected records key removed, got %v", err)
	}
}

func TestKVStore_Organizations(t *testing.T) {
	store, _ := newTestKV(t)
	ctx := context.Background()

	created, err := store.AddOrganization(ctx, "Zeta", true)
	if err != nil || !created {
		t.Fatalf("AddOrganization returned %v, %v", created, err)
	}
	created, _ = store.AddOrganization(ctx, "Zeta", true)
	if created {
		t.Error("duplicate should not be created")
	}
	store.AddOrganization(ctx, "alpha", false)

	orgs, err := store.ListOrganizations(ctx)
	if err != nil {
		t.Fatalf("ListOrganizations failed: %v", err)
	}
	if len(orgs) != 2 || orgs[0].Name != "alpha" {
		t.Errorf("unexpected organizations %+v", orgs)
	}
}

func TestKVStore_InMemory(t *testing.T) {
	store, err := OpenKVStore("")
	if err != nil {
		t.Fatalf("OpenKVStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.SetSetting(ctx, SchemaKey, "[]"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	v, err := store.GetSetting(ctx, SchemaKey)
	if err != nil || v != "[]" {
		t.Errorf("unexpected setting %q, %v", v, err)
	}
	if store.Path() != "" {
		t.Errorf("expected empty path, got %q", store.Path())
	}
}

func TestKVStore_FlushFailureKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "legacy.json")
	store, err := OpenKVStore(path)
	if err != nil {
		t.Fatalf("OpenKVStore failed: %v", err)
	}
	ctx := context.Background()

	// Parent directory does not exist, so the temp file cannot be created
	if err := store.PutCandidate(ctx, sampleCandidate("c1", "Ana")); err == nil {
		t.Fatal("expected write failure")
	}
	list, err := store.ListCandidates(ctx)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected failed write to be rolled back, got %d candidates", len(list))
	}
}

func TestKVStore_CorruptRecordsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	raw, _ := json.Marshal(map[string]string{RecordsKey: "not an array"})
	os.WriteFile(path, raw, 0o644)

	store, err := OpenKVStore(path)
	if err != nil {
		t.Fatalf("OpenKVStore failed: %v", err)
	}
	if _, err := store.ListCandidates(context.Background()); !errors.Is(err, ErrCorruptStore) {
		t.Errorf("expected ErrCorruptStore, got %v", err)
	}
}

func TestKVStore_EnsuresMaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	records, _ := json.Marshal([]map[string]any{{"id": "c1", "name": "Ana"}})
	raw, _ := json.Marshal(map[string]string{RecordsKey: string(records)})
	os.WriteFile(path, raw, 0o644)

	store, _ := OpenKVStore(path)
	list, err := store.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if list[0].Evaluations == nil || list[0].EvaluationHistory == nil {
		t.Error("expected maps to be initialized")
	}
}
