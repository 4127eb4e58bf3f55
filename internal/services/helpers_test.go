package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/repository"
	"github.com/abrezinsky/talentscout/internal/services"
	"github.com/abrezinsky/talentscout/internal/testutil"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// fakeBroadcaster records every change notification
type fakeBroadcaster struct {
	mu      sync.Mutex
	reasons []string
	counts  []int
}

func (b *fakeBroadcaster) BroadcastRecordsChanged(reason string, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reasons = append(b.reasons, reason)
	b.counts = append(b.counts, count)
}

func (b *fakeBroadcaster) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.reasons...)
}

// fakeRecorder counts metric calls by label
type fakeRecorder struct {
	mu        sync.Mutex
	mutations map[string]int
	imports   map[string]int
	restores  map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{mutations: map[string]int{}, imports: map[string]int{}, restores: map[string]int{}}
}

func (r *fakeRecorder) RecordMutation(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations[op]++
}

func (r *fakeRecorder) RecordStoreLatency(string, time.Duration) {}

func (r *fakeRecorder) RecordImportRows(outcome string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports[outcome] += n
}

func (r *fakeRecorder) RecordRestore(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restores[outcome]++
}

type testServices struct {
	repo      repository.RecordStore
	schema    *services.SchemaService
	records   *services.RecordService
	batch     *services.BatchService
	transfer  *services.TransferService
	rankings  *services.RankingService
	stats     *services.StatsService
	broadcast *fakeBroadcaster
	recorder  *fakeRecorder
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	return newTestServicesWithRepo(t, testutil.NewTestRepository(t))
}

func newTestServicesWithRepo(t *testing.T, repo repository.RecordStore) *testServices {
	t.Helper()
	log := logger.Nop()

	ts := &testServices{
		repo:      repo,
		broadcast: &fakeBroadcaster{},
		recorder:  newFakeRecorder(),
	}
	ts.schema = services.NewSchemaService(log, repo)
	ts.records = services.NewRecordService(log, repo, ts.schema)
	ts.records.SetClock(clock)
	ts.records.SetBroadcaster(ts.broadcast)
	ts.records.SetRecorder(ts.recorder)
	ts.batch = services.NewBatchService(log, ts.records, ts.schema)
	ts.batch.SetClock(clock)
	ts.transfer = services.NewTransferService(log, ts.records, ts.schema, "")
	ts.transfer.SetClock(clock)
	ts.transfer.SetRecorder(ts.recorder)
	ts.rankings = services.NewRankingService(log, ts.records, ts.schema)
	ts.rankings.SetClock(clock)
	ts.stats = services.NewStatsService(log, ts.records)
	ts.stats.SetClock(clock)
	return ts
}

func newCandidate(name, school string, sport models.SportID) models.Candidate {
	return models.Candidate{
		Name:          name,
		DateOfBirth:   "2012-03-04",
		SchoolName:    school,
		SelectedSport: sport,
	}
}

// addCandidates adds n football candidates and returns them in order
func addCandidates(t *testing.T, ts *testServices, n int) []models.Candidate {
	t.Helper()
	ctx := context.Background()
	out := make([]models.Candidate, 0, n)
	for i := 0; i < n; i++ {
		c, err := ts.records.Add(ctx, newCandidate(string(rune('A'+i))+" Player", "North High", models.SportFootball))
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		out = append(out, *c)
	}
	return out
}

func footballScores(v float64) map[string]float64 {
	return map[string]float64{"speed": v, "ballControl": v, "passing": v, "shooting": v, "tactical": v}
}

func athleticsScores(v float64) map[string]float64 {
	return map[string]float64{"sprint": v, "endurance": v, "jumping": v, "throwing": v, "coordination": v}
}
