package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/repository"
)

// MutateFunc transforms a snapshot of all candidates. It returns the new
// set and how many records it changed; zero changes skip the write.
type MutateFunc func(list []models.Candidate) (next []models.Candidate, changed int, err error)

// RecordService owns the candidate collection. Every mutation runs under a
// single lock so there is one write in flight at a time; reads are lock-free
// and observe the last committed snapshot.
type RecordService struct {
	mu          sync.Mutex
	log         logger.Logger
	repo        repository.RecordStore
	schema      SchemaServicer
	broadcaster Broadcaster
	recorder    Recorder
	baseURL     string
	now         func() time.Time
	newID       func() string
}

// NewRecordService creates a new RecordService
func NewRecordService(log logger.Logger, repo repository.RecordStore, schema SchemaServicer) *RecordService {
	return &RecordService{
		log:      log,
		repo:     repo,
		schema:   schema,
		recorder: nopRecorder{},
		baseURL:  "http://localhost:8081",
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *RecordService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetRecorder sets the metrics recorder
func (s *RecordService) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
}

// SetBaseURL sets the URL prefix encoded into candidate card QR codes
func (s *RecordService) SetBaseURL(url string) {
	s.baseURL = strings.TrimRight(url, "/")
}

// SetClock overrides the time source (for testing)
func (s *RecordService) SetClock(now func() time.Time) {
	s.now = now
}

// Exclusive runs fn while holding the write lock. Used for the startup
// migration so it can never overlap a mutation.
func (s *RecordService) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *RecordService) notify(reason string, count int) {
	s.recorder.RecordMutation(reason)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastRecordsChanged(reason, count)
	}
}

func (s *RecordService) timed(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.recorder.RecordStoreLatency(op, time.Since(start))
	return err
}

// List returns every candidate
func (s *RecordService) List(ctx context.Context) ([]models.Candidate, error) {
	var list []models.Candidate
	err := s.timed("list", func() error {
		var err error
		list, err = s.repo.ListCandidates(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Persistence("list candidates", err)
	}
	if list == nil {
		list = []models.Candidate{}
	}
	return list, nil
}

// Get returns one candidate
func (s *RecordService) Get(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := s.repo.GetCandidate(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFoundf("candidate %s not found", id)
	}
	if err != nil {
		return nil, errors.Persistence("get candidate", err)
	}
	return c, nil
}

// Organizations lists known schools and clubs
func (s *RecordService) Organizations(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.repo.ListOrganizations(ctx)
	if err != nil {
		return nil, errors.Persistence("list organizations", err)
	}
	if orgs == nil {
		orgs = []models.Organization{}
	}
	return orgs, nil
}

// ValidateCandidate checks the identity fields of a candidate against the
// configured sports. It returns one message per problem.
func ValidateCandidate(c models.Candidate, sports []models.SportID) []string {
	var msgs []string
	if strings.TrimSpace(c.Name) == "" {
		msgs = append(msgs, "Name is required")
	}
	if c.DateOfBirth == "" {
		msgs = append(msgs, "Date of birth is required")
	} else if _, ok := c.BirthDate(); !ok {
		msgs = append(msgs, "Invalid date format")
	}
	if strings.TrimSpace(c.SchoolName) == "" {
		msgs = append(msgs, "School name is required")
	}
	if c.SelectedSport == "" {
		msgs = append(msgs, "Sport selection is required")
	} else if !containsSport(sports, c.SelectedSport) {
		msgs = append(msgs, fmt.Sprintf("Sport must be one of: %s", joinSports(sports)))
	}
	if c.Status != "" && !c.Status.Valid() {
		msgs = append(msgs, fmt.Sprintf("Invalid status %q", c.Status))
	}
	return msgs
}

func containsSport(sports []models.SportID, id models.SportID) bool {
	for _, s := range sports {
		if s == id {
			return true
		}
	}
	return false
}

func joinSports(sports []models.SportID) string {
	parts := make([]string, len(sports))
	for i, s := range sports {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func (s *RecordService) validate(ctx context.Context, c models.Candidate) error {
	sports, err := s.schema.SportIDs(ctx)
	if err != nil {
		return err
	}
	if msgs := ValidateCandidate(c, sports); len(msgs) > 0 {
		return errors.Validations("invalid candidate", msgs)
	}
	return nil
}

// prepareNew fills the fields every new record gets
func (s *RecordService) prepareNew(c *models.Candidate) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.Status == "" {
		c.Status = models.StatusPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	c.Name = strings.TrimSpace(c.Name)
	c.SchoolName = strings.TrimSpace(c.SchoolName)
	c.Rank = nil
	c.EnsureMaps()
	c.PruneEvaluations()
}

// registerSchools adds every previously unseen school as a custom organization.
// Failures are logged; the records are already committed.
func (s *RecordService) registerSchools(ctx context.Context, list []models.Candidate) {
	seen := map[string]bool{}
	for _, c := range list {
		if c.SchoolName == "" || seen[c.SchoolName] {
			continue
		}
		seen[c.SchoolName] = true
		created, err := s.repo.AddOrganization(ctx, c.SchoolName, true)
		if err != nil {
			s.log.Warn("Failed to register organization", "school", c.SchoolName, "error", err)
			continue
		}
		if created {
			s.log.Debug("Registered custom organization", "school", c.SchoolName)
		}
	}
}

// Add validates and appends a new candidate. It assigns an id when empty,
// status pending when absent, and the creation time.
func (s *RecordService) Add(ctx context.Context, c models.Candidate) (*models.Candidate, error) {
	if err := s.validate(ctx, c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prepareNew(&c)
	if err := s.timed("put", func() error { return s.repo.PutCandidate(ctx, c) }); err != nil {
		return nil, errors.Persistence("save candidate", err)
	}
	s.registerSchools(ctx, []models.Candidate{c})

	s.log.Info("Candidate added", "id", c.ID, "sport", c.SelectedSport)
	s.notify("add", 1)
	return &c, nil
}

// AddMany appends already validated candidates with a single write
func (s *RecordService) AddMany(ctx context.Context, list []models.Candidate) ([]models.Candidate, error) {
	if len(list) == 0 {
		return []models.Candidate{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.ListCandidates(ctx)
	if err != nil {
		return nil, errors.Persistence("list candidates", err)
	}

	added := make([]models.Candidate, len(list))
	for i, c := range list {
		c.ID = ""
		s.prepareNew(&c)
		added[i] = c
	}

	next := append(current, added...)
	if err := s.timed("replace", func() error { return s.repo.ReplaceCandidates(ctx, next) }); err != nil {
		return nil, errors.Persistence("save candidates", err)
	}
	s.registerSchools(ctx, added)

	s.log.Info("Candidates added", "count", len(added))
	s.notify("import", len(added))
	return added, nil
}

// Update replaces the candidate with the same id. A missing id is a silent
// no-op. History, creation time and status are kept when the update leaves
// them empty; a status change stamps statusUpdatedAt. A move refused by
// TransitionAllowed returns a *BlockedTransitionError.
func (s *RecordService) Update(ctx context.Context, c models.Candidate) error {
	if err := s.validate(ctx, c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.GetCandidate(ctx, c.ID)
	if stderrors.Is(err, repository.ErrNotFound) {
		s.log.Debug("Update of unknown candidate ignored", "id", c.ID)
		return nil
	}
	if err != nil {
		return errors.Persistence("get candidate", err)
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = existing.CreatedAt
	}
	if c.EvaluationHistory == nil {
		c.EvaluationHistory = existing.EvaluationHistory
	}
	if c.Evaluations == nil {
		c.Evaluations = existing.Evaluations
	}
	if c.Status == "" {
		c.Status = existing.Status
	}
	if !TransitionAllowed(existing.Status, c.Status) {
		return &BlockedTransitionError{Status: c.Status, IDs: []string{c.ID}}
	}
	if c.Status != existing.Status {
		now := s.now().UTC()
		c.StatusUpdatedAt = &now
	} else if c.StatusUpdatedAt == nil {
		c.StatusUpdatedAt = existing.StatusUpdatedAt
	}
	c.Rank = nil
	c.EnsureMaps()
	c.PruneEvaluations()

	if err := s.timed("put", func() error { return s.repo.PutCandidate(ctx, c) }); err != nil {
		return errors.Persistence("save candidate", err)
	}
	s.registerSchools(ctx, []models.Candidate{c})

	s.notify("update", 1)
	return nil
}

// Delete removes a candidate; a missing id is a silent no-op
func (s *RecordService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetCandidate(ctx, id); stderrors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err := s.timed("delete", func() error { return s.repo.DeleteCandidate(ctx, id) }); err != nil {
		return errors.Persistence("delete candidate", err)
	}

	s.log.Info("Candidate deleted", "id", id)
	s.notify("delete", 1)
	return nil
}

// Persist overwrites the whole collection with all
func (s *RecordService) Persist(ctx context.Context, all []models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, "persist", all, len(all))
}

// Restore overwrites the whole collection with a backup's records and
// registers their schools as organizations.
func (s *RecordService) Restore(ctx context.Context, all []models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(ctx, "restore", all, len(all)); err != nil {
		return err
	}
	s.registerSchools(ctx, all)
	return nil
}

func (s *RecordService) persistLocked(ctx context.Context, reason string, all []models.Candidate, changed int) error {
	for i := range all {
		all[i].Rank = nil
		all[i].EnsureMaps()
		all[i].PruneEvaluations()
	}
	if err := s.timed("replace", func() error { return s.repo.ReplaceCandidates(ctx, all) }); err != nil {
		return errors.Persistence("save candidates", err)
	}
	s.notify(reason, changed)
	return nil
}

// Mutate applies fn to the current snapshot and persists the result once.
// On error nothing is written and the previous snapshot stays in place.
func (s *RecordService) Mutate(ctx context.Context, reason string, fn MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.ListCandidates(ctx)
	if err != nil {
		return errors.Persistence("list candidates", err)
	}
	next, changed, err := fn(current)
	if err != nil {
		return err
	}
	if changed == 0 {
		return nil
	}
	return s.persistLocked(ctx, reason, next, changed)
}

// ValidateEvaluation checks ev against the metrics of its sport. Every score
// must reference a known metric and lie within its range.
func ValidateEvaluation(metrics []models.Metric, ev models.Evaluation) []string {
	var msgs []string
	if len(ev.Scores) == 0 {
		return []string{"At least one score is required"}
	}
	byID := make(map[string]models.Metric, len(metrics))
	for _, m := range metrics {
		byID[m.ID] = m
	}
	for _, key := range sortedKeys(ev.Scores) {
		m, ok := byID[key]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("Unknown metric %q", key))
			continue
		}
		if v := ev.Scores[key]; v < m.Min || v > m.Max {
			msgs = append(msgs, fmt.Sprintf("Score for %s must be between %g and %g", m.Name, m.Min, m.Max))
		}
	}
	return msgs
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveEvaluation records ev as the current evaluation of candidate id for
// sport and appends it to the history. The sport must be the candidate's
// selected sport. Unlike Update, an unknown id is reported.
func (s *RecordService) SaveEvaluation(ctx context.Context, id string, sport models.SportID, ev models.Evaluation) (*models.Candidate, error) {
	metrics, err := s.schema.GetMetrics(ctx, sport)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, errors.Validationf("unknown sport %q", sport)
	}
	if msgs := ValidateEvaluation(metrics, ev); len(msgs) > 0 {
		return nil, errors.Validations("invalid evaluation", msgs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.repo.GetCandidate(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFoundf("candidate %s not found", id)
	}
	if err != nil {
		return nil, errors.Persistence("get candidate", err)
	}
	if c.SelectedSport != sport {
		return nil, errors.Validationf("candidate %s is registered for %s, not %s", id, c.SelectedSport, sport)
	}

	ev.Date = s.now().UTC()
	c.EnsureMaps()
	c.Evaluations[sport] = ev
	c.EvaluationHistory[sport] = append(c.EvaluationHistory[sport], ev)
	c.PruneEvaluations()

	if err := s.timed("put", func() error { return s.repo.PutCandidate(ctx, *c) }); err != nil {
		return nil, errors.Persistence("save evaluation", err)
	}

	s.log.Info("Evaluation saved", "id", id, "sport", sport, "scores", len(ev.Scores))
	s.notify("evaluation", 1)
	return c, nil
}

// CandidateQR returns a PNG QR code linking to the candidate's card
func (s *RecordService) CandidateQR(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	cardURL := fmt.Sprintf("%s/candidates/%s", s.baseURL, id)
	return qrcode.Encode(cardURL, qrcode.Medium, 256)
}
