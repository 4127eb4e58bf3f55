package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/repository"
)

// SchemaVersion tags the persisted schema document.
const SchemaVersion = "1.0"

var builtinSports = []models.SportConfig{
	{
		ID:   models.SportFootball,
		Name: "Football",
		Icon: "football",
		Metrics: []models.Metric{
			{ID: "speed", Name: "Speed", Description: "Acceleration and sprint speed", Min: 1, Max: 10},
			{ID: "ballControl", Name: "Ball Control", Description: "Dribbling and ball handling skills", Min: 1, Max: 10},
			{ID: "passing", Name: "Passing", Description: "Accuracy and technique in passing", Min: 1, Max: 10},
			{ID: "shooting", Name: "Shooting", Description: "Power and accuracy in shooting", Min: 1, Max: 10},
			{ID: "tactical", Name: "Tactical Understanding", Description: "Game awareness and decision making", Min: 1, Max: 10},
		},
	},
	{
		ID:   models.SportAthletics,
		Name: "Athletics",
		Icon: "running",
		Metrics: []models.Metric{
			{ID: "sprint", Name: "Sprint", Description: "100m sprint performance", Min: 1, Max: 10},
			{ID: "endurance", Name: "Endurance", Description: "Long-distance running capability", Min: 1, Max: 10},
			{ID: "jumping", Name: "Jumping", Description: "High jump and long jump ability", Min: 1, Max: 10},
			{ID: "throwing", Name: "Throwing", Description: "Shot put and throwing skills", Min: 1, Max: 10},
			{ID: "coordination", Name: "Coordination", Description: "Overall body coordination and agility", Min: 1, Max: 10},
		},
	},
}

// DefaultSports returns a fresh copy of the built-in sports.
func DefaultSports() []models.SportConfig {
	out := make([]models.SportConfig, len(builtinSports))
	for i, sport := range builtinSports {
		out[i] = copySport(sport)
	}
	return out
}

// IsBuiltinSport reports whether id is reserved by a built-in sport.
func IsBuiltinSport(id models.SportID) bool {
	_, ok := builtinByID(id)
	return ok
}

func builtinByID(id models.SportID) (models.SportConfig, bool) {
	for _, sport := range builtinSports {
		if sport.ID == id {
			return sport, true
		}
	}
	return models.SportConfig{}, false
}

func copySport(s models.SportConfig) models.SportConfig {
	s.Metrics = append([]models.Metric(nil), s.Metrics...)
	return s
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// MetricID derives a metric id from its display name: lower-cased, with
// every whitespace run replaced by an underscore.
func MetricID(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}

// ApplyBuiltinOverride restores the canonical metric list of every built-in
// sport, clears their custom flag and re-inserts missing built-ins ahead of
// the custom sports. Metrics without an id get one derived from their name.
func ApplyBuiltinOverride(sports []models.SportConfig) []models.SportConfig {
	seen := map[models.SportID]bool{}
	var out []models.SportConfig

	for _, b := range builtinSports {
		found := false
		for _, s := range sports {
			if s.ID == b.ID {
				found = true
				break
			}
		}
		if !found {
			out = append(out, copySport(b))
			seen[b.ID] = true
		}
	}

	for _, s := range sports {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		if b, ok := builtinByID(s.ID); ok {
			s.Metrics = append([]models.Metric(nil), b.Metrics...)
			s.IsCustom = false
			if strings.TrimSpace(s.Name) == "" {
				s.Name = b.Name
			}
			if s.Icon == "" {
				s.Icon = b.Icon
			}
			out = append(out, s)
			continue
		}

		s = copySport(s)
		for i := range s.Metrics {
			if s.Metrics[i].ID == "" {
				s.Metrics[i].ID = MetricID(s.Metrics[i].Name)
			}
		}
		out = append(out, s)
	}
	return out
}

// ValidateSchema checks metric well-formedness. It returns one message per
// problem; an empty result means the schema is usable for scoring.
func ValidateSchema(sports []models.SportConfig) []string {
	var msgs []string
	sportIDs := map[models.SportID]bool{}

	for i, sport := range sports {
		label := fmt.Sprintf("Sport %d", i+1)
		if sport.ID != "" {
			label = fmt.Sprintf("Sport %q", sport.ID)
		}

		switch {
		case sport.ID == "":
			msgs = append(msgs, label+": id is required")
		case !sport.ID.Valid():
			msgs = append(msgs, label+": id must be lower-case letters, digits, '-' or '_'")
		case sportIDs[sport.ID]:
			msgs = append(msgs, label+": duplicate sport id")
		}
		sportIDs[sport.ID] = true

		if strings.TrimSpace(sport.Name) == "" {
			msgs = append(msgs, label+": name is required")
		}
		if len(sport.Metrics) == 0 {
			msgs = append(msgs, label+": at least one metric is required")
		}

		metricIDs := map[string]bool{}
		for j, m := range sport.Metrics {
			mlabel := fmt.Sprintf("%s metric %d", label, j+1)
			id := m.ID
			if id == "" {
				id = MetricID(m.Name)
			}
			if strings.TrimSpace(m.Name) == "" {
				msgs = append(msgs, mlabel+": name is required")
			}
			if strings.TrimSpace(m.Description) == "" {
				msgs = append(msgs, mlabel+": description is required")
			}
			if m.Min >= m.Max {
				msgs = append(msgs, mlabel+": min must be less than max")
			}
			if id != "" && metricIDs[id] {
				msgs = append(msgs, fmt.Sprintf("%s: duplicate metric id %q", mlabel, id))
			}
			metricIDs[id] = true
		}
	}
	return msgs
}

// schemaRepository is the storage the schema service needs
type schemaRepository interface {
	repository.SettingsRepository
	repository.OrganizationRepository
}

// SchemaService handles the user-editable metric schema
type SchemaService struct {
	log  logger.Logger
	repo schemaRepository
	now  func() time.Time
}

// NewSchemaService creates a new SchemaService
func NewSchemaService(log logger.Logger, repo schemaRepository) *SchemaService {
	return &SchemaService{log: log, repo: repo, now: time.Now}
}

// GetSchema returns the persisted schema, or the built-in defaults when
// nothing is stored. Built-in sports always carry their canonical metrics.
func (s *SchemaService) GetSchema(ctx context.Context) ([]models.SportConfig, error) {
	raw, err := s.repo.GetSetting(ctx, repository.SchemaKey)
	if stderrors.Is(err, repository.ErrNotFound) {
		return DefaultSports(), nil
	}
	if err != nil {
		return nil, errors.Persistence("read metric schema", err)
	}

	sports, err := decodeSchema(raw)
	if err != nil {
		return nil, errors.Persistence("decode metric schema", err)
	}
	return ApplyBuiltinOverride(sports), nil
}

// SaveSchema persists sports after applying the built-in override. It does
// not validate; callers use ValidateSchema first.
func (s *SchemaService) SaveSchema(ctx context.Context, sports []models.SportConfig) error {
	doc := models.SchemaBackup{
		Version:   SchemaVersion,
		Timestamp: s.now().UTC(),
		Sports:    ApplyBuiltinOverride(sports),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.repo.SetSetting(ctx, repository.SchemaKey, string(raw)); err != nil {
		return errors.Persistence("save metric schema", err)
	}
	s.log.Info("Metric schema saved", "sports", len(doc.Sports))
	return nil
}

// ResetToDefault discards the persisted schema
func (s *SchemaService) ResetToDefault(ctx context.Context) error {
	if err := s.repo.DeleteSetting(ctx, repository.SchemaKey); err != nil {
		return errors.Persistence("reset metric schema", err)
	}
	s.log.Info("Metric schema reset to defaults")
	return nil
}

// GetMetrics returns the metrics of sportID, empty for unknown sports
func (s *SchemaService) GetMetrics(ctx context.Context, sportID models.SportID) ([]models.Metric, error) {
	sports, err := s.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	for _, sport := range sports {
		if sport.ID == sportID {
			return sport.Metrics, nil
		}
	}
	return []models.Metric{}, nil
}

// SportIDs returns the configured sport ids in schema order
func (s *SchemaService) SportIDs(ctx context.Context) ([]models.SportID, error) {
	sports, err := s.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]models.SportID, len(sports))
	for i, sport := range sports {
		ids[i] = sport.ID
	}
	return ids, nil
}

// SeedFile is the YAML document read by SeedFromFile.
type SeedFile struct {
	Sports        []models.SportConfig `yaml:"sports"`
	Organizations []string             `yaml:"organizations"`
}

// SeedResult reports what SeedFromFile applied.
type SeedResult struct {
	Sports        int
	Organizations int
	SchemaSkipped bool
}

// SeedFromFile merges the custom sports of a YAML seed file into the
// defaults when no schema has been persisted yet, and registers the listed
// organizations. An existing schema is never overwritten.
func (s *SchemaService) SeedFromFile(ctx context.Context, path string) (*SeedResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, errors.InvalidInputf("parse seed file %s: %v", path, err)
	}

	result := &SeedResult{}

	_, err = s.repo.GetSetting(ctx, repository.SchemaKey)
	switch {
	case err == nil:
		result.SchemaSkipped = true
	case stderrors.Is(err, repository.ErrNotFound):
		if len(seed.Sports) > 0 {
			for i := range seed.Sports {
				seed.Sports[i].IsCustom = !IsBuiltinSport(seed.Sports[i].ID)
			}
			sports := append(DefaultSports(), seed.Sports...)
			if msgs := ValidateSchema(ApplyBuiltinOverride(sports)); len(msgs) > 0 {
				return nil, errors.Validations("invalid seed schema", msgs)
			}
			if err := s.SaveSchema(ctx, sports); err != nil {
				return nil, err
			}
			result.Sports = len(seed.Sports)
		}
	default:
		return nil, errors.Persistence("read metric schema", err)
	}

	for _, name := range seed.Organizations {
		created, err := s.repo.AddOrganization(ctx, name, false)
		if err != nil {
			return nil, errors.Persistence("seed organizations", err)
		}
		if created {
			result.Organizations++
		}
	}
	return result, nil
}

// decodeSchema accepts the current document layout and the legacy layout
// that mapped sport ids straight to metric lists.
func decodeSchema(raw string) ([]models.SportConfig, error) {
	var doc models.SchemaBackup
	if err := json.Unmarshal([]byte(raw), &doc); err == nil && doc.Sports != nil {
		return doc.Sports, nil
	}

	var legacy map[string][]models.Metric
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return nil, err
	}
	var sports []models.SportConfig
	for _, b := range builtinSports {
		if metrics, ok := legacy[string(b.ID)]; ok {
			sports = append(sports, models.SportConfig{ID: b.ID, Name: b.Name, Icon: b.Icon, Metrics: metrics})
			delete(legacy, string(b.ID))
		}
	}
	custom := make([]string, 0, len(legacy))
	for id := range legacy {
		custom = append(custom, id)
	}
	sort.Strings(custom)
	for _, id := range custom {
		sports = append(sports, models.SportConfig{ID: models.SportID(id), Name: id, Metrics: legacy[id], IsCustom: true})
	}
	return sports, nil
}
