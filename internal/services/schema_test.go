package services_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
	"github.com/abrezinsky/talentscout/internal/repository"
	"github.com/abrezinsky/talentscout/internal/repository/mock"
	"github.com/abrezinsky/talentscout/internal/services"
	"github.com/abrezinsky/talentscout/internal/testutil"
)

func swimming() models.SportConfig {
	return models.SportConfig{
		ID:       "swimming",
		Name:     "Swimming",
		Icon:     "pool",
		IsCustom: true,
		Metrics: []models.Metric{
			{Name: "Stroke Technique", Description: "Efficiency in the water", Min: 1, Max: 10},
			{Name: "Turns", Description: "Wall turns", Min: 1, Max: 5},
		},
	}
}

func TestSchemaService_GetSchema_DefaultsWhenEmpty(t *testing.T) {
	ts := newTestServices(t)

	sports, err := ts.schema.GetSchema(context.Background())
	if err != nil {
		t.Fatalf("GetSchema failed: %v", err)
	}
	if !reflect.DeepEqual(sports, services.DefaultSports()) {
		t.Errorf("expected default sports, got %+v", sports)
	}
}

func TestSchemaService_SaveSchema_BuiltinOverride(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	edited := services.DefaultSports()
	edited[0].Metrics = []models.Metric{{ID: "juggling", Name: "Juggling", Description: "Keep-ups", Min: 0, Max: 100}}
	edited[0].IsCustom = true
	edited = append(edited, swimming())

	if err := ts.schema.SaveSchema(ctx, edited); err != nil {
		t.Fatalf("SaveSchema failed: %v", err)
	}

	got, err := ts.schema.GetSchema(ctx)
	if err != nil {
		t.Fatalf("GetSchema failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sports, got %d", len(got))
	}

	defaults := services.DefaultSports()
	for i := 0; i < 2; i++ {
		if !reflect.DeepEqual(got[i].Metrics, defaults[i].Metrics) {
			t.Errorf("built-in %s metrics were not restored: %+v", got[i].ID, got[i].Metrics)
		}
		if got[i].IsCustom {
			t.Errorf("built-in %s should not be custom", got[i].ID)
		}
	}

	if got[2].Metrics[0].ID != "stroke_technique" {
		t.Errorf("expected derived metric id stroke_technique, got %q", got[2].Metrics[0].ID)
	}
	if !got[2].IsCustom {
		t.Error("custom sport lost its custom flag")
	}
}

func TestSchemaService_SaveSchema_ReinsertsMissingBuiltins(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if err := ts.schema.SaveSchema(ctx, []models.SportConfig{swimming()}); err != nil {
		t.Fatalf("SaveSchema failed: %v", err)
	}

	ids, err := ts.schema.SportIDs(ctx)
	if err != nil {
		t.Fatalf("SportIDs failed: %v", err)
	}
	want := []models.SportID{models.SportFootball, models.SportAthletics, "swimming"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}

func TestSchemaService_ResetToDefault(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if err := ts.schema.SaveSchema(ctx, append(services.DefaultSports(), swimming())); err != nil {
		t.Fatalf("SaveSchema failed: %v", err)
	}
	if err := ts.schema.ResetToDefault(ctx); err != nil {
		t.Fatalf("ResetToDefault failed: %v", err)
	}

	sports, err := ts.schema.GetSchema(ctx)
	if err != nil {
		t.Fatalf("GetSchema failed: %v", err)
	}
	if len(sports) != 2 {
		t.Errorf("expected 2 default sports after reset, got %d", len(sports))
	}
}

func TestSchemaService_GetMetrics(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	metrics, err := ts.schema.GetMetrics(ctx, models.SportAthletics)
	if err != nil {
		t.Fatalf("GetMetrics failed: %v", err)
	}
	if len(metrics) != 5 || metrics[0].ID != "sprint" {
		t.Errorf("unexpected athletics metrics: %+v", metrics)
	}

	unknown, err := ts.schema.GetMetrics(ctx, "curling")
	if err != nil {
		t.Fatalf("GetMetrics for unknown sport failed: %v", err)
	}
	if unknown == nil || len(unknown) != 0 {
		t.Errorf("expected empty non-nil list for unknown sport, got %+v", unknown)
	}
}

func TestSchemaService_GetSchema_LegacyLayout(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	legacy := `{"football":[],"swimming":[{"id":"turns","name":"Turns","description":"Wall turns","min":1,"max":5}]}`
	if err := repo.SetSetting(ctx, repository.SchemaKey, legacy); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	svc := services.NewSchemaService(logger.Nop(), repo)
	sports, err := svc.GetSchema(ctx)
	if err != nil {
		t.Fatalf("GetSchema failed: %v", err)
	}
	if len(sports) != 3 {
		t.Fatalf("expected 3 sports, got %d", len(sports))
	}
	if len(sports[0].Metrics) != 5 {
		t.Errorf("football metrics should be canonical, got %d", len(sports[0].Metrics))
	}
	if sports[2].ID != "swimming" || !sports[2].IsCustom {
		t.Errorf("expected custom swimming sport, got %+v", sports[2])
	}
}

func TestSchemaService_GetSchema_CorruptDocument(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	if err := repo.SetSetting(ctx, repository.SchemaKey, "not json"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	svc := services.NewSchemaService(logger.Nop(), repo)
	_, err := svc.GetSchema(ctx)
	if !errors.Is(err, errors.ErrPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestSchemaService_RepositoryErrors(t *testing.T) {
	mockRepo := mock.NewRepository(testutil.NewTestRepository(t))
	svc := services.NewSchemaService(logger.Nop(), mockRepo)
	ctx := context.Background()
	dbErr := stderrors.New("disk full")

	mockRepo.GetSettingError = dbErr
	if _, err := svc.GetSchema(ctx); !errors.Is(err, errors.ErrPersistence) {
		t.Errorf("GetSchema: expected persistence error, got %v", err)
	}
	mockRepo.GetSettingError = nil

	mockRepo.SetSettingError = dbErr
	if err := svc.SaveSchema(ctx, services.DefaultSports()); !errors.Is(err, errors.ErrPersistence) {
		t.Errorf("SaveSchema: expected persistence error, got %v", err)
	}

	mockRepo.DeleteSettingError = dbErr
	if err := svc.ResetToDefault(ctx); !errors.Is(err, errors.ErrPersistence) {
		t.Errorf("ResetToDefault: expected persistence error, got %v", err)
	}
}

func TestValidateSchema(t *testing.T) {
	if msgs := services.ValidateSchema(services.DefaultSports()); len(msgs) != 0 {
		t.Errorf("defaults should be valid, got %v", msgs)
	}

	bad := []models.SportConfig{
		{ID: "Bad Id", Name: "", Metrics: nil},
		{ID: "rowing", Name: "Rowing", Metrics: []models.Metric{
			{Name: "Power", Description: "", Min: 5, Max: 5},
			{Name: "power", Description: "dup", Min: 1, Max: 2},
		}},
	}
	msgs := services.ValidateSchema(bad)
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{
		"id must be lower-case",
		"name is required",
		"at least one metric is required",
		"description is required",
		"min must be less than max",
		`duplicate metric id "power"`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected message containing %q in:\n%s", want, joined)
		}
	}
}

func TestMetricID(t *testing.T) {
	tests := map[string]string{
		"Speed":            "speed",
		"Ball  Control":    "ball_control",
		" Tactical Sense ": "tactical_sense",
		"Shot\tPut":        "shot_put",
	}
	for name, want := range tests {
		if got := services.MetricID(name); got != want {
			t.Errorf("MetricID(%q) = %q, want %q", name, got, want)
		}
	}
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

const seedYAML = `
sports:
  - id: swimming
    name: Swimming
    icon: pool
    metrics:
      - name: Stroke Technique
        description: Efficiency in the water
        min: 1
        max: 10
organizations:
  - Riverside Academy
  - Hillcrest School
`

func TestSchemaService_SeedFromFile(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	result, err := ts.schema.SeedFromFile(ctx, writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}
	if result.Sports != 1 || result.Organizations != 2 || result.SchemaSkipped {
		t.Errorf("unexpected seed result: %+v", result)
	}

	ids, _ := ts.schema.SportIDs(ctx)
	if len(ids) != 3 || ids[2] != "swimming" {
		t.Errorf("expected seeded swimming sport, got %v", ids)
	}

	orgs, err := ts.records.Organizations(ctx)
	if err != nil {
		t.Fatalf("Organizations failed: %v", err)
	}
	for _, org := range orgs {
		if org.Custom {
			t.Errorf("seeded organization %q should not be custom", org.Name)
		}
	}

	again, err := ts.schema.SeedFromFile(ctx, writeSeed(t, seedYAML))
	if err != nil {
		t.Fatalf("second SeedFromFile failed: %v", err)
	}
	if !again.SchemaSkipped || again.Organizations != 0 {
		t.Errorf("second seed should be a no-op, got %+v", again)
	}
}

func TestSchemaService_SeedFromFile_Invalid(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	if _, err := ts.schema.SeedFromFile(ctx, writeSeed(t, "sports: [")); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected invalid input for bad YAML, got %v", err)
	}

	noMetrics := "sports:\n  - id: rowing\n    name: Rowing\n"
	if _, err := ts.schema.SeedFromFile(ctx, writeSeed(t, noMetrics)); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("expected validation error for sport without metrics, got %v", err)
	}

	if _, err := ts.schema.SeedFromFile(ctx, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing seed file")
	}
}
