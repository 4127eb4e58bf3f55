package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/abrezinsky/talentscout/internal/models"
)

// DefaultDriver is the database/sql driver used by New.
const DefaultDriver = "sqlite3"

// Repository is the structured store: candidates keyed by id with
// auxiliary tables for evaluations, organizations and settings.
type Repository struct {
	db *sql.DB
}

// New creates a new Repository using the default SQLite driver
func New(dbPath string) (*Repository, error) {
	return NewWithDriver(DefaultDriver, dbPath)
}

// NewWithDriver creates a Repository on the given driver ("sqlite3" for
// mattn/go-sqlite3, "sqlite" for modernc.org/sqlite).
func NewWithDriver(driver, dbPath string) (*Repository, error) {
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate creates the schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			date_of_birth TEXT NOT NULL,
			school_name TEXT NOT NULL,
			selected_sport TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			status_updated_at TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			candidate_id TEXT NOT NULL,
			sport TEXT NOT NULL,
			date TEXT NOT NULL,
			scores TEXT NOT NULL,
			comments TEXT,
			PRIMARY KEY (candidate_id, sport),
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS evaluation_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id TEXT NOT NULL,
			sport TEXT NOT NULL,
			seq INTEGER NOT NULL,
			date TEXT NOT NULL,
			scores TEXT NOT NULL,
			comments TEXT,
			FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS organizations (
			name TEXT PRIMARY KEY,
			custom BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_position ON candidates(position)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_school ON candidates(school_name)`,
		`CREATE INDEX IF NOT EXISTS idx_history_candidate ON evaluation_history(candidate_id, sport, seq)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ==================== Candidate Methods ====================

const candidateColumns = `id, name, date_of_birth, school_name, selected_sport, status, status_updated_at, created_at`

// ListCandidates returns every candidate in insertion order
func (r *Repository) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Candidate, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}
	if err := r.attachEvaluations(ctx, byID, ""); err != nil {
		return nil, err
	}
	return list, nil
}

// GetCandidate returns a single candidate by id
func (r *Repository) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachEvaluations(ctx, map[string]*models.Candidate{c.ID: &c}, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// PutCandidate inserts or replaces a candidate together with its evaluations.
// An existing candidate keeps its position.
func (r *Repository) PutCandidate(ctx context.Context, c models.Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertCandidate(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteCandidate removes a candidate and its evaluations
func (r *Repository) DeleteCandidate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteEvaluations(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceCandidates overwrites the whole candidate set in one transaction.
// On error the previous set is left intact.
func (r *Repository) ReplaceCandidates(ctx context.Context, all []models.Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM evaluation_history`,
		`DELETE FROM evaluations`,
		`DELETE FROM candidates`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, c := range all {
		if err := upsertCandidate(ctx, tx, c); err != nil {
			return fmt.Errorf("candidate %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func upsertCandidate(ctx context.Context, tx execer, c models.Candidate) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO candidates (id, position, name, date_of_birth, school_name, selected_sport, status, status_updated_at, created_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM candidates), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			date_of_birth = excluded.date_of_birth,
			school_name = excluded.school_name,
			selected_sport = excluded.selected_sport,
			status = excluded.status,
			status_updated_at = excluded.status_updated_at,
			created_at = excluded.created_at
	`, c.ID, c.Name, c.DateOfBirth, c.SchoolName, string(c.SelectedSport), string(c.Status),
		formatTimePtr(c.StatusUpdatedAt), formatTime(c.CreatedAt))
	if err != nil {
		return err
	}

	if err := deleteEvaluations(ctx, tx, c.ID); err != nil {
		return err
	}

	for sport, ev := range c.Evaluations {
		scores, err := json.Marshal(ev.Scores)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evaluations (candidate_id, sport, date, scores, comments)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, string(sport), formatTime(ev.Date), string(scores), ev.Comments); err != nil {
			return err
		}
	}

	for sport, history := range c.EvaluationHistory {
		for seq, ev := range history {
			scores, err := json.Marshal(ev.Scores)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO evaluation_history (candidate_id, sport, seq, date, scores, comments)
				VALUES (?, ?, ?, ?, ?, ?)
			`, c.ID, string(sport), seq, formatTime(ev.Date), string(scores), ev.Comments); err != nil {
				return err
			}
		}
	}
	return nil
}

func deleteEvaluations(ctx context.Context, tx execer, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM evaluations WHERE candidate_id = ?`, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM evaluation_history WHERE candidate_id = ?`, id)
	return err
}

// attachEvaluations loads current and historical evaluations into the given
// candidates. An empty onlyID loads everything.
func (r *Repository) attachEvaluations(ctx context.Context, byID map[string]*models.Candidate, onlyID string) error {
	for _, c := range byID {
		c.EnsureMaps()
	}

	where, args := "", []any{}
	if onlyID != "" {
		where, args = ` WHERE candidate_id = ?`, []any{onlyID}
	}

	rows, err := r.db.QueryContext(ctx, `SELECT candidate_id, sport, date, scores, comments FROM evaluations`+where, args...)
	if err != nil {
		return err
	}
	err = forEachEvaluation(rows, func(id string, sport models.SportID, ev models.Evaluation) {
		if c, ok := byID[id]; ok {
			c.Evaluations[sport] = ev
		}
	})
	if err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx, `SELECT candidate_id, sport, date, scores, comments FROM evaluation_history`+where+` ORDER BY candidate_id, sport, seq`, args...)
	if err != nil {
		return err
	}
	return forEachEvaluation(rows, func(id string, sport models.SportID, ev models.Evaluation) {
		if c, ok := byID[id]; ok {
			c.EvaluationHistory[sport] = append(c.EvaluationHistory[sport], ev)
		}
	})
}

func forEachEvaluation(rows *sql.Rows, fn func(id string, sport models.SportID, ev models.Evaluation)) error {
	defer rows.Close()
	for rows.Next() {
		var id, sport, date, scores string
		var comments sql.NullString
		if err := rows.Scan(&id, &sport, &date, &scores, &comments); err != nil {
			return err
		}
		ev := models.Evaluation{Comments: comments.String}
		if err := json.Unmarshal([]byte(scores), &ev.Scores); err != nil {
			return fmt.Errorf("scores of %s/%s: %w", id, sport, err)
		}
		ev.Date, _ = parseTime(date)
		fn(id, models.SportID(sport), ev)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (models.Candidate, error) {
	var c models.Candidate
	var sport, status, createdAt string
	var statusUpdatedAt sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.DateOfBirth, &c.SchoolName, &sport, &status, &statusUpdatedAt, &createdAt); err != nil {
		return c, err
	}
	c.SelectedSport = models.SportID(sport)
	c.Status = models.Status(status)
	if statusUpdatedAt.Valid {
		if t, ok := parseTime(statusUpdatedAt.String); ok {
			c.StatusUpdatedAt = &t
		}
	}
	c.CreatedAt, _ = parseTime(createdAt)
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ==================== Organization Methods ====================

// ListOrganizations returns all organizations sorted by name
func (r *Repository) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, COALESCE(custom, 0) FROM organizations ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.Name, &org.Custom); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// AddOrganization registers an organization; created is false when it already existed
func (r *Repository) AddOrganization(ctx context.Context, name string, custom bool) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	result, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO organizations (name, custom) VALUES (?, ?)`, name, custom)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// DeleteSetting removes a setting; missing keys are not an error
func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}
