package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/abrezinsky/talentscout/internal/errors"
	"github.com/abrezinsky/talentscout/internal/logger"
	"github.com/abrezinsky/talentscout/internal/models"
)

// DefaultBackupVersion is written into exported snapshots unless configured otherwise.
const DefaultBackupVersion = "1.0"

// Restore failure reasons
const (
	ReasonInvalidStructure = "invalid structure"
	ReasonInvalidRecord    = "invalid record"
	ReasonParseError       = "parse error"
	ReasonPersistence      = "persistence error"
)

// RestoreResult is the outcome of a restore. On failure Reason names the
// category and nothing has been written.
type RestoreResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count"`
}

func restoreFailed(reason, format string, args ...interface{}) RestoreResult {
	return RestoreResult{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// TransferService handles CSV import and JSON backup and restore
type TransferService struct {
	log      logger.Logger
	records  RecordServicer
	schema   SchemaServicer
	recorder Recorder
	version  string
	now      func() time.Time
}

// NewTransferService creates a new TransferService. version tags exported
// snapshots; empty selects DefaultBackupVersion.
func NewTransferService(log logger.Logger, records RecordServicer, schema SchemaServicer, version string) *TransferService {
	if version == "" {
		version = DefaultBackupVersion
	}
	return &TransferService{
		log:      log,
		records:  records,
		schema:   schema,
		recorder: nopRecorder{},
		version:  version,
		now:      time.Now,
	}
}

// SetRecorder sets the metrics recorder
func (s *TransferService) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	s.recorder = r
}

// SetClock overrides the time source (for testing)
func (s *TransferService) SetClock(now func() time.Time) {
	s.now = now
}

// importColumn identifies a recognized column of an import file
type importColumn int

const (
	colIgnored importColumn = iota
	colName
	colDateOfBirth
	colSchool
	colSport
)

var headerAliases = map[string]importColumn{
	"name":           colName,
	"full name":      colName,
	"student name":   colName,
	"date of birth":  colDateOfBirth,
	"dob":            colDateOfBirth,
	"dateofbirth":    colDateOfBirth,
	"birth date":     colDateOfBirth,
	"birthdate":      colDateOfBirth,
	"school name":    colSchool,
	"school":         colSchool,
	"schoolname":     colSchool,
	"organization":   colSchool,
	"club":           colSchool,
	"sport":          colSport,
	"selected sport": colSport,
	"selectedsport":  colSport,
}

var headerHint = regexp.MustCompile(`\s*\(.*\)\s*$`)

// normalizeHeader lower-cases a header cell and drops a trailing
// parenthesised hint such as "(YYYY-MM-DD)".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = headerHint.ReplaceAllString(h, "")
	return strings.Join(strings.Fields(h), " ")
}

const utf8BOM = "\ufeff"

// ParseImportCSV reads a UTF-8 CSV file with a header row. Columns are
// matched case-insensitively against known aliases; others are ignored.
// Blank lines are skipped.
func (s *TransferService) ParseImportCSV(r io.Reader) ([]models.ImportRow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.InvalidInputf("read import file: %v", err)
	}
	raw = bytes.TrimPrefix(raw, []byte(utf8BOM))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, errors.InvalidInputf("parse import file: %v", err)
	}

	columns := make([]importColumn, len(header))
	for i, h := range header {
		columns[i] = headerAliases[normalizeHeader(h)]
	}

	var rows []models.ImportRow
	for {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.InvalidInputf("parse import file: %v", err)
		}

		line, _ := reader.FieldPos(0)
		row := models.ImportRow{Line: line}
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			switch columns[i] {
			case colName:
				row.Name = value
			case colDateOfBirth:
				row.DateOfBirth = value
			case colSchool:
				row.SchoolName = value
			case colSport:
				row.Sport = value
			}
		}
		row = row.Normalize()
		if row.Empty() {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}
	return rows, nil
}

// resolveSport matches sport case-insensitively against the configured ids
func resolveSport(sport string, sports []models.SportID) (models.SportID, bool) {
	for _, id := range sports {
		if strings.EqualFold(string(id), sport) {
			return id, true
		}
	}
	return "", false
}

// ValidateImportRow checks one import row against the configured sports
func ValidateImportRow(row models.ImportRow, sports []models.SportID) []string {
	row = row.Normalize()
	var msgs []string
	if row.Name == "" {
		msgs = append(msgs, "Name is required")
	}
	if _, err := time.Parse(models.DateLayout, row.DateOfBirth); err != nil {
		msgs = append(msgs, "Invalid date format")
	}
	if row.SchoolName == "" {
		msgs = append(msgs, "School name is required")
	}
	if _, ok := resolveSport(row.Sport, sports); !ok {
		msgs = append(msgs, fmt.Sprintf("Sport must be one of: %s", joinSports(sports)))
	}
	return msgs
}

// ImportRows validates every row and, only when all are valid, adds them
// as new pending candidates in a single write. Messages carry the row's
// file line; rows without one count the header as row 1.
func (s *TransferService) ImportRows(ctx context.Context, rows []models.ImportRow) ([]models.Candidate, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyImport
	}

	sports, err := s.schema.SportIDs(ctx)
	if err != nil {
		return nil, err
	}

	var msgs []string
	for i, row := range rows {
		line := row.Line
		if line == 0 {
			line = i + 2
		}
		for _, m := range ValidateImportRow(row, sports) {
			msgs = append(msgs, fmt.Sprintf("Row %d: %s", line, m))
		}
	}
	if len(msgs) > 0 {
		s.recorder.RecordImportRows("rejected", len(rows))
		return nil, errors.Validations("import rejected", msgs)
	}

	list := make([]models.Candidate, len(rows))
	for i, row := range rows {
		row = row.Normalize()
		sport, _ := resolveSport(row.Sport, sports)
		list[i] = models.Candidate{
			Name:          row.Name,
			DateOfBirth:   row.DateOfBirth,
			SchoolName:    row.SchoolName,
			SelectedSport: sport,
			Status:        models.StatusPending,
		}
	}

	added, err := s.records.AddMany(ctx, list)
	if err != nil {
		s.recorder.RecordImportRows("failed", len(rows))
		return nil, err
	}

	s.recorder.RecordImportRows("imported", len(added))
	s.log.Info("Import completed", "rows", len(added))
	return added, nil
}

// ImportTemplate returns a CSV file with the expected header and one example row
func (s *TransferService) ImportTemplate(ctx context.Context) ([]byte, error) {
	sports, err := s.schema.SportIDs(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(sports))
	for i, id := range sports {
		names[i] = string(id)
	}
	example := string(models.SportFootball)
	if len(names) > 0 {
		example = names[0]
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"Name",
		"Date of Birth (YYYY-MM-DD)",
		"School Name (or enter new)",
		fmt.Sprintf("Sport (%s)", strings.Join(names, "/")),
	})
	_ = w.Write([]string{"John Smith", "2012-05-14", "Riverside Academy", example})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Internal(err)
	}
	return buf.Bytes(), nil
}

// ExportSnapshot returns the full record set tagged with the backup version
func (s *TransferService) ExportSnapshot(ctx context.Context) (*models.Backup, error) {
	list, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Rank = nil
		list[i].EnsureMaps()
	}
	return &models.Backup{
		Version:   s.version,
		Timestamp: s.now().UTC(),
		Students:  list,
	}, nil
}

var requiredRecordFields = []string{"id", "name", "dateOfBirth", "schoolName"}

// RestoreSnapshot replaces every record with the contents of a backup
// blob. The blob must carry version and timestamp strings and a "students"
// array whose entries all carry id, name, dateOfBirth and schoolName. Any
// violation leaves the store untouched.
func (s *TransferService) RestoreSnapshot(ctx context.Context, blob []byte) RestoreResult {
	result := s.restoreSnapshot(ctx, blob)
	outcome := "success"
	if !result.Success {
		outcome = result.Reason
		s.log.Warn("Restore rejected", "reason", result.Reason, "message", result.Message)
	} else {
		s.log.Info("Restore completed", "records", result.Count)
	}
	s.recorder.RecordRestore(outcome)
	return result
}

func (s *TransferService) restoreSnapshot(ctx context.Context, blob []byte) RestoreResult {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		return restoreFailed(ReasonParseError, "backup is not valid JSON: %v", err)
	}

	if !nonEmptyString(doc["version"]) || !nonEmptyString(doc["timestamp"]) {
		return restoreFailed(ReasonInvalidStructure, "backup must carry a version and a timestamp")
	}
	rawStudents, ok := doc["students"]
	if !ok {
		return restoreFailed(ReasonInvalidStructure, "backup has no students list")
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(rawStudents, &entries); err != nil || entries == nil {
		return restoreFailed(ReasonInvalidStructure, "students must be an array of records")
	}

	list := make([]models.Candidate, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		for _, field := range requiredRecordFields {
			var v string
			if err := json.Unmarshal(entry[field], &v); err != nil || strings.TrimSpace(v) == "" {
				return restoreFailed(ReasonInvalidRecord, "record %d is missing %s", i+1, field)
			}
		}

		raw, _ := json.Marshal(entry)
		var c models.Candidate
		if err := json.Unmarshal(raw, &c); err != nil {
			return restoreFailed(ReasonInvalidRecord, "record %d: %v", i+1, err)
		}
		if c.Status == "" {
			c.Status = models.StatusPending
		}
		if !c.Status.Valid() {
			return restoreFailed(ReasonInvalidRecord, "record %d has invalid status %q", i+1, c.Status)
		}
		if seen[c.ID] {
			return restoreFailed(ReasonInvalidRecord, "record %d duplicates id %s", i+1, c.ID)
		}
		seen[c.ID] = true
		c.Rank = nil
		c.EnsureMaps()
		list = append(list, c)
	}

	if err := s.records.Restore(ctx, list); err != nil {
		return restoreFailed(ReasonPersistence, "%v", err)
	}
	return RestoreResult{Success: true, Count: len(list)}
}

func nonEmptyString(raw json.RawMessage) bool {
	var v string
	return json.Unmarshal(raw, &v) == nil && strings.TrimSpace(v) != ""
}

// ExportSchema returns the metric schema as a sibling backup blob
func (s *TransferService) ExportSchema(ctx context.Context) (*models.SchemaBackup, error) {
	sports, err := s.schema.GetSchema(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SchemaBackup{
		Version:   s.version,
		Timestamp: s.now().UTC(),
		Sports:    sports,
	}, nil
}

// RestoreSchema replaces the metric schema with the contents of a schema
// blob. Built-in sports keep their canonical metrics.
func (s *TransferService) RestoreSchema(ctx context.Context, blob []byte) RestoreResult {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		return restoreFailed(ReasonParseError, "schema backup is not valid JSON: %v", err)
	}
	rawSports, ok := doc["sports"]
	if !ok {
		return restoreFailed(ReasonInvalidStructure, "schema backup has no sports list")
	}
	var sports []models.SportConfig
	if err := json.Unmarshal(rawSports, &sports); err != nil || sports == nil {
		return restoreFailed(ReasonInvalidStructure, "sports must be an array of sport configurations")
	}

	sports = ApplyBuiltinOverride(sports)
	if msgs := ValidateSchema(sports); len(msgs) > 0 {
		return RestoreResult{Reason: ReasonInvalidRecord, Message: strings.Join(msgs, "; ")}
	}
	if err := s.schema.SaveSchema(ctx, sports); err != nil {
		return restoreFailed(ReasonPersistence, "%v", err)
	}

	s.log.Info("Schema restored", "sports", len(sports))
	return RestoreResult{Success: true, Count: len(sports)}
}
