package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ImportRecord is one dislike in a JSON dump. The browser build stored the
// kind under "type"; "kind" is accepted as well.
type ImportRecord struct {
	ID        string     `json:"_id,omitempty"`
	Type      string     `json:"type"`
	Kind      string     `json:"kind,omitempty"`
	URI       string     `json:"uri"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// pouchDump matches the output of PouchDB allDocs({include_docs: true}).
type pouchDump struct {
	TotalRows int `json:"total_rows"`
	Rows      []struct {
		ID  string        `json:"id"`
		Doc *ImportRecord `json:"doc"`
	} `json:"rows"`
}

// MigrationProgress tracks the progress of an import
type MigrationProgress struct {
	Total       int
	Processed   int
	Imported    int
	Skipped     int
	StartTime   time.Time
	ElapsedTime time.Duration
	Errors      []error
}

// ProgressCallback is called periodically during an import to report progress
type ProgressCallback func(progress MigrationProgress)

// ImportOptions controls ImportJSON.
type ImportOptions struct {
	DryRun        bool
	ProgressEvery int
}

// ParseDump decodes a plain JSON array of records or a PouchDB allDocs dump.
func ParseDump(data []byte) ([]ImportRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("empty dump")
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []ImportRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse record array: %w", err)
		}
		return records, nil
	}

	var dump pouchDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to parse allDocs dump: %w", err)
	}

	records := make([]ImportRecord, 0, len(dump.Rows))
	for _, row := range dump.Rows {
		// Design documents hold views, not dislikes
		if row.Doc == nil || strings.HasPrefix(row.ID, "_design/") {
			continue
		}
		records = append(records, *row.Doc)
	}
	return records, nil
}

// ImportJSON reads a dump from r and upserts every valid record in one
// transaction. Invalid records are skipped and reported in the progress.
func (dm *DatabaseManager) ImportJSON(ctx context.Context, r io.Reader, opts ImportOptions, callback ProgressCallback) (MigrationProgress, error) {
	progress := MigrationProgress{StartTime: time.Now()}

	data, err := io.ReadAll(r)
	if err != nil {
		return progress, fmt.Errorf("failed to read dump: %w", err)
	}

	records, err := ParseDump(data)
	if err != nil {
		return progress, err
	}
	progress.Total = len(records)

	every := opts.ProgressEvery
	if every <= 0 {
		every = 100
	}

	tx, err := dm.DB.BeginTx(ctx, nil)
	if err != nil {
		return progress, storeError("import", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dislikes (kind, uri, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, uri) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return progress, storeError("import", err)
	}
	defer stmt.Close()

	now := dm.now().Unix()
	for i, rec := range records {
		progress.Processed++

		kind := Kind(strings.ToUpper(firstNonEmpty(rec.Type, rec.Kind, string(KindTrack))))
		if err := validate(kind, rec.URI); err != nil {
			progress.Skipped++
			progress.Errors = append(progress.Errors, fmt.Errorf("record %d: %w", i, err))
		} else {
			created := now
			if rec.CreatedAt != nil && !rec.CreatedAt.IsZero() {
				created = rec.CreatedAt.Unix()
			}
			if _, err := stmt.ExecContext(ctx, string(kind), rec.URI, rec.Name, created, now); err != nil {
				return progress, storeError("import", fmt.Errorf("record %d (%s): %w", i, rec.URI, err))
			}
			progress.Imported++
		}

		if callback != nil && (progress.Processed%every == 0 || progress.Processed == progress.Total) {
			progress.ElapsedTime = time.Since(progress.StartTime)
			callback(progress)
		}
	}

	progress.ElapsedTime = time.Since(progress.StartTime)

	if opts.DryRun {
		dm.logger.Info("Dry run import finished", zap.Int("would_import", progress.Imported), zap.Int("skipped", progress.Skipped))
		return progress, nil
	}

	if err := tx.Commit(); err != nil {
		return progress, storeError("import", err)
	}

	dm.logger.Info("Import finished",
		zap.Int("imported", progress.Imported),
		zap.Int("skipped", progress.Skipped),
		zap.Duration("elapsed", progress.ElapsedTime))
	return progress, nil
}

// ExportJSON writes every record as an indented JSON array in store order and
// returns how many were written.
func (dm *DatabaseManager) ExportJSON(ctx context.Context, w io.Writer) (int, error) {
	rows, err := dm.DB.QueryContext(ctx, `
		SELECT id, kind, uri, name, created_at, COALESCE(updated_at, created_at)
		FROM dislikes
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return 0, storeError("export", err)
	}
	defer rows.Close()

	entities := []Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return 0, storeError("export", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return 0, storeError("export", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entities); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	return len(entities), nil
}

// Validate checks schema version, SQLite integrity and record sanity.
func (dm *DatabaseManager) Validate(ctx context.Context) (bool, []string) {
	var issues []string

	version, err := GetSchemaVersion(dm.DB)
	if err != nil {
		issues = append(issues, fmt.Sprintf("failed to read schema version: %v", err))
		return false, issues
	}
	if version != SchemaVersion {
		issues = append(issues, fmt.Sprintf("schema version %d, expected %d", version, SchemaVersion))
	}

	var integrity string
	if err := dm.DB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		issues = append(issues, fmt.Sprintf("failed to run integrity check: %v", err))
		return false, issues
	}
	if integrity != "ok" {
		issues = append(issues, "integrity check: "+integrity)
	}

	var empty, unknown int
	if err := dm.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM dislikes WHERE uri = ''").Scan(&empty); err != nil {
		issues = append(issues, fmt.Sprintf("failed to count empty uris: %v", err))
		return false, issues
	}
	if empty > 0 {
		issues = append(issues, fmt.Sprintf("%d records without uri", empty))
	}
	if err := dm.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM dislikes WHERE kind <> ?", string(KindTrack)).Scan(&unknown); err != nil {
		issues = append(issues, fmt.Sprintf("failed to count unknown kinds: %v", err))
		return false, issues
	}
	if unknown > 0 {
		issues = append(issues, fmt.Sprintf("%d records with unknown kind", unknown))
	}

	return len(issues) == 0, issues
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
