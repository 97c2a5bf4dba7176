// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fairsailau/AI-clean-V2/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "templates.db"
)

// Store manages the template index SQLite database. Only schemas live
// here; extraction results are never persisted.
type Store struct {
	db           *sql.DB
	templatesDir string
}

// NewStore opens or creates the template index at
// templatesDir/index/templates.db, creating the schema if needed.
func NewStore(cfg types.TemplateStoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.TemplatesDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:           db,
		templatesDir: cfg.TemplatesDir,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS templates (
		key TEXT PRIMARY KEY,
		display_name TEXT,
		fields TEXT NOT NULL,
		file_mod_time TEXT
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// IngestSummary holds counts from a template indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of template files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads template YAML files from the templates directory and
// populates the index. Unchanged files are skipped on subsequent runs;
// one bad template does not abort the rest.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(s.templatesDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading templates directory %s: %w", s.templatesDir, err)
	}

	var summary IngestSummary

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := filepath.Join(s.templatesDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		tmpl, err := LoadFile(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", entry.Name(), err)
			summary.Failed++
			continue
		}

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM templates WHERE key = ?`, tmpl.Key,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", tmpl.Key)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		if err := s.upsert(ctx, tmpl, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", tmpl.Key, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d fields)\n", tmpl.Key, len(tmpl.Fields))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d fields)\n", tmpl.Key, len(tmpl.Fields))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) upsert(ctx context.Context, tmpl *types.Template, modTime string) error {
	fieldsJSON, err := json.Marshal(tmpl.Fields)
	if err != nil {
		return fmt.Errorf("marshaling fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (key, display_name, fields, file_mod_time)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			display_name=excluded.display_name, fields=excluded.fields,
			file_mod_time=excluded.file_mod_time`,
		tmpl.Key, tmpl.DisplayName, string(fieldsJSON), modTime,
	)
	if err != nil {
		return fmt.Errorf("upserting template %s: %w", tmpl.Key, err)
	}
	return nil
}

// Get returns the template stored under key.
func (s *Store) Get(ctx context.Context, key string) (*types.Template, error) {
	var displayName, fieldsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name, fields FROM templates WHERE key = ?`, key,
	).Scan(&displayName, &fieldsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template %q not found in store", key)
	}
	if err != nil {
		return nil, fmt.Errorf("querying template %s: %w", key, err)
	}

	var fields map[string]types.FieldDefinition
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("parsing stored fields for %s: %w", key, err)
	}

	return &types.Template{
		Key:         key,
		DisplayName: displayName,
		Fields:      fields,
	}, nil
}

// Info summarizes one stored template for listings.
type Info struct {
	Key         string `json:"key" yaml:"key"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	FieldCount  int    `json:"field_count" yaml:"field_count"`
}

// List returns all stored templates ordered by key.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, display_name, fields FROM templates ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var fieldsJSON string
		if err := rows.Scan(&info.Key, &info.DisplayName, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("scanning template row: %w", err)
		}
		var fields map[string]types.FieldDefinition
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("parsing stored fields for %s: %w", info.Key, err)
		}
		info.FieldCount = len(fields)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// isYAML reports whether the file name has a YAML extension.
func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
