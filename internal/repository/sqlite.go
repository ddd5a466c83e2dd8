package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexyhq/lexy/internal/project"
	"github.com/lexyhq/lexy/internal/transcription"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id                 TEXT NOT NULL,
	owner_id           TEXT NOT NULL,
	name               TEXT NOT NULL,
	language           TEXT NOT NULL DEFAULT 'auto',
	duration           INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL,
	audio_reference    TEXT NOT NULL DEFAULT '',
	transcript         TEXT,
	detected_languages TEXT,
	error_message      TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	expires_at         TEXT,
	PRIMARY KEY (owner_id, id)
);
CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects (owner_id, created_at);
`

// SQLite is the durable repository implementation.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed initialises) the project database.
func NewSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open project database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise project schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// record is the single canonical stored representation. Dates are
// RFC3339 strings; transcript and detected languages are JSON columns.
// Serialization happens only here, at the persistence boundary.
type record struct {
	ID             string
	OwnerID        string
	Name           string
	Language       string
	Duration       int
	Status         string
	AudioReference string
	Transcript     sql.NullString
	DetectedLangs  sql.NullString
	ErrorMessage   string
	CreatedAt      string
	ExpiresAt      sql.NullString
}

func encode(p *project.Project) (*record, error) {
	rec := &record{
		ID:             p.ID,
		OwnerID:        p.OwnerID,
		Name:           p.Name,
		Language:       p.Language,
		Duration:       p.Duration,
		Status:         string(p.Status),
		AudioReference: p.AudioReference,
		ErrorMessage:   p.ErrorMessage,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Transcript != nil {
		data, err := json.Marshal(p.Transcript)
		if err != nil {
			return nil, fmt.Errorf("encode transcript: %w", err)
		}
		rec.Transcript = sql.NullString{String: string(data), Valid: true}
	}
	if p.DetectedLanguages != nil {
		data, err := json.Marshal(p.DetectedLanguages)
		if err != nil {
			return nil, fmt.Errorf("encode detected languages: %w", err)
		}
		rec.DetectedLangs = sql.NullString{String: string(data), Valid: true}
	}
	if !p.ExpiresAt.IsZero() {
		rec.ExpiresAt = sql.NullString{String: p.ExpiresAt.UTC().Format(time.RFC3339), Valid: true}
	}
	return rec, nil
}

func (r *record) decode() (*project.Project, error) {
	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	p := &project.Project{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Name:           r.Name,
		Language:       r.Language,
		Duration:       r.Duration,
		Status:         project.Status(r.Status),
		AudioReference: r.AudioReference,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      createdAt,
	}
	if r.Transcript.Valid {
		var rows []transcription.Row
		if err := json.Unmarshal([]byte(r.Transcript.String), &rows); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		p.Transcript = rows
	}
	if r.DetectedLangs.Valid {
		var langs []string
		if err := json.Unmarshal([]byte(r.DetectedLangs.String), &langs); err != nil {
			return nil, fmt.Errorf("decode detected languages: %w", err)
		}
		p.DetectedLanguages = langs
	}
	if r.ExpiresAt.Valid {
		expiresAt, err := time.Parse(time.RFC3339, r.ExpiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("decode expires_at: %w", err)
		}
		p.ExpiresAt = expiresAt
	}
	return p, nil
}

// Create inserts a new project row.
func (s *SQLite) Create(ctx context.Context, p *project.Project) error {
	rec, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, name, language, duration, status,
			audio_reference, transcript, detected_languages, error_message,
			created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.Name, rec.Language, rec.Duration, rec.Status,
		rec.AudioReference, rec.Transcript, rec.DetectedLangs, rec.ErrorMessage,
		rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

const selectColumns = `id, owner_id, name, language, duration, status,
	audio_reference, transcript, detected_languages, error_message,
	created_at, expires_at`

func scan(row interface{ Scan(dest ...any) error }) (*project.Project, error) {
	var rec record
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.Language,
		&rec.Duration, &rec.Status, &rec.AudioReference, &rec.Transcript,
		&rec.DetectedLangs, &rec.ErrorMessage, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return rec.decode()
}

// Get returns the project or ErrNotFound.
func (s *SQLite) Get(ctx context.Context, id, ownerID string) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM projects WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	return p, nil
}

// List returns the owner's projects, newest first.
func (s *SQLite) List(ctx context.Context, ownerID string) ([]*project.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM projects WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]*project.Project, 0)
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies a partial update in a single statement so status and
// transcript changes land together.
func (s *SQLite) Update(ctx context.Context, id, ownerID string, fields Fields) error {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 9)

	if fields.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *fields.Name)
	}
	if fields.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if fields.AudioReference != nil {
		sets = append(sets, "audio_reference = ?")
		args = append(args, *fields.AudioReference)
	}
	if fields.Duration != nil {
		sets = append(sets, "duration = ?")
		args = append(args, *fields.Duration)
	}
	if fields.Transcript != nil {
		data, err := json.Marshal(*fields.Transcript)
		if err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		sets = append(sets, "transcript = ?")
		args = append(args, string(data))
	}
	if fields.DetectedLanguages != nil {
		data, err := json.Marshal(*fields.DetectedLanguages)
		if err != nil {
			return fmt.Errorf("encode detected languages: %w", err)
		}
		sets = append(sets, "detected_languages = ?")
		args = append(args, string(data))
	}
	if fields.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *fields.ErrorMessage)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id, ownerID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ? AND owner_id = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the project or returns ErrNotFound.
func (s *SQLite) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
