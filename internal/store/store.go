// Package store persists projects, their chapters and cached analysis
// reports in sqlite. Reports are keyed by analysis kind plus the exact
// parameter string, so two requests with different thresholds never share
// a cache entry.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"narrative_engine/internal/segment"
)

var ErrNotFound = errors.New("not found")

type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProject stores a project with its chapters in one transaction.
func (s *Store) CreateProject(title string, chapters []segment.Chapter) (Project, error) {
	p := Project{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Project{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO projects(id, title, created_at) VALUES(?,?,?)`,
		p.ID, p.Title, p.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	for _, ch := range chapters {
		if _, err := tx.Exec(
			`INSERT INTO chapters(project_id, number, text) VALUES(?,?,?)`,
			p.ID, ch.Number, ch.Text,
		); err != nil {
			return Project{}, fmt.Errorf("insert chapter %d: %w", ch.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Project{}, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

func (s *Store) Project(id string) (Project, error) {
	row := s.db.QueryRow(`SELECT id, title, created_at FROM projects WHERE id = ?`, id)
	var p Project
	var created string
	if err := row.Scan(&p.ID, &p.Title, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, fmt.Errorf("scan project: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	p.CreatedAt = t
	return p, nil
}

func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`SELECT id, title, created_at FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var created string
		if err := rows.Scan(&p.ID, &p.Title, &created); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		p.CreatedAt = t
		out = append(out, p)
	}
	return out, rows.Err()
}

// Chapters returns the project's chapters in order. ErrNotFound when the
// project does not exist, even if it legitimately has zero chapters.
func (s *Store) Chapters(projectID string) ([]segment.Chapter, error) {
	if _, err := s.Project(projectID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT number, text FROM chapters WHERE project_id = ? ORDER BY number`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	var out []segment.Chapter
	for rows.Next() {
		var ch segment.Chapter
		if err := rows.Scan(&ch.Number, &ch.Text); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// SaveReport caches a report payload as JSON under (project, kind, params).
func (s *Store) SaveReport(projectID, kind, params string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO reports(project_id, kind, params, payload, created_at) VALUES(?,?,?,?,?)`,
		projectID, kind, params, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// CachedReport unmarshals a cached payload into out. ErrNotFound when no
// entry matches.
func (s *Store) CachedReport(projectID, kind, params string, out any) error {
	row := s.db.QueryRow(
		`SELECT payload FROM reports WHERE project_id = ? AND kind = ? AND params = ?`,
		projectID, kind, params,
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan report: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("unmarshal report: %w", err)
	}
	return nil
}
