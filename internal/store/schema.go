package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    title TEXT,
    created_at TEXT
);

CREATE TABLE IF NOT EXISTS chapters (
    project_id TEXT,
    number INTEGER,
    text TEXT,
    PRIMARY KEY (project_id, number)
);

CREATE TABLE IF NOT EXISTS reports (
    project_id TEXT,
    kind TEXT,
    params TEXT,
    payload TEXT,
    created_at TEXT,
    PRIMARY KEY (project_id, kind, params)
);
`

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
