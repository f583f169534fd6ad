// Package storage persists session snapshots in SQLite or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"trackit/internal/snapshot"
	"trackit/internal/state"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect struct {
	name   string
	load   string
	upsert string
	delete string
	list   string
}

var sqliteDialect = dialect{
	name: "sqlite",
	load: `SELECT payload FROM snapshots WHERE session_id = ?`,
	upsert: `INSERT INTO snapshots (session_id, version, payload, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(session_id) DO UPDATE SET
    version = excluded.version,
    payload = excluded.payload,
    updated_at = CURRENT_TIMESTAMP
WHERE snapshots.version < excluded.version`,
	delete: `DELETE FROM snapshots WHERE session_id = ?`,
	list:   `SELECT session_id FROM snapshots ORDER BY session_id`,
}

var postgresDialect = dialect{
	name: "postgres",
	load: `SELECT payload FROM snapshots WHERE session_id = $1`,
	upsert: `INSERT INTO snapshots (session_id, version, payload, updated_at)
VALUES ($1, $2, $3::jsonb, NOW())
ON CONFLICT (session_id) DO UPDATE SET
    version = EXCLUDED.version,
    payload = EXCLUDED.payload,
    updated_at = NOW()
WHERE snapshots.version < EXCLUDED.version`,
	delete: `DELETE FROM snapshots WHERE session_id = $1`,
	list:   `SELECT session_id FROM snapshots ORDER BY session_id`,
}

// Repository implements snapshot.Store on a SQL database. A save that does
// not advance the stored version fails with snapshot.ErrStaleVersion.
type Repository struct {
	db *sql.DB
	d  dialect
}

var _ snapshot.Store = (*Repository)(nil)

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite snapshot store ready", "path", dbPath)
	return &Repository{db: db, d: sqliteDialect}, nil
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunPostgresMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("PostgreSQL snapshot store ready")
	return &Repository{db: db, d: postgresDialect}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Load(ctx context.Context, sessionID string) (state.State, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, r.d.load, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return state.State{}, false, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	st, err := snapshot.Decode([]byte(payload))
	if err != nil {
		return state.State{}, false, err
	}
	return st, true, nil
}

func (r *Repository) Save(ctx context.Context, sessionID string, st state.State) error {
	if !snapshot.ValidSessionID(sessionID) {
		return snapshot.ErrInvalidSessionID
	}
	payload, err := snapshot.Encode(st)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.d.upsert, sessionID, st.Version, string(payload))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if n == 0 {
		slog.WarnContext(ctx, "Stale snapshot rejected",
			"session_id", sessionID,
			"version", st.Version,
			"driver", r.d.name)
		return fmt.Errorf("save snapshot %s at version %d: %w", sessionID, st.Version, snapshot.ErrStaleVersion)
	}

	slog.DebugContext(ctx, "Snapshot saved",
		"session_id", sessionID,
		"version", st.Version,
		"bytes", len(payload),
		"driver", r.d.name)
	return nil
}

func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, r.d.delete, sessionID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.d.list)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
