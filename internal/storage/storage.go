package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fennel-tools/tabdeck/internal/applog"
	"github.com/fennel-tools/tabdeck/internal/types"
)

// RevisionSummary holds the metadata of a stored session revision.
type RevisionSummary struct {
	ID        int64
	Rev       int
	Workspace string
	CreatedAt time.Time
	TabCount  int
}

// migration is a numbered schema change. Migrations are applied in order
// and tracked in the schema_migrations table so each runs exactly once.
type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS sessions (
    workspace   TEXT PRIMARY KEY,
    payload     TEXT NOT NULL,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	},
	{
		Version:     2,
		Description: "session revision history",
		SQL: `
CREATE TABLE IF NOT EXISTS session_revisions (
    id          INTEGER PRIMARY KEY,
    workspace   TEXT NOT NULL,
    rev         INTEGER NOT NULL,
    payload     TEXT NOT NULL,
    tab_count   INTEGER NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(workspace, rev)
);`,
	},
}

// OpenDB opens (or creates) a SQLite database at the given path.
// It creates parent directories if needed, enables foreign keys and WAL
// mode, and runs any pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// DefaultDBPath returns the default database file path:
// ~/.local/share/tabdeck/tabdeck.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tabdeck", "tabdeck.db"), nil
}

// SaveSession upserts the serialized session for a workspace. Called after
// every tab mutation.
func SaveSession(db *sql.DB, workspace string, sess *types.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = db.Exec(`INSERT INTO sessions (workspace, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(workspace) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		workspace, string(payload),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession reads the persisted session for a workspace. Absent or
// malformed data returns (nil, nil); the caller falls back to a fresh
// single-tab session rather than failing startup.
func LoadSession(db *sql.DB, workspace string) (*types.Session, error) {
	var payload string
	err := db.QueryRow("SELECT payload FROM sessions WHERE workspace = ?", workspace).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	var sess types.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		applog.Error("session.load", err, "workspace", workspace)
		return nil, nil
	}
	return &sess, nil
}

// DeleteSession removes the persisted session for a workspace.
func DeleteSession(db *sql.DB, workspace string) error {
	if _, err := db.Exec("DELETE FROM sessions WHERE workspace = ?", workspace); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CreateRevision appends a history snapshot of the session. The rev number
// is auto-assigned per workspace. Returns the assigned rev.
func CreateRevision(db *sql.DB, workspace string, sess *types.Session) (int, error) {
	payload, err := json.Marshal(sess)
	if err != nil {
		return 0, fmt.Errorf("marshal session: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rev int
	err = tx.QueryRow("SELECT COALESCE(MAX(rev), 0) + 1 FROM session_revisions WHERE workspace = ?", workspace).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("compute next rev: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO session_revisions (workspace, rev, payload, tab_count) VALUES (?, ?, ?, ?)",
		workspace, rev, string(payload), len(sess.Tabs),
	)
	if err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return rev, nil
}

// ListRevisions returns a workspace's revisions, newest first.
func ListRevisions(db *sql.DB, workspace string) ([]RevisionSummary, error) {
	rows, err := db.Query(
		"SELECT id, rev, workspace, created_at, tab_count FROM session_revisions WHERE workspace = ? ORDER BY rev DESC",
		workspace,
	)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var result []RevisionSummary
	for rows.Next() {
		var r RevisionSummary
		if err := rows.Scan(&r.ID, &r.Rev, &r.Workspace, &r.CreatedAt, &r.TabCount); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return result, nil
}

// GetRevision loads a revision's session by workspace and rev number.
// Rev 0 means the latest; (nil, nil) if the workspace has no revisions.
func GetRevision(db *sql.DB, workspace string, rev int) (*types.Session, error) {
	var payload string
	var err error
	if rev == 0 {
		err = db.QueryRow(
			"SELECT payload FROM session_revisions WHERE workspace = ? ORDER BY rev DESC LIMIT 1",
			workspace,
		).Scan(&payload)
		if err == sql.ErrNoRows {
			return nil, nil
		}
	} else {
		err = db.QueryRow(
			"SELECT payload FROM session_revisions WHERE workspace = ? AND rev = ?",
			workspace, rev,
		).Scan(&payload)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("revision %d not found for workspace %q", rev, workspace)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("query revision: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, fmt.Errorf("parse revision payload: %w", err)
	}
	return &sess, nil
}

// DeleteRevision removes a revision. Returns an error if it does not exist.
func DeleteRevision(db *sql.DB, workspace string, rev int) error {
	res, err := db.Exec("DELETE FROM session_revisions WHERE workspace = ? AND rev = ?", workspace, rev)
	if err != nil {
		return fmt.Errorf("delete revision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("revision %d not found for workspace %q", rev, workspace)
	}
	return nil
}

// DBSaver adapts a database handle to the tab store's Saver interface,
// binding it to one workspace.
type DBSaver struct {
	DB        *sql.DB
	Workspace string
}

// SaveSession implements tabstore.Saver.
func (s *DBSaver) SaveSession(sess *types.Session) error {
	return SaveSession(s.DB, s.Workspace, sess)
}
