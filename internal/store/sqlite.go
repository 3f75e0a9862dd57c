package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgnsrekt/tv_overlay/internal/drawing"
	"github.com/dgnsrekt/tv_overlay/internal/overlay"
)

// SQLiteStore backs the persistence contract with a single SQLite file.
// Scripts keep their symbol in a dedicated column so listing can filter
// without decoding every row; the full record lives as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scripts (
			owner      TEXT    NOT NULL,
			id         TEXT    NOT NULL,
			symbol     TEXT    NOT NULL DEFAULT '',
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (owner, id)
		);

		CREATE TABLE IF NOT EXISTS drawing_sets (
			profile    TEXT    NOT NULL PRIMARY KEY,
			version    INTEGER NOT NULL,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

func (s *SQLiteStore) SaveScript(owner string, script overlay.ChartScript) error {
	if err := validateScriptKey(owner, script.ID); err != nil {
		return err
	}
	data, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal script: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO scripts (owner, id, symbol, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner, id) DO UPDATE SET
			symbol = excluded.symbol,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, owner, script.ID, script.Symbol, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite store: upsert script: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetScript(owner, id string) (overlay.ChartScript, error) {
	if err := validateScriptKey(owner, id); err != nil {
		return overlay.ChartScript{}, err
	}
	var data string
	err := s.db.QueryRow(`SELECT data FROM scripts WHERE owner = ? AND id = ?`, owner, id).Scan(&data)
	if err == sql.ErrNoRows {
		return overlay.ChartScript{}, fmt.Errorf("script %s/%s: %w", owner, id, ErrNotFound)
	}
	if err != nil {
		return overlay.ChartScript{}, fmt.Errorf("sqlite store: query script: %w", err)
	}
	var script overlay.ChartScript
	if err := json.Unmarshal([]byte(data), &script); err != nil {
		return overlay.ChartScript{}, fmt.Errorf("sqlite store: unmarshal script: %w", err)
	}
	return script, nil
}

func (s *SQLiteStore) ListScripts(owner, symbol string) ([]overlay.ChartScript, error) {
	if !ValidKey(owner) {
		return nil, fmt.Errorf("sqlite store: invalid owner: %q", owner)
	}

	query := `SELECT data FROM scripts WHERE owner = ? ORDER BY id ASC`
	args := []any{owner}
	if symbol != "" {
		query = `SELECT data FROM scripts WHERE owner = ? AND (symbol = '' OR symbol = ?) ORDER BY id ASC`
		args = append(args, symbol)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query scripts: %w", err)
	}
	defer rows.Close()

	scripts := make([]overlay.ChartScript, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite store: scan script: %w", err)
		}
		var script overlay.ChartScript
		if err := json.Unmarshal([]byte(data), &script); err != nil {
			continue
		}
		scripts = append(scripts, script)
	}
	return scripts, rows.Err()
}

func (s *SQLiteStore) DeleteScript(owner, id string) error {
	if err := validateScriptKey(owner, id); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM scripts WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("sqlite store: delete script: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("script %s/%s: %w", owner, id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) SaveDrawings(profile string, set drawing.SavedSet) error {
	if !ValidKey(profile) {
		return fmt.Errorf("sqlite store: invalid profile: %q", profile)
	}
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("sqlite store: marshal drawings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO drawing_sets (profile, version, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, profile, set.Version, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite store: upsert drawings: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadDrawings(profile string) (drawing.SavedSet, error) {
	if !ValidKey(profile) {
		return drawing.SavedSet{}, fmt.Errorf("sqlite store: invalid profile: %q", profile)
	}
	var data string
	err := s.db.QueryRow(`SELECT data FROM drawing_sets WHERE profile = ?`, profile).Scan(&data)
	if err == sql.ErrNoRows {
		return drawing.SavedSet{Version: drawing.SavedSetVersion}, nil
	}
	if err != nil {
		return drawing.SavedSet{}, fmt.Errorf("sqlite store: query drawings: %w", err)
	}
	var set drawing.SavedSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return drawing.SavedSet{}, fmt.Errorf("sqlite store: unmarshal drawings: %w", err)
	}
	set.Migrate()
	return set, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
