package savegame

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"railgrid.dev/internal/sim/catalogs"
	"railgrid.dev/internal/sim/tuning"
	"railgrid.dev/internal/sim/world"
)

const formatVersion = 1

// Save writes the whole world into a sqlite savegame at path,
// replacing any previous content atomically in one transaction.
func Save(path string, w *world.World, cats *catalogs.Catalogs) error {
	if path == "" {
		return fmt.Errorf("empty save path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	db, err := open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	st := w.Export()

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"meta", "companies", "tiles", "trains", "reservations", "programs"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	cfgJSON, err := json.Marshal(st.Cfg)
	if err != nil {
		return err
	}
	meta := [][2]string{
		{"format_version", fmt.Sprintf("%d", formatVersion)},
		{"cfg", string(cfgJSON)},
		{"rail_types_digest", cats.RailTypesDigest},
		{"saved_at", time.Now().UTC().Format(time.RFC3339)},
	}
	for _, kv := range meta {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return err
		}
	}

	for _, co := range st.Companies {
		raw, err := json.Marshal(co)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO companies (id, raw_json) VALUES (?, ?)`, co.ID, string(raw)); err != nil {
			return err
		}
	}
	for _, t := range st.Tiles {
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO tiles (x, y, raw_json) VALUES (?, ?, ?)`, t.X, t.Y, string(raw)); err != nil {
			return err
		}
	}
	for _, tr := range st.Trains {
		raw, err := json.Marshal(tr)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO trains (id, raw_json) VALUES (?, ?)`, tr.ID, string(raw)); err != nil {
			return err
		}
	}
	for _, r := range st.Reserved {
		if _, err := tx.Exec(`INSERT INTO reservations (x, y, track, train) VALUES (?, ?, ?, ?)`,
			r.X, r.Y, r.Track, r.Train); err != nil {
			return err
		}
	}
	for _, p := range st.Programs {
		if _, err := tx.Exec(`INSERT INTO programs (x, y, track, owner, body, sides) VALUES (?, ?, ?, ?, ?, ?)`,
			p.X, p.Y, p.Track, p.Owner, p.Body, p.Sides); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Load rebuilds a world from a savegame. The running catalog must match
// the one the save was made against; rail type ids are stored raw.
func Load(path string, cats *catalogs.Catalogs, tun tuning.Tuning) (*world.World, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var st world.SaveState

	var version int
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'format_version'`).Scan(&version); err != nil {
		return nil, fmt.Errorf("savegame meta: %w", err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported savegame format %d", version)
	}
	var digest string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'rail_types_digest'`).Scan(&digest); err == nil {
		if digest != "" && digest != cats.RailTypesDigest {
			return nil, fmt.Errorf("savegame rail type catalog mismatch")
		}
	}
	var cfgJSON string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'cfg'`).Scan(&cfgJSON); err != nil {
		return nil, fmt.Errorf("savegame meta: %w", err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &st.Cfg); err != nil {
		return nil, fmt.Errorf("savegame cfg: %w", err)
	}

	if err := loadJSONRows(db, `SELECT raw_json FROM companies ORDER BY id`, func(raw []byte) error {
		var co world.CompanySave
		if err := json.Unmarshal(raw, &co); err != nil {
			return err
		}
		st.Companies = append(st.Companies, co)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadJSONRows(db, `SELECT raw_json FROM tiles ORDER BY y, x`, func(raw []byte) error {
		var t world.TileSave
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		st.Tiles = append(st.Tiles, t)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadJSONRows(db, `SELECT raw_json FROM trains ORDER BY id`, func(raw []byte) error {
		var tr world.TrainSave
		if err := json.Unmarshal(raw, &tr); err != nil {
			return err
		}
		st.Trains = append(st.Trains, tr)
		return nil
	}); err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT x, y, track, train FROM reservations`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var r world.ReservedSave
		if err := rows.Scan(&r.X, &r.Y, &r.Track, &r.Train); err != nil {
			rows.Close()
			return nil, err
		}
		st.Reserved = append(st.Reserved, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = db.Query(`SELECT x, y, track, owner, body, sides FROM programs`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p world.ProgramSave
		if err := rows.Scan(&p.X, &p.Y, &p.Track, &p.Owner, &p.Body, &p.Sides); err != nil {
			rows.Close()
			return nil, err
		}
		st.Programs = append(st.Programs, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	return world.Restore(st, cats, tun), nil
}

func loadJSONRows(db *sql.DB, query string, fn func(raw []byte) error) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn([]byte(raw)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS companies (
			id INTEGER PRIMARY KEY,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tiles (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (x, y)
		);`,
		`CREATE TABLE IF NOT EXISTS trains (
			id INTEGER PRIMARY KEY,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reservations (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			track INTEGER NOT NULL,
			train INTEGER NOT NULL,
			PRIMARY KEY (x, y, track)
		);`,
		`CREATE TABLE IF NOT EXISTS programs (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			track INTEGER NOT NULL,
			owner INTEGER NOT NULL,
			body TEXT NOT NULL,
			sides INTEGER NOT NULL,
			PRIMARY KEY (x, y, track)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
