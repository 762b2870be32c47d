package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/licenselab/packscan/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS packs (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	version TEXT NOT NULL,
	UNIQUE (name, version)
);

CREATE TABLE IF NOT EXISTS libraries (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	version   TEXT NOT NULL,
	type      TEXT NOT NULL,
	file_name TEXT NOT NULL DEFAULT '',
	vendor    TEXT NOT NULL DEFAULT '',
	UNIQUE (name, version, type)
);

CREATE TABLE IF NOT EXISTS licenses (
	key  TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	url  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pack_libraries (
	pack_id    INTEGER NOT NULL REFERENCES packs (id),
	library_id INTEGER NOT NULL REFERENCES libraries (id),
	UNIQUE (pack_id, library_id)
);

CREATE TABLE IF NOT EXISTS library_licenses (
	library_id  INTEGER PRIMARY KEY REFERENCES libraries (id),
	license_key TEXT NOT NULL REFERENCES licenses (key)
);
`

// SQLite is the Store implementation backed by a local SQLite database.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// One writer at a time keeps go-sqlite3 out of SQLITE_BUSY territory.
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// UpsertPack stores the pack identity and returns its row id.
func (s *SQLite) UpsertPack(ctx context.Context, name, version string) (int64, error) {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO packs (name, version) VALUES (?, ?) ON CONFLICT (name, version) DO NOTHING`,
		name, version)
	if err != nil {
		return 0, fmt.Errorf("upsert pack %s-%s: %w", name, version, err)
	}

	var id int64
	err = s.conn.QueryRowContext(ctx,
		`SELECT id FROM packs WHERE name = ? AND version = ?`,
		name, version).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve pack id for %s-%s: %w", name, version, err)
	}
	return id, nil
}

// UpsertLibrary stores a library keyed by (name, version, type) and returns
// its row id. File name and vendor are refreshed on conflict so corrected
// records overwrite stale metadata.
func (s *SQLite) UpsertLibrary(ctx context.Context, lib *types.Library) (int64, error) {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO libraries (name, version, type, file_name, vendor)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name, version, type) DO UPDATE SET
		 	file_name = excluded.file_name,
		 	vendor    = excluded.vendor`,
		lib.Name, lib.Version, string(lib.Type), lib.FileName, lib.Vendor)
	if err != nil {
		return 0, fmt.Errorf("upsert library %s-%s: %w", lib.Name, lib.Version, err)
	}

	var id int64
	err = s.conn.QueryRowContext(ctx,
		`SELECT id FROM libraries WHERE name = ? AND version = ? AND type = ?`,
		lib.Name, lib.Version, string(lib.Type)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve library id for %s-%s: %w", lib.Name, lib.Version, err)
	}
	return id, nil
}

// LinkPackLibrary records that the pack ships the library.
func (s *SQLite) LinkPackLibrary(ctx context.Context, packID, libraryID int64) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO pack_libraries (pack_id, library_id) VALUES (?, ?)
		 ON CONFLICT (pack_id, library_id) DO NOTHING`,
		packID, libraryID)
	if err != nil {
		return fmt.Errorf("link pack %d to library %d: %w", packID, libraryID, err)
	}
	return nil
}

// LibraryLicense returns the license key assigned to the library.
func (s *SQLite) LibraryLicense(ctx context.Context, libraryID int64) (string, bool, error) {
	var key string
	err := s.conn.QueryRowContext(ctx,
		`SELECT license_key FROM library_licenses WHERE library_id = ?`,
		libraryID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("license for library %d: %w", libraryID, err)
	}
	return key, true, nil
}

// SetLibraryLicense assigns a license key to the library.
func (s *SQLite) SetLibraryLicense(ctx context.Context, libraryID int64, key string) error {
	if _, err := s.License(ctx, key); err != nil {
		return err
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO library_licenses (library_id, license_key) VALUES (?, ?)
		 ON CONFLICT (library_id) DO UPDATE SET license_key = excluded.license_key`,
		libraryID, key)
	if err != nil {
		return fmt.Errorf("assign license %q to library %d: %w", key, libraryID, err)
	}
	return nil
}

// AddLicense registers a selectable license definition.
func (s *SQLite) AddLicense(ctx context.Context, lic License) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO licenses (key, name, url) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET name = excluded.name, url = excluded.url`,
		lic.Key, lic.Name, lic.URL)
	if err != nil {
		return fmt.Errorf("add license %q: %w", lic.Key, err)
	}
	return nil
}

// Licenses lists all selectable license definitions ordered by key.
func (s *SQLite) Licenses(ctx context.Context) ([]License, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, name, url FROM licenses ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	var out []License
	for rows.Next() {
		var lic License
		if err := rows.Scan(&lic.Key, &lic.Name, &lic.URL); err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		out = append(out, lic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate licenses: %w", err)
	}
	return out, nil
}

// License returns one license definition by key.
func (s *SQLite) License(ctx context.Context, key string) (License, error) {
	var lic License
	err := s.conn.QueryRowContext(ctx,
		`SELECT key, name, url FROM licenses WHERE key = ?`, key).
		Scan(&lic.Key, &lic.Name, &lic.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return License{}, fmt.Errorf("license %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return License{}, fmt.Errorf("get license %q: %w", key, err)
	}
	return lic, nil
}
