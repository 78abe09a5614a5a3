// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package localdb is a vulndb.Source backed by a local SQLite mirror, for
// scans that run without network access.
package localdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/osv-depcheck/identity"
	"github.com/google/osv-depcheck/vulndb"
	_ "modernc.org/sqlite" // Import sqlite driver
)

// Name is the source name recorded on the returned records.
const Name = "localdb"

// ErrInvalidDatabase is returned when the file isn't a vulnerability mirror.
var ErrInvalidDatabase = errors.New("invalid vulnerability database")

const schema = `
CREATE TABLE IF NOT EXISTS vulnerabilities (
	id       TEXT PRIMARY KEY,
	summary  TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL DEFAULT '',
	aliases  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS affected (
	vuln_id   TEXT NOT NULL REFERENCES vulnerabilities(id) ON DELETE CASCADE,
	ecosystem TEXT NOT NULL,
	package   TEXT NOT NULL,
	version   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS refs (
	vuln_id TEXT NOT NULL REFERENCES vulnerabilities(id) ON DELETE CASCADE,
	name    TEXT NOT NULL DEFAULT '',
	url     TEXT NOT NULL,
	source  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS refs_vuln ON refs (vuln_id);
CREATE INDEX IF NOT EXISTS affected_package ON affected (ecosystem, package, version);
`

// Affected is a package version an Entry applies to.
type Affected struct {
	Ecosystem string
	Package   string
	Version   string
}

// Entry is a vulnerability as stored in the mirror.
type Entry struct {
	ID      string
	Summary string
	// Severity is a CVSS vector.
	Severity   string
	Aliases    []string
	Affected   []Affected
	References []vulndb.Reference
}

// DB is a vulnerability mirror.
type DB struct {
	db *sql.DB
}

var _ vulndb.Source = &DB{}

// Open opens the mirror at path, creating it if needed.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vulnerability database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidDatabase, path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Name returns the source name.
func (*DB) Name() string { return Name }

// Put stores e, replacing any entry with the same ID.
func (d *DB) Put(ctx context.Context, e Entry) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"affected", "refs"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE vuln_id = ?", e.ID); err != nil {
			return fmt.Errorf("failed to store %s: %w", e.ID, err)
		}
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO vulnerabilities (id, summary, severity, aliases) VALUES (?, ?, ?, ?)",
		e.ID, e.Summary, e.Severity, strings.Join(e.Aliases, ","))
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", e.ID, err)
	}
	for _, a := range e.Affected {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO affected (vuln_id, ecosystem, package, version) VALUES (?, ?, ?, ?)",
			e.ID, a.Ecosystem, a.Package, a.Version)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", e.ID, err)
		}
	}
	for _, r := range e.References {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO refs (vuln_id, name, url, source) VALUES (?, ?, ?, ?)",
			e.ID, r.Name, r.URL, r.Source)
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Lookup returns the entries listing the exact package version of id.
func (d *DB) Lookup(ctx context.Context, id identity.Identity) ([]vulndb.Record, error) {
	eco := id.PURL.Ecosystem()
	if eco == "" || id.PURL.Version == "" {
		return nil, nil
	}
	rows, err := d.db.QueryContext(ctx, `
	SELECT DISTINCT v.id, v.summary, v.severity, v.aliases
	FROM vulnerabilities v
	JOIN affected a ON a.vuln_id = v.id
	WHERE a.ecosystem = ? AND a.package = ? AND a.version = ?
	ORDER BY v.id`, eco, id.PURL.PackageName(), id.PURL.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", id, err)
	}
	defer rows.Close()

	var records []vulndb.Record
	for rows.Next() {
		var r vulndb.Record
		var aliases string
		if err := rows.Scan(&r.ID, &r.Summary, &r.Severity, &aliases); err != nil {
			return nil, fmt.Errorf("failed to scan vulnerability row: %w", err)
		}
		if aliases != "" {
			r.Aliases = strings.Split(aliases, ",")
		}
		r.Score, r.Rating = -1.0, vulndb.RatingUnknown
		if score, rating, err := vulndb.ScoreVector(r.Severity); err == nil && score >= 0 {
			r.Score, r.Rating = score, rating
		}
		r.Source = Name
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range records {
		refs, err := d.references(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].References = refs
	}
	return records, nil
}

func (d *DB) references(ctx context.Context, vulnID string) ([]vulndb.Reference, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name, url, source FROM refs WHERE vuln_id = ?", vulnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query references of %s: %w", vulnID, err)
	}
	defer rows.Close()

	var refs []vulndb.Reference
	for rows.Next() {
		var r vulndb.Reference
		if err := rows.Scan(&r.Name, &r.URL, &r.Source); err != nil {
			return nil, fmt.Errorf("failed to scan reference row: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vulndb.SortReferences(refs), nil
}
