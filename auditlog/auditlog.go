/*
Package auditlog implements the operations audit log (§9 D.3): an
append-only record of every BatchGet/Commit/BeginTransaction/Rollback call,
kept entirely separate from document state (explicitly not the Document
Store — there is no durable document persistence per spec.md's Non-goals).

Grounded on store/sqlite/sqlite.go's migrate-then-prepare idiom (a fixed schema
applied once at open time, then a small set of prepared statements reused
for the life of the handle) — repurposed here from a PTO-ledger table to a
generic operations log, and from the authoritative store of record to a
side-channel diagnostic trail.
*/
package auditlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	op TEXT NOT NULL,
	detail TEXT NOT NULL,
	at TEXT NOT NULL
);
`

// Log is a sqlite-backed append-only operations log. Implements
// engine.Auditor.
type Log struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open creates or attaches to a sqlite database at dsn (a file path, or
// ":memory:" for an ephemeral log) and applies the schema.
func Open(dsn string) (*Log, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open %q: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: migrate: %w", err)
	}
	insert, err := db.Prepare(`INSERT INTO operations (op, detail, at) VALUES (?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("auditlog: prepare insert: %w", err)
	}
	return &Log{db: db, insert: insert}, nil
}

// Record implements engine.Auditor: appends one row. A write failure is
// swallowed after logging nothing — the audit log is diagnostic, not
// authoritative, so it must never block or fail an operation it's
// recording.
func (l *Log) Record(op string, detail string, at time.Time) {
	if l == nil {
		return
	}
	_, _ = l.insert.Exec(op, detail, at.UTC().Format(time.RFC3339Nano))
}

// Entry is one row read back from the log.
type Entry struct {
	ID     int64
	Op     string
	Detail string
	At     time.Time
}

// Recent returns the most recent n entries, newest first.
func (l *Log) Recent(n int) ([]Entry, error) {
	rows, err := l.db.Query(`SELECT id, op, detail, at FROM operations ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("auditlog: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.Op, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("auditlog: scan: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("auditlog: parse timestamp %q: %w", at, err)
		}
		e.At = t
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}
