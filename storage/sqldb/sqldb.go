// Package sqldb owns the single connection to the embedded SQLite store
// and exposes the generic parameterized operations everything else is
// built on.
//
// SQL failures never escape this layer: they are logged together with the
// failing statement and surfaced as zero rows or zero affected rows.
// Callers treat those return shapes as the failure signal.
package sqldb

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/emberforge/embercore"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// bind maps parameter values onto the small set of types the driver
// stores natively: integers, floats, strings, byte blobs. Timestamps
// become nanosecond integers, booleans 0/1.
func bind(params []any) []any {
	for i, param := range params {
		switch v := param.(type) {
		case bool:
			if v {
				params[i] = int64(1)
			} else {
				params[i] = int64(0)
			}
		case float32:
			params[i] = float64(v)
		case time.Time:
			params[i] = v.UnixNano()
		}
	}
	return params
}

// Row is one result row keyed by column name.
type Row map[string]any

type DB struct {
	mutex  sync.Mutex
	path   string
	schema []string
	db     *sqlx.DB
}

// Open creates a handle without touching the file; the connection is
// established lazily, or eagerly via Connect. The schema statements are
// applied once on first connect and must be idempotent
// (CREATE ... IF NOT EXISTS only, no destructive migrations).
func Open(path string, schema ...string) *DB {
	return &DB{
		path:   path,
		schema: schema,
	}
}

// Connect opens and verifies the connection. Used at startup where a
// connectivity failure should disable the subsystem rather than surface
// later as empty query results.
func (d *DB) Connect() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return embercore.WithStack(d.ensure())
}

// ensure opens the connection if needed. Caller holds the mutex.
func (d *DB) ensure() error {
	if d.db != nil {
		return nil
	}
	db, err := sqlx.Open("sqlite", d.path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return embercore.WithStack(err)
	}
	// One long-lived connection for the process lifetime, no pooling.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return embercore.WithStack(err)
	}
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return embercore.WithStack(err)
		}
	}
	d.db = db
	return nil
}

// Query runs a parameterized read and invokes cb once per row until cb
// returns false. On failure the callback is simply never invoked.
func (d *DB) Query(query string, cb func(Row) bool, params ...any) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.ensure(); err != nil {
		log.Printf("query %q: %v", query, err)
		return
	}
	rows, err := d.db.Queryx(query, bind(params)...)
	if err != nil {
		log.Printf("query %q: %v", query, err)
		return
	}
	defer rows.Close()
	for rows.Next() {
		row := Row{}
		if err := rows.MapScan(row); err != nil {
			log.Printf("query %q: %v", query, err)
			return
		}
		if !cb(row) {
			return
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("query %q: %v", query, err)
	}
}

// QueryRow returns the first result row, or false when there is none or
// the statement failed.
func (d *DB) QueryRow(query string, params ...any) (Row, bool) {
	var result Row
	d.Query(query, func(row Row) bool {
		result = row
		return false
	}, params...)
	return result, result != nil
}

// QueryScalar returns the first column of the first row as a string, or
// false when there is none or the statement failed.
func (d *DB) QueryScalar(query string, params ...any) (string, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.ensure(); err != nil {
		log.Printf("query %q: %v", query, err)
		return "", false
	}
	var value sql.NullString
	if err := d.db.QueryRow(query, bind(params)...).Scan(&value); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("query %q: %v", query, err)
		}
		return "", false
	}
	return value.String, value.Valid
}

// Update runs an INSERT/UPDATE/DELETE and returns the affected row
// count; 0 means failure or no matching rows, already logged when it was
// a failure.
func (d *DB) Update(query string, params ...any) int64 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if err := d.ensure(); err != nil {
		log.Printf("update %q: %v", query, err)
		return 0
	}
	result, err := d.db.Exec(query, bind(params)...)
	if err != nil {
		log.Printf("update %q: %v", query, err)
		return 0
	}
	affected, err := result.RowsAffected()
	if err != nil {
		log.Printf("update %q: %v", query, err)
		return 0
	}
	return affected
}

// Close shuts the connection down. The handle must not be used
// afterwards.
func (d *DB) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return embercore.WithStack(err)
}
