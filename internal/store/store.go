// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package store implements the durable graph store: an embedded, WAL-mode
// SQLite database reached through a bounded pool of read-only connections
// and a single mutex-guarded writer connection. All mutations run inside
// one transaction per batch; reads never block on the writer beyond normal
// WAL read-ahead.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	codegrapherrors "github.com/kraklabs/codegraph/internal/errors"
)

// Store owns the on-disk graph database at a single path.
type Store struct {
	readers *sql.DB // pooled, read-only
	writer  *sql.DB // single connection, serialized by writeMu

	writeMu sync.Mutex
	path    string
}

// Open opens or creates the store at path, running pending migrations. The
// caller must Close the returned Store.
func Open(path string, poolSize, poolMinIdle int) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, codegrapherrors.NewDatabaseError("cannot open graph database", err.Error(), "check that the .codegraph directory is writable", err)
	}
	writer.SetMaxOpenConns(1)

	if err := Migrate(writer); err != nil {
		writer.Close()
		return nil, codegrapherrors.NewDatabaseError("cannot migrate graph database", err.Error(), "run 'codegraphd reset' to rebuild the index from scratch", err)
	}

	readers, err := sql.Open("sqlite", dsn+"&mode=ro")
	if err != nil {
		writer.Close()
		return nil, codegrapherrors.NewDatabaseError("cannot open reader pool", err.Error(), "check that the .codegraph directory is writable", err)
	}
	readers.SetMaxOpenConns(poolSize)
	readers.SetMaxIdleConns(poolMinIdle)
	readers.SetConnMaxIdleTime(5 * time.Minute)

	return &Store{readers: readers, writer: writer, path: path}, nil
}

// Close releases both the writer and the reader pool.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.readers.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Reader returns the pooled read-only connection for queries.
func (s *Store) Reader() *sql.DB { return s.readers }

// Write runs fn inside a single transaction on the exclusive writer
// connection, retrying on SQLITE_BUSY with bounded backoff. Callers must
// not call Write reentrantly; the mutex is not recursive.
func (s *Store) Write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	const maxAttempts = 5
	backoff := 20 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.writeOnce(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isBusy(err) {
			return err
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("write failed after %d attempts: %w", maxAttempts, lastErr)
}

func (s *Store) writeOnce(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// CurrentVersion returns the latest graph version recorded in the store.
func (s *Store) CurrentVersion(ctx context.Context) (int64, error) {
	var v int64
	row := s.readers.QueryRowContext(ctx, `SELECT graph_version FROM graph_meta WHERE id = 1`)
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("read graph version: %w", err)
	}
	return v, nil
}

// BumpVersion increments the graph version inside tx and returns the new
// value. Callers invoke this once per commit, as the first statement of the
// batch's write transaction, so rows written later in the same transaction
// carry the new version.
func BumpVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, `UPDATE graph_meta SET graph_version = graph_version + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("bump graph version: %w", err)
	}
	var v int64
	row := tx.QueryRowContext(ctx, `SELECT graph_version FROM graph_meta WHERE id = 1`)
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("read bumped graph version: %w", err)
	}
	return v, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, sub := range []string{"database is locked", "SQLITE_BUSY", "database table is locked"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
