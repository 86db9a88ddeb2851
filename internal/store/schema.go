// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the number of migrations this binary knows how to apply;
// schema_meta records them as versions 0 through SchemaVersion-1.
// Migrations are additive only: never drop or rename a column.
const SchemaVersion = 1

const schemaMetaTable = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
);
`

// migrations is an ordered list of additive schema changes. Each entry's
// index is its target version; index 0 is the initial schema.
var migrations = []func(*sql.Tx) error{
	migrateV0,
}

func migrateV0(tx *sql.Tx) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS files (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	path            TEXT NOT NULL,
	language        TEXT NOT NULL,
	digest          TEXT NOT NULL,
	size            INTEGER NOT NULL,
	first_seen_ver  INTEGER NOT NULL,
	deleted_version INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_files_path ON files(path);

CREATE TABLE IF NOT EXISTS symbols (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id        INTEGER NOT NULL REFERENCES files(id),
	kind           TEXT NOT NULL,
	name           TEXT NOT NULL,
	qualname       TEXT NOT NULL,
	signature      TEXT NOT NULL,
	start_byte     INTEGER NOT NULL,
	end_byte       INTEGER NOT NULL,
	start_line     INTEGER NOT NULL,
	start_col      INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	end_col        INTEGER NOT NULL,
	docstring      TEXT NOT NULL DEFAULT '',
	first_seen_ver INTEGER NOT NULL,
	last_seen_ver  INTEGER NOT NULL,
	stable_id      INTEGER NOT NULL,
	deleted_ver    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_symbols_qualname ON symbols(qualname);
CREATE INDEX IF NOT EXISTS idx_symbols_name_kind ON symbols(name, kind);
CREATE INDEX IF NOT EXISTS idx_symbols_file_ver ON symbols(file_id, last_seen_ver);
CREATE INDEX IF NOT EXISTS idx_symbols_stable_id ON symbols(file_id, stable_id);

CREATE TABLE IF NOT EXISTS edges (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	kind              TEXT NOT NULL,
	source_symbol_id  INTEGER REFERENCES symbols(id),
	source_file_id    INTEGER NOT NULL REFERENCES files(id),
	target_symbol_id  INTEGER REFERENCES symbols(id),
	target_qualname   TEXT NOT NULL DEFAULT '',
	evidence          TEXT NOT NULL DEFAULT '',
	evidence_start_l  INTEGER NOT NULL DEFAULT 0,
	evidence_end_l    INTEGER NOT NULL DEFAULT 0,
	confidence        REAL NOT NULL DEFAULT 1.0,
	graph_version     INTEGER NOT NULL,
	commit_hash       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_edges_source_symbol ON edges(source_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_target_symbol ON edges(target_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_target_qualname ON edges(target_qualname);
CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);
CREATE INDEX IF NOT EXISTS idx_edges_source_file ON edges(source_file_id);

CREATE TABLE IF NOT EXISTS cochange (
	file_a         TEXT NOT NULL,
	file_b         TEXT NOT NULL,
	count          INTEGER NOT NULL,
	commits_a      INTEGER NOT NULL,
	commits_b      INTEGER NOT NULL,
	confidence     REAL NOT NULL,
	last_commit_ts INTEGER NOT NULL,
	PRIMARY KEY (file_a, file_b)
);

CREATE TABLE IF NOT EXISTS symbol_metrics (
	symbol_id        INTEGER PRIMARY KEY REFERENCES symbols(id),
	fan_in           INTEGER NOT NULL DEFAULT 0,
	fan_out          INTEGER NOT NULL DEFAULT 0,
	cyclomatic       INTEGER NOT NULL DEFAULT 0,
	token_shingle    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS graph_meta (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	graph_version INTEGER NOT NULL
);
INSERT OR IGNORE INTO graph_meta (id, graph_version) VALUES (1, 0);
`
	_, err := tx.ExecContext(context.Background(), ddl)
	return err
}

// Migrate reads the recorded schema version and applies every migration
// above it, each inside its own transaction, recording the new version on
// success. It never runs a migration twice and never reverts one.
func Migrate(db *sql.DB) error {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, schemaMetaTable); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), -1) FROM schema_meta`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for v := current + 1; v < len(migrations); v++ {
		if err := applyMigration(db, v); err != nil {
			return fmt.Errorf("migrate to version %d: %w", v, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, version int) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := migrations[version](tx); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_meta (version, applied_at) VALUES (?, datetime('now'))`, version); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
