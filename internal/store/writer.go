// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kraklabs/codegraph/internal/model"
)

// UpsertFile inserts or updates the files row for path and returns its id.
func UpsertFile(ctx context.Context, tx *sql.Tx, f model.File) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO files (path, language, digest, size, first_seen_ver, deleted_version)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT(path) DO UPDATE SET
			language = excluded.language,
			digest = excluded.digest,
			size = excluded.size,
			deleted_version = NULL`,
		f.Path, f.Language, f.Digest, f.Size, f.FirstSeenVer)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	row := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("read file id %s: %w", f.Path, err)
	}
	return id, nil
}

// MarkFileDeleted tombstones a file at graphVersion.
func MarkFileDeleted(ctx context.Context, tx *sql.Tx, fileID, graphVersion int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE files SET deleted_version = ? WHERE id = ?`, graphVersion, fileID)
	return err
}

// InsertSymbol adds a new symbol row and returns its id.
func InsertSymbol(ctx context.Context, tx *sql.Tx, fileID int64, sy model.Symbol) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO symbols (file_id, kind, name, qualname, signature,
			start_byte, end_byte, start_line, start_col, end_line, end_col,
			docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		fileID, sy.Kind, sy.Name, sy.Qualname, sy.Signature,
		sy.Span.StartByte, sy.Span.EndByte, sy.Span.StartLine, sy.Span.StartCol, sy.Span.EndLine, sy.Span.EndCol,
		sy.Docstring, sy.FirstSeenVer, sy.LastSeenVer, int64(sy.StableID))
	if err != nil {
		return 0, fmt.Errorf("insert symbol %s: %w", sy.Qualname, err)
	}
	return res.LastInsertId()
}

// UpdateSymbol rewrites a modified symbol's span/signature/docstring in
// place, keeping its row id (and hence referencing edges) stable.
func UpdateSymbol(ctx context.Context, tx *sql.Tx, id int64, sy model.Symbol, graphVersion int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE symbols SET
			start_byte = ?, end_byte = ?, start_line = ?, start_col = ?, end_line = ?, end_col = ?,
			signature = ?, docstring = ?, last_seen_ver = ?
		WHERE id = ?`,
		sy.Span.StartByte, sy.Span.EndByte, sy.Span.StartLine, sy.Span.StartCol, sy.Span.EndLine, sy.Span.EndCol,
		sy.Signature, sy.Docstring, graphVersion, id)
	return err
}

// TouchSymbol bumps last_seen_ver for a symbol that extracted unchanged.
func TouchSymbol(ctx context.Context, tx *sql.Tx, id int64, graphVersion int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE symbols SET last_seen_ver = ? WHERE id = ?`, graphVersion, id)
	return err
}

// DeleteSymbol marks a retired symbol with deleted_ver.
func DeleteSymbol(ctx context.Context, tx *sql.Tx, id int64, graphVersion int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE symbols SET deleted_ver = ? WHERE id = ?`, graphVersion, id)
	return err
}

// ReplaceFileEdges deletes every edge whose source is fileID, then inserts
// the fresh set. Edges have no independent identity worth preserving across
// reindexes of the same file.
func ReplaceFileEdges(ctx context.Context, tx *sql.Tx, fileID int64, edges []model.Edge) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete stale edges for file %d: %w", fileID, err)
	}
	for _, e := range edges {
		if err := insertEdge(ctx, tx, fileID, e); err != nil {
			return err
		}
	}
	return nil
}

func insertEdge(ctx context.Context, tx *sql.Tx, fileID int64, e model.Edge) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO edges (kind, source_symbol_id, source_file_id, target_symbol_id,
			target_qualname, evidence, evidence_start_l, evidence_end_l,
			confidence, graph_version, commit_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.SourceSymbolID, fileID, e.TargetSymbolID,
		e.TargetQualname, e.Evidence, e.EvidenceStartL, e.EvidenceEndL,
		e.Confidence, e.GraphVersion, e.CommitHash)
	if err != nil {
		return fmt.Errorf("insert edge %s: %w", e.Kind, err)
	}
	return nil
}

// ResolveEdgeTarget sets target_symbol_id on an edge row once resolution
// (exact or suffix match) has found a candidate.
func ResolveEdgeTarget(ctx context.Context, tx *sql.Tx, edgeID, symbolID int64, confidence float64) error {
	_, err := tx.ExecContext(ctx, `UPDATE edges SET target_symbol_id = ?, confidence = ? WHERE id = ?`, symbolID, confidence, edgeID)
	return err
}

// ResolveEdgeEndpoints sets both source_symbol_id and target_symbol_id on an
// edge row, used by postpass linkers whose edge kind is emitted file-scoped
// (source_symbol_id unknown at extraction time) but resolved against a
// specific symbol on both sides once postpass runs.
func ResolveEdgeEndpoints(ctx context.Context, tx *sql.Tx, edgeID, sourceSymbolID, targetSymbolID int64, confidence float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE edges SET source_symbol_id = ?, target_symbol_id = ?, confidence = ?
		WHERE id = ?`, sourceSymbolID, targetSymbolID, confidence, edgeID)
	return err
}

// InsertResolvedEdgeTx inserts a fully-formed edge whose endpoints are
// already known symbol ids, used by postpass detectors (TESTS, XREF) that
// discover a relationship directly rather than resolving an edge an
// extractor left half-built.
func InsertResolvedEdgeTx(ctx context.Context, tx *sql.Tx, sourceFileID int64, e model.Edge) error {
	return insertEdge(ctx, tx, sourceFileID, e)
}

// DeleteEdgesByKindTx removes every edge of kind across the whole store,
// used to recompute a postpass-owned edge kind (one with no other producer)
// from scratch each run rather than letting stale rows from a symbol that
// no longer matches the heuristic accumulate forever.
func DeleteEdgesByKindTx(ctx context.Context, tx *sql.Tx, kind model.EdgeKind) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE kind = ?`, string(kind))
	return err
}

// FileLanguagesTx returns the language of every file id in ids, used by
// postpass linkers that need to tell a same-language relationship apart
// from a cross-language one without a full File row.
func FileLanguagesTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		var lang string
		row := tx.QueryRowContext(ctx, `SELECT language FROM files WHERE id = ?`, id)
		if err := row.Scan(&lang); err != nil {
			continue
		}
		out[id] = lang
	}
	return out, nil
}

// UnresolvedEdges returns edges from this write batch that still need
// resolution: non-null target_qualname, null target_symbol_id.
func UnresolvedEdges(ctx context.Context, tx *sql.Tx, fileID int64) ([]model.Edge, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id,
		       target_qualname, evidence, evidence_start_l, evidence_end_l,
		       confidence, graph_version, commit_hash
		FROM edges
		WHERE source_file_id = ? AND target_symbol_id IS NULL AND target_qualname != ''`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query unresolved edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// FindSymbolsByQualnameTx is the transaction-scoped twin of
// Store.FindSymbolsByQualname, used by the edge-resolution pass so it sees
// rows this same transaction has already inserted.
func FindSymbolsByQualnameTx(ctx context.Context, tx *sql.Tx, qualname string, graphVersion int64) ([]model.Symbol, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE qualname = ? AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)`, qualname, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols by qualname (tx): %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// FindSymbolsBySuffixTx is the transaction-scoped twin of
// Store.FindSymbolsBySuffix.
func FindSymbolsBySuffixTx(ctx context.Context, tx *sql.Tx, suffix string, graphVersion int64) ([]model.Symbol, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE (qualname = ? OR qualname LIKE '%.' || ?) AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)`, suffix, suffix, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols by suffix (tx): %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// UnresolvedEdgesByKindTx returns every edge of the given kind across the
// whole store that still lacks a resolved target_symbol_id, used by the
// post-pass's cross-file/cross-language linkers which aren't scoped to one
// file's writes.
func UnresolvedEdgesByKindTx(ctx context.Context, tx *sql.Tx, kind model.EdgeKind) ([]model.Edge, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id,
		       target_qualname, evidence, evidence_start_l, evidence_end_l,
		       confidence, graph_version, commit_hash
		FROM edges
		WHERE kind = ? AND target_symbol_id IS NULL`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query unresolved edges by kind: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// SymbolsByKindTx returns every live symbol of the given kind at
// graphVersion, transaction-scoped so the post-pass sees symbols written
// earlier in the same indexing run.
func SymbolsByKindTx(ctx context.Context, tx *sql.Tx, kind model.SymbolKind, graphVersion int64) ([]model.Symbol, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE kind = ? AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)`, string(kind), graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols by kind: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolsWithDocstringsTx returns every live symbol at graphVersion that
// carries a non-empty docstring, the candidate pool for the postpass's
// textual XREF detector.
func SymbolsWithDocstringsTx(ctx context.Context, tx *sql.Tx, graphVersion int64) ([]model.Symbol, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE docstring != '' AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)`, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols with docstrings: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// UpsertSymbolMetrics records a symbol's cyclomatic complexity and
// token-shingle fingerprint at file-write time, leaving fan_in/fan_out at 0
// on first insert and untouched on conflict since only RecomputeFanInFanOutTx
// (run once per post-pass) knows the graph-wide totals.
func UpsertSymbolMetrics(ctx context.Context, tx *sql.Tx, symbolID int64, cyclomatic int, tokenShingle string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO symbol_metrics (symbol_id, fan_in, fan_out, cyclomatic, token_shingle)
		VALUES (?, 0, 0, ?, ?)
		ON CONFLICT(symbol_id) DO UPDATE SET
			cyclomatic = excluded.cyclomatic,
			token_shingle = excluded.token_shingle`,
		symbolID, cyclomatic, tokenShingle)
	return err
}

// UpdateFanInFanOut sets a symbol's fan_in/fan_out counts without disturbing
// whatever cyclomatic/token_shingle values UpsertSymbolMetrics already
// stored for it; used exclusively by RecomputeFanInFanOutTx.
func UpdateFanInFanOut(ctx context.Context, tx *sql.Tx, symbolID int64, fanIn, fanOut int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO symbol_metrics (symbol_id, fan_in, fan_out, cyclomatic, token_shingle)
		VALUES (?, ?, ?, 0, '')
		ON CONFLICT(symbol_id) DO UPDATE SET
			fan_in = excluded.fan_in,
			fan_out = excluded.fan_out`,
		symbolID, fanIn, fanOut)
	return err
}

// RecomputeFanInFanOutTx recounts fan-in (incoming resolved edges) and
// fan-out (outgoing edges) for every live symbol at graphVersion and upserts
// the totals into symbol_metrics, so find_symbol's tie-break and repo_map's
// per-module top-N never run an edge-counting scan at query time.
func RecomputeFanInFanOutTx(ctx context.Context, tx *sql.Tx, graphVersion int64) error {
	fanIn := make(map[int64]int)
	fanOut := make(map[int64]int)

	rows, err := tx.QueryContext(ctx, `
		SELECT source_symbol_id, target_symbol_id FROM edges
		WHERE graph_version <= ?`, graphVersion)
	if err != nil {
		return fmt.Errorf("scan edges for fan metrics: %w", err)
	}
	for rows.Next() {
		var source, target sql.NullInt64
		if err := rows.Scan(&source, &target); err != nil {
			rows.Close()
			return fmt.Errorf("scan edge row: %w", err)
		}
		if source.Valid {
			fanOut[source.Int64]++
		}
		if target.Valid {
			fanIn[target.Int64]++
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	liveRows, err := tx.QueryContext(ctx, `
		SELECT id FROM symbols
		WHERE first_seen_ver <= ? AND (deleted_ver IS NULL OR deleted_ver > ?)`,
		graphVersion, graphVersion)
	if err != nil {
		return fmt.Errorf("list live symbols for fan metrics: %w", err)
	}
	var ids []int64
	for liveRows.Next() {
		var id int64
		if err := liveRows.Scan(&id); err != nil {
			liveRows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := liveRows.Err(); err != nil {
		liveRows.Close()
		return err
	}
	liveRows.Close()

	for _, id := range ids {
		if err := UpdateFanInFanOut(ctx, tx, id, fanIn[id], fanOut[id]); err != nil {
			return fmt.Errorf("update fan-in/fan-out: %w", err)
		}
	}
	return nil
}

// UpsertCoChange records or updates a weighted file-pair co-change
// observation, keeping (file_a, file_b) in a canonical lexical order so the
// pair is never stored twice in both directions.
func UpsertCoChange(ctx context.Context, tx *sql.Tx, c model.CoChange) error {
	a, b := c.FileA, c.FileB
	if a > b {
		a, b = b, a
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cochange (file_a, file_b, count, commits_a, commits_b, confidence, last_commit_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_a, file_b) DO UPDATE SET
			count = excluded.count,
			commits_a = excluded.commits_a,
			commits_b = excluded.commits_b,
			confidence = excluded.confidence,
			last_commit_ts = excluded.last_commit_ts`,
		a, b, c.Count, c.CommitsA, c.CommitsB, c.Confidence, c.LastCommitTS)
	return err
}
