// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kraklabs/codegraph/internal/model"
)

// FindFileByPath returns the file row for path, or sql.ErrNoRows.
func (s *Store) FindFileByPath(ctx context.Context, path string) (model.File, error) {
	row := s.readers.QueryRowContext(ctx, `
		SELECT id, path, language, digest, size, first_seen_ver, deleted_version
		FROM files WHERE path = ?`, path)
	return scanFile(row)
}

// SymbolMetrics is a symbol's pre-aggregated fan-in/fan-out/complexity, as
// last computed by the indexer's post-pass.
type SymbolMetrics struct {
	FanIn      int
	FanOut     int
	Cyclomatic int
}

// FanIn returns symbolID's pre-aggregated fan-in, or 0 if metrics have never
// been computed for it (e.g. a just-inserted symbol before the next
// post-pass runs).
func (s *Store) FanIn(ctx context.Context, symbolID int64) (int, error) {
	row := s.readers.QueryRowContext(ctx, `SELECT fan_in FROM symbol_metrics WHERE symbol_id = ?`, symbolID)
	var fanIn int
	if err := row.Scan(&fanIn); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return fanIn, nil
}

// FanInBulk returns pre-aggregated fan-in for every id in ids, defaulting to
// 0 for any id with no symbol_metrics row yet.
func (s *Store) FanInBulk(ctx context.Context, ids []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT symbol_id, fan_in FROM symbol_metrics WHERE symbol_id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := s.readers.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fan-in bulk: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var fanIn int
		if err := rows.Scan(&id, &fanIn); err != nil {
			return nil, err
		}
		out[id] = fanIn
	}
	return out, rows.Err()
}

// FileByID returns the file row for id, or sql.ErrNoRows.
func (s *Store) FileByID(ctx context.Context, id int64) (model.File, error) {
	row := s.readers.QueryRowContext(ctx, `
		SELECT id, path, language, digest, size, first_seen_ver, deleted_version
		FROM files WHERE id = ?`, id)
	return scanFile(row)
}

func scanFile(row *sql.Row) (model.File, error) {
	var f model.File
	var deletedVer sql.NullInt64
	if err := row.Scan(&f.ID, &f.Path, &f.Language, &f.Digest, &f.Size, &f.FirstSeenVer, &deletedVer); err != nil {
		return model.File{}, err
	}
	if deletedVer.Valid {
		v := deletedVer.Int64
		f.DeletedVersion = &v
	}
	return f, nil
}

// SymbolsForFile returns the live (non-deleted) symbols of a file at or
// before graphVersion, ordered by start line.
func (s *Store) SymbolsForFile(ctx context.Context, fileID int64, graphVersion int64) ([]model.Symbol, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE file_id = ? AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)
		ORDER BY start_line`, fileID, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols for file: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// FindSymbolsByQualname returns every live symbol with an exact qualname
// match, across all files, at graphVersion.
func (s *Store) FindSymbolsByQualname(ctx context.Context, qualname string, graphVersion int64) ([]model.Symbol, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE qualname = ? AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)`, qualname, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols by qualname: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// FindSymbolsBySuffix returns live symbols whose qualname ends with
// "."+suffix or exactly equals suffix, used by the query engine's
// resolveOneSymbol as its suffix fallback (edge resolution uses the
// transaction-scoped FindSymbolsBySuffixTx).
func (s *Store) FindSymbolsBySuffix(ctx context.Context, suffix string, graphVersion int64) ([]model.Symbol, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE (qualname = ? OR qualname LIKE '%.' || ?) AND first_seen_ver <= ?
		  AND (deleted_ver IS NULL OR deleted_ver > ?)`, suffix, suffix, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols by suffix: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SearchSymbolsByName returns live symbols whose name or qualname contains
// substr (SQLite LIKE, so case-insensitive for ASCII letters), capped at
// limit rows.
func (s *Store) SearchSymbolsByName(ctx context.Context, substr string, graphVersion int64, limit int) ([]model.Symbol, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE (name LIKE '%' || ? || '%' OR qualname LIKE '%' || ? || '%')
		  AND first_seen_ver <= ? AND (deleted_ver IS NULL OR deleted_ver > ?)
		ORDER BY length(qualname)
		LIMIT ?`, substr, substr, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, fmt.Errorf("search symbols by name: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolByID loads one symbol by its row id.
func (s *Store) SymbolByID(ctx context.Context, id int64) (model.Symbol, error) {
	row := s.readers.QueryRowContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols WHERE id = ?`, id)
	var sy model.Symbol
	var deletedVer sql.NullInt64
	err := row.Scan(&sy.ID, &sy.FileID, &sy.Kind, &sy.Name, &sy.Qualname, &sy.Signature,
		&sy.Span.StartByte, &sy.Span.EndByte, &sy.Span.StartLine, &sy.Span.StartCol, &sy.Span.EndLine, &sy.Span.EndCol,
		&sy.Docstring, &sy.FirstSeenVer, &sy.LastSeenVer, &sy.StableID, &deletedVer)
	if err != nil {
		return model.Symbol{}, err
	}
	if deletedVer.Valid {
		v := deletedVer.Int64
		sy.DeletedVer = &v
	}
	return sy, nil
}

// FindPredecessorSymbol looks for a symbol retired at exactly
// retiredVersion with the same qualname as a just-added symbol, other than
// excludeID. A signature edit changes stable_id, so the indexer records it
// as a delete of the old row plus an insert of a new one rather than an
// in-place update; this recovers the deleted row so callers can tell a
// signature change apart from a genuinely new symbol.
func (s *Store) FindPredecessorSymbol(ctx context.Context, qualname string, retiredVersion int64, excludeID int64) (model.Symbol, error) {
	row := s.readers.QueryRowContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE qualname = ? AND deleted_ver = ? AND id != ?
		LIMIT 1`, qualname, retiredVersion, excludeID)
	var sy model.Symbol
	var deletedVer sql.NullInt64
	err := row.Scan(&sy.ID, &sy.FileID, &sy.Kind, &sy.Name, &sy.Qualname, &sy.Signature,
		&sy.Span.StartByte, &sy.Span.EndByte, &sy.Span.StartLine, &sy.Span.StartCol, &sy.Span.EndLine, &sy.Span.EndCol,
		&sy.Docstring, &sy.FirstSeenVer, &sy.LastSeenVer, &sy.StableID, &deletedVer)
	if err != nil {
		return model.Symbol{}, err
	}
	if deletedVer.Valid {
		v := deletedVer.Int64
		sy.DeletedVer = &v
	}
	return sy, nil
}

func scanSymbols(rows *sql.Rows) ([]model.Symbol, error) {
	var out []model.Symbol
	for rows.Next() {
		var sy model.Symbol
		var deletedVer sql.NullInt64
		if err := rows.Scan(&sy.ID, &sy.FileID, &sy.Kind, &sy.Name, &sy.Qualname, &sy.Signature,
			&sy.Span.StartByte, &sy.Span.EndByte, &sy.Span.StartLine, &sy.Span.StartCol, &sy.Span.EndLine, &sy.Span.EndCol,
			&sy.Docstring, &sy.FirstSeenVer, &sy.LastSeenVer, &sy.StableID, &deletedVer); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		if deletedVer.Valid {
			v := deletedVer.Int64
			sy.DeletedVer = &v
		}
		out = append(out, sy)
	}
	return out, rows.Err()
}

// EdgesFrom returns edges originating at symbolID, of the given kinds (nil
// or empty means all kinds).
func (s *Store) EdgesFrom(ctx context.Context, symbolID int64, kinds []model.EdgeKind) ([]model.Edge, error) {
	return s.queryEdges(ctx, `source_symbol_id = ?`, symbolID, kinds)
}

// EdgesTo returns edges whose resolved target is symbolID, of the given
// kinds (nil or empty means all kinds).
func (s *Store) EdgesTo(ctx context.Context, symbolID int64, kinds []model.EdgeKind) ([]model.Edge, error) {
	return s.queryEdges(ctx, `target_symbol_id = ?`, symbolID, kinds)
}

func (s *Store) queryEdges(ctx context.Context, whereCol string, id int64, kinds []model.EdgeKind) ([]model.Edge, error) {
	query := fmt.Sprintf(`
		SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id,
		       target_qualname, evidence, evidence_start_l, evidence_end_l,
		       confidence, graph_version, commit_hash
		FROM edges WHERE %s`, whereCol)
	args := []any{id}
	if len(kinds) > 0 {
		placeholders := ""
		for i, k := range kinds {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, string(k))
		}
		query += fmt.Sprintf(" AND kind IN (%s)", placeholders)
	}

	rows, err := s.readers.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]model.Edge, error) {
	var out []model.Edge
	for rows.Next() {
		var e model.Edge
		var srcSym, tgtSym sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Kind, &srcSym, &e.SourceFileID, &tgtSym,
			&e.TargetQualname, &e.Evidence, &e.EvidenceStartL, &e.EvidenceEndL,
			&e.Confidence, &e.GraphVersion, &e.CommitHash); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if srcSym.Valid {
			v := srcSym.Int64
			e.SourceSymbolID = &v
		}
		if tgtSym.Valid {
			v := tgtSym.Int64
			e.TargetSymbolID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListLiveFiles returns every non-deleted file row, used by the indexer to
// diff the current scan against what the store already tracks (so files
// removed from disk get tombstoned even though the scanner never visits
// them).
func (s *Store) ListLiveFiles(ctx context.Context) ([]model.File, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, path, language, digest, size, first_seen_ver, deleted_version
		FROM files WHERE deleted_version IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("list live files: %w", err)
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var f model.File
		var deletedVer sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Path, &f.Language, &f.Digest, &f.Size, &f.FirstSeenVer, &deletedVer); err != nil {
			return nil, fmt.Errorf("scan live file: %w", err)
		}
		if deletedVer.Valid {
			v := deletedVer.Int64
			f.DeletedVersion = &v
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CoChangesFor returns co-change records involving path, ordered by count
// descending.
func (s *Store) CoChangesFor(ctx context.Context, path string, limit int) ([]model.CoChange, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT file_a, file_b, count, commits_a, commits_b, confidence, last_commit_ts
		FROM cochange
		WHERE file_a = ? OR file_b = ?
		ORDER BY count DESC
		LIMIT ?`, path, path, limit)
	if err != nil {
		return nil, fmt.Errorf("query cochange: %w", err)
	}
	defer rows.Close()

	var out []model.CoChange
	for rows.Next() {
		var c model.CoChange
		if err := rows.Scan(&c.FileA, &c.FileB, &c.Count, &c.CommitsA, &c.CommitsB, &c.Confidence, &c.LastCommitTS); err != nil {
			return nil, fmt.Errorf("scan cochange: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SymbolsByKind returns live symbols of kind at graphVersion, read-only
// counterpart of SymbolsByKindTx for callers outside a write transaction.
func (s *Store) SymbolsByKind(ctx context.Context, kind model.SymbolKind, graphVersion int64) ([]model.Symbol, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, file_id, kind, name, qualname, signature,
		       start_byte, end_byte, start_line, start_col, end_line, end_col,
		       docstring, first_seen_ver, last_seen_ver, stable_id, deleted_ver
		FROM symbols
		WHERE kind = ? AND first_seen_ver <= ? AND (deleted_ver IS NULL OR deleted_ver > ?)`,
		kind, graphVersion, graphVersion)
	if err != nil {
		return nil, fmt.Errorf("query symbols by kind: %w", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// UnresolvedEdgesByKind returns live unresolved edges (nil target) of kind,
// read-only counterpart of UnresolvedEdgesByKindTx.
func (s *Store) UnresolvedEdgesByKind(ctx context.Context, kind model.EdgeKind) ([]model.Edge, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT id, kind, source_symbol_id, source_file_id, target_symbol_id,
		       target_qualname, evidence, evidence_start_l, evidence_end_l,
		       confidence, graph_version, commit_hash
		FROM edges WHERE kind = ? AND target_symbol_id IS NULL`, kind)
	if err != nil {
		return nil, fmt.Errorf("query unresolved edges by kind: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// ComplexityRank is one symbol's cyclomatic complexity, as last computed at
// file-write time.
type ComplexityRank struct {
	Symbol     model.Symbol
	Cyclomatic int
}

// TopComplexity returns the limit live symbols at graphVersion with the
// highest recorded cyclomatic complexity, descending.
func (s *Store) TopComplexity(ctx context.Context, graphVersion int64, limit int) ([]ComplexityRank, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT sy.id, sy.file_id, sy.kind, sy.name, sy.qualname, sy.signature,
		       sy.start_byte, sy.end_byte, sy.start_line, sy.start_col, sy.end_line, sy.end_col,
		       sy.docstring, sy.first_seen_ver, sy.last_seen_ver, sy.stable_id, sy.deleted_ver,
		       sm.cyclomatic
		FROM symbols sy
		JOIN symbol_metrics sm ON sm.symbol_id = sy.id
		WHERE sy.first_seen_ver <= ? AND (sy.deleted_ver IS NULL OR sy.deleted_ver > ?)
		ORDER BY sm.cyclomatic DESC, sy.qualname ASC
		LIMIT ?`, graphVersion, graphVersion, limit)
	if err != nil {
		return nil, fmt.Errorf("query top complexity: %w", err)
	}
	defer rows.Close()

	var out []ComplexityRank
	for rows.Next() {
		var sy model.Symbol
		var deletedVer sql.NullInt64
		var cyclomatic int
		if err := rows.Scan(&sy.ID, &sy.FileID, &sy.Kind, &sy.Name, &sy.Qualname, &sy.Signature,
			&sy.Span.StartByte, &sy.Span.EndByte, &sy.Span.StartLine, &sy.Span.StartCol, &sy.Span.EndLine, &sy.Span.EndCol,
			&sy.Docstring, &sy.FirstSeenVer, &sy.LastSeenVer, &sy.StableID, &deletedVer, &cyclomatic); err != nil {
			return nil, fmt.Errorf("scan complexity rank: %w", err)
		}
		if deletedVer.Valid {
			v := deletedVer.Int64
			sy.DeletedVer = &v
		}
		out = append(out, ComplexityRank{Symbol: sy, Cyclomatic: cyclomatic})
	}
	return out, rows.Err()
}

// DuplicateGroups returns, for every non-empty token_shingle shared by at
// least minSize live symbols at graphVersion, the symbols sharing it. A
// shingle collision means two symbol bodies reduced to the same
// identifier/keyword set, the system's proxy for copy-pasted logic.
func (s *Store) DuplicateGroups(ctx context.Context, graphVersion int64, minSize int) (map[string][]model.Symbol, error) {
	rows, err := s.readers.QueryContext(ctx, `
		SELECT sy.id, sy.file_id, sy.kind, sy.name, sy.qualname, sy.signature,
		       sy.start_byte, sy.end_byte, sy.start_line, sy.start_col, sy.end_line, sy.end_col,
		       sy.docstring, sy.first_seen_ver, sy.last_seen_ver, sy.stable_id, sy.deleted_ver,
		       sm.token_shingle
		FROM symbols sy
		JOIN symbol_metrics sm ON sm.symbol_id = sy.id
		WHERE sm.token_shingle != '' AND sy.first_seen_ver <= ? AND (sy.deleted_ver IS NULL OR sy.deleted_ver > ?)
		  AND sm.token_shingle IN (
		      SELECT token_shingle FROM symbol_metrics WHERE token_shingle != ''
		      GROUP BY token_shingle HAVING COUNT(*) >= ?)
		ORDER BY sm.token_shingle, sy.qualname`, graphVersion, graphVersion, minSize)
	if err != nil {
		return nil, fmt.Errorf("query duplicate groups: %w", err)
	}
	defer rows.Close()

	groups := make(map[string][]model.Symbol)
	for rows.Next() {
		var sy model.Symbol
		var deletedVer sql.NullInt64
		var shingle string
		if err := rows.Scan(&sy.ID, &sy.FileID, &sy.Kind, &sy.Name, &sy.Qualname, &sy.Signature,
			&sy.Span.StartByte, &sy.Span.EndByte, &sy.Span.StartLine, &sy.Span.StartCol, &sy.Span.EndLine, &sy.Span.EndCol,
			&sy.Docstring, &sy.FirstSeenVer, &sy.LastSeenVer, &sy.StableID, &deletedVer, &shingle); err != nil {
			return nil, fmt.Errorf("scan duplicate group row: %w", err)
		}
		if deletedVer.Valid {
			v := deletedVer.Int64
			sy.DeletedVer = &v
		}
		groups[shingle] = append(groups[shingle], sy)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for shingle, syms := range groups {
		if len(syms) < minSize {
			delete(groups, shingle)
		}
	}
	return groups, nil
}
