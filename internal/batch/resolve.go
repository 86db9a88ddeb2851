// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package batch

import (
	"context"
	"database/sql"

	"github.com/kraklabs/codegraph/internal/metrics"
	"github.com/kraklabs/codegraph/internal/store"
)

// resolveFileEdges implements the edge-resolution pass: for every edge from
// fileID with a target_qualname but no target_symbol_id, try an exact
// qualname match first, then a unique suffix match, else leave it null for
// a later reindex (of either side) to reconcile.
func resolveFileEdges(ctx context.Context, tx *sql.Tx, fileID int64, version int64) error {
	unresolved, err := store.UnresolvedEdges(ctx, tx, fileID)
	if err != nil {
		return err
	}

	resolved, stillUnresolved := 0, 0
	for _, e := range unresolved {
		if e.TargetQualname == "" {
			continue
		}

		exact, err := store.FindSymbolsByQualnameTx(ctx, tx, e.TargetQualname, version)
		if err != nil {
			return err
		}
		if len(exact) == 1 {
			if err := store.ResolveEdgeTarget(ctx, tx, e.ID, exact[0].ID, 1.0); err != nil {
				return err
			}
			resolved++
			continue
		}

		suffixMatches, err := store.FindSymbolsBySuffixTx(ctx, tx, e.TargetQualname, version)
		if err != nil {
			return err
		}
		if len(suffixMatches) == 1 {
			// Suffix match is a textual fallback, not an unambiguous AST
			// resolution: confidence reflects that.
			if err := store.ResolveEdgeTarget(ctx, tx, e.ID, suffixMatches[0].ID, 0.6); err != nil {
				return err
			}
			resolved++
			continue
		}

		stillUnresolved++
	}

	metrics.RecordEdgeResolution(resolved, stillUnresolved)
	return nil
}
