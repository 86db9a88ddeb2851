// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package gitmine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/store"
)

// Persist writes a batch of co-change observations to st in a single
// transaction, independent of the main indexing writer call so mining can
// run on its own schedule without blocking a reindex.
func Persist(ctx context.Context, st *store.Store, cochanges []model.CoChange) error {
	if len(cochanges) == 0 {
		return nil
	}
	return st.Write(ctx, func(tx *sql.Tx) error {
		for _, c := range cochanges {
			if err := store.UpsertCoChange(ctx, tx, c); err != nil {
				return fmt.Errorf("upsert cochange %s/%s: %w", c.FileA, c.FileB, err)
			}
		}
		return nil
	})
}
