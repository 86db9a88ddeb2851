// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.db")
	s, err := Open(path, 4, 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigratesSchema(t *testing.T) {
	s := openTestStore(t)
	v, err := s.CurrentVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(0), v)
}

func TestWrite_FileAndSymbolRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var fileID int64
	err := s.Write(ctx, func(tx *sql.Tx) error {
		id, err := UpsertFile(ctx, tx, model.File{Path: "a.go", Language: "go", Digest: "abc", Size: 10, FirstSeenVer: 1})
		if err != nil {
			return err
		}
		fileID = id
		_, err = InsertSymbol(ctx, tx, fileID, model.Symbol{
			Kind: model.KindFunction, Name: "Foo", Qualname: "pkg.Foo", Signature: "func Foo()",
			FirstSeenVer: 1, LastSeenVer: 1, StableID: 42,
		})
		return err
	})
	require.NoError(t, err)

	syms, err := s.SymbolsForFile(ctx, fileID, 1)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	require.Equal(t, "pkg.Foo", syms[0].Qualname)
}

func TestBumpVersion_Increments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Write(ctx, func(tx *sql.Tx) error {
		_, err := BumpVersion(ctx, tx)
		return err
	})
	require.NoError(t, err)

	v, err := s.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

func TestReplaceFileEdges_DropsStaleAndInsertsFresh(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var fileID int64
	err := s.Write(ctx, func(tx *sql.Tx) error {
		id, err := UpsertFile(ctx, tx, model.File{Path: "b.go", Language: "go", Digest: "x", FirstSeenVer: 1})
		if err != nil {
			return err
		}
		fileID = id
		return ReplaceFileEdges(ctx, tx, fileID, []model.Edge{
			{Kind: model.EdgeCalls, SourceFileID: fileID, TargetQualname: "pkg.Bar", Confidence: 1.0, GraphVersion: 1},
		})
	})
	require.NoError(t, err)

	err = s.Write(ctx, func(tx *sql.Tx) error {
		return ReplaceFileEdges(ctx, tx, fileID, []model.Edge{
			{Kind: model.EdgeCalls, SourceFileID: fileID, TargetQualname: "pkg.Baz", Confidence: 1.0, GraphVersion: 2},
		})
	})
	require.NoError(t, err)

	edges, err := s.queryEdges(ctx, "source_file_id = ?", fileID, nil)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "pkg.Baz", edges[0].TargetQualname)
}
