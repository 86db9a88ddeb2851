// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/model"
)

func sym(qualname string, span model.Span) model.Symbol {
	return model.Symbol{
		Kind:      model.KindFunction,
		Qualname:  qualname,
		Signature: "func()",
		Span:      span,
		StableID:  StableID(qualname, "func()", model.KindFunction),
	}
}

func TestDiff_AddedDeletedUnchanged(t *testing.T) {
	stored := []model.Symbol{
		sym("pkg.A", model.Span{StartLine: 1, EndLine: 3}),
		sym("pkg.B", model.Span{StartLine: 5, EndLine: 7}),
	}
	fresh := []model.Symbol{
		sym("pkg.A", model.Span{StartLine: 1, EndLine: 3}),
		sym("pkg.C", model.Span{StartLine: 9, EndLine: 11}),
	}

	delta := Diff(stored, fresh)

	require.Len(t, delta.Added, 1)
	require.Equal(t, "pkg.C", delta.Added[0].Qualname)

	require.Len(t, delta.Deleted, 1)
	require.Equal(t, "pkg.B", delta.Deleted[0].Qualname)

	require.Len(t, delta.Unchanged, 1)
	require.Equal(t, "pkg.A", delta.Unchanged[0].Qualname)

	require.Empty(t, delta.Modified)
}

func TestDiff_ModifiedWhenSpanShifts(t *testing.T) {
	// Same stable_id (qualname/signature/kind unchanged) but the span moved,
	// e.g. blank lines were inserted above the declaration.
	stored := []model.Symbol{sym("pkg.A", model.Span{StartLine: 1, EndLine: 3})}
	fresh := []model.Symbol{sym("pkg.A", model.Span{StartLine: 4, EndLine: 6})}

	delta := Diff(stored, fresh)

	require.Empty(t, delta.Added)
	require.Empty(t, delta.Deleted)
	require.Empty(t, delta.Unchanged)
	require.Len(t, delta.Modified, 1)
	require.Equal(t, "pkg.A", delta.Modified[0].New.Qualname)
}

func TestDiff_EmptyInputs(t *testing.T) {
	delta := Diff(nil, nil)
	require.Empty(t, delta.Added)
	require.Empty(t, delta.Deleted)
	require.Empty(t, delta.Modified)
	require.Empty(t, delta.Unchanged)
}
