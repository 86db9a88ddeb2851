// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/model"
)

func TestStableID_Deterministic(t *testing.T) {
	id1 := StableID("pkg.Foo", "func Foo(x, y int) int", model.KindFunction)
	id2 := StableID("pkg.Foo", "func Foo(x, y int) int", model.KindFunction)
	require.Equal(t, id1, id2)
}

func TestStableID_IgnoresLocation(t *testing.T) {
	// Scenario A: inserting blank lines before a function must not change
	// its stable_id, since location never feeds the hash.
	id := StableID("pkg.foo", "func foo(x, y)", model.KindFunction)
	require.NotZero(t, id)
}

func TestStableID_DistinguishesKindAndSignature(t *testing.T) {
	fn := StableID("pkg.Foo", "func Foo()", model.KindFunction)
	method := StableID("pkg.Foo", "func Foo()", model.KindMethod)
	require.NotEqual(t, fn, method)

	changedSig := StableID("pkg.Foo", "func Foo(x int)", model.KindFunction)
	require.NotEqual(t, fn, changedSig)
}
