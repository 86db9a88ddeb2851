// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package semantic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopRanker_ReturnsCandidatesUnchanged(t *testing.T) {
	in := []Candidate{{Qualname: "b", Score: 0.5}, {Qualname: "a", Score: 0.9}}
	out, err := NoopRanker{}.Rank(context.Background(), "query", in)
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.Equal(t, "noop", NoopRanker{}.Name())
}
