// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/extract"
	"github.com/kraklabs/codegraph/internal/extract/goext"
	"github.com/kraklabs/codegraph/internal/extract/protoext"
	"github.com/kraklabs/codegraph/internal/index"
	"github.com/kraklabs/codegraph/internal/scan"
	"github.com/kraklabs/codegraph/internal/store"
)

func TestTraceFlow_FollowsDirectCallWithinOneLanguage(t *testing.T) {
	st, root := openIndexedRepo(t, map[string]string{
		"sample.go": "package sample\n\nfunc Add(a, b int) int {\n\treturn helper(a, b)\n}\n\nfunc helper(a, b int) int {\n\treturn a + b\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.TraceFlow(context.Background(), "sample.Add", "downstream", 2)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hops)
	require.Equal(t, "", res.Hops[0].Boundary)
}

// openIndexedRepoWithProto indexes files with both the Go and protobuf
// extractors wired in, for scenarios that trace a flow across an rpc
// boundary (a .proto service declaration into its Go implementation).
func openIndexedRepoWithProto(t *testing.T, files map[string]string) (*store.Store, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	ignore, err := scan.LoadIgnoreSet(root)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "graph.db"), 4, 1)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := extract.NewRegistry(goext.New(), protoext.New())
	cfg := config.IndexConfig{BatchSize: 100, FlushIntervalMS: 500, BatchMemLimitMB: 10, LargeFileSkipMB: 10}
	orch := index.New(root, st, registry, cfg, ignore, nil)
	res := orch.Run(context.Background())
	require.NoError(t, res.Err)
	return st, root
}

func TestTraceFlow_CrossesRPCBoundaryFromProtoToImplementation(t *testing.T) {
	st, root := openIndexedRepoWithProto(t, map[string]string{
		"users.proto": "syntax = \"proto3\";\n\nservice UserService {\n\trpc CreateUser(CreateUserRequest) returns (CreateUserResponse);\n}\n",
		"server.go":   "package server\n\nfunc CreateUser(req int) int {\n\treturn req\n}\n",
	})
	e := New(st, config.Config{}, root, nil, nil)

	res, err := e.TraceFlow(context.Background(), "users.UserService.CreateUser", "downstream", 2)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hops)

	var crossed bool
	for _, hop := range res.Hops {
		if hop.Boundary == "rpc" && hop.Symbol.Qualname == "server.CreateUser" {
			crossed = true
		}
	}
	require.True(t, crossed, "trace_flow should cross the rpc boundary into the Go implementation")
}
