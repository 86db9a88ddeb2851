// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package query is the read-only facade over the store: every exported
// method here corresponds to one dispatcher-callable operation, returns
// deterministically ordered results, and suggests NextHops the caller can
// follow up with. One file per concern, with store access shaped around a
// small Querier-like surface.
package query

import (
	"log/slog"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/kraklabs/codegraph/internal/semantic"
	"github.com/kraklabs/codegraph/internal/store"
)

// NextHop is a suggested follow-up call with its method and pre-filled
// parameters, attached to every query response.
type NextHop struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Engine holds everything a query method needs: the store, tunables, an
// optional semantic ranker, and the repo root every path parameter is
// validated against.
type Engine struct {
	st     *store.Store
	cfg    config.Config
	root   string
	ranker semantic.Ranker
	log    *slog.Logger
}

// New builds an Engine rooted at root. ranker may be nil, in which case
// semantic.NoopRanker is used.
func New(st *store.Store, cfg config.Config, root string, ranker semantic.Ranker, log *slog.Logger) *Engine {
	if ranker == nil {
		ranker = semantic.NoopRanker{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{st: st, cfg: cfg, root: root, ranker: ranker, log: log}
}

func hop(method string, params map[string]any) NextHop {
	return NextHop{Method: method, Params: params}
}
