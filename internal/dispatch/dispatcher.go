// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package dispatch is the thin fan-out in front of internal/query: it
// accepts {method, params}, validates params against a documented JSON
// Schema, invokes the corresponding query-engine method, and attaches
// next_hops. A method-name lookup table in place of a CLI argv switch,
// serving a one-shot request/response shape instead.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/codegraph/internal/model"
	"github.com/kraklabs/codegraph/internal/query"
)

// Response is a dispatched call's structured result.
type Response struct {
	Method   string          `json:"method"`
	Data     any             `json:"data"`
	NextHops []query.NextHop `json:"next_hops,omitempty"`
}

type handlerFunc func(ctx context.Context, e *query.Engine, params map[string]any) (any, []query.NextHop, error)

type methodEntry struct {
	name    string
	schema  *methodSchema
	handler handlerFunc
}

// Dispatcher routes {method, params} requests to internal/query.Engine
// methods, enforcing schema validation, path containment, pattern-length
// caps, and a per-method result size cap before returning.
type Dispatcher struct {
	engine  *query.Engine
	limits  Limits
	methods map[string]*methodEntry
}

// New builds a Dispatcher with the full external method set registered.
func New(engine *query.Engine, limits Limits) (*Dispatcher, error) {
	d := &Dispatcher{engine: engine, limits: limits, methods: make(map[string]*methodEntry)}
	if err := d.registerAll(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) register(name string, schema *jsonschemaShorthand, handler handlerFunc) error {
	ms, err := newMethodSchema(schema.build())
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	d.methods[name] = &methodEntry{name: name, schema: ms, handler: handler}
	return nil
}

// Dispatch validates params against method's schema, invokes the handler,
// and attaches next_hops, enforcing the result size cap before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params map[string]any) (Response, error) {
	entry, ok := d.methods[method]
	if !ok {
		return Response{}, fmt.Errorf("unknown method %q", method)
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := entry.schema.validate(params); err != nil {
		return Response{}, fmt.Errorf("%s: invalid params: %w", method, err)
	}

	data, hops, err := entry.handler(ctx, d.engine, params)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", method, err)
	}

	serialized, err := json.Marshal(data)
	if err != nil {
		return Response{}, fmt.Errorf("%s: marshal result: %w", method, err)
	}
	if err := d.limits.CheckSize(method, len(serialized)); err != nil {
		return Response{}, err
	}

	return Response{Method: method, Data: data, NextHops: hops}, nil
}

// ListMethods returns every registered method name, sorted, for the
// list_methods introspection call.
func (d *Dispatcher) ListMethods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func str(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func strSlice(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func edgeKinds(params map[string]any, key string) []model.EdgeKind {
	raw := strSlice(params, key)
	if len(raw) == 0 {
		return nil
	}
	out := make([]model.EdgeKind, len(raw))
	for i, s := range raw {
		out[i] = model.EdgeKind(s)
	}
	return out
}
