// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kraklabs/codegraph/internal/dispatch"
	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/query"
	codegrapherrors "github.com/kraklabs/codegraph/internal/errors"
)

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "Call one dispatcher method against the indexed graph",
	ArgsUsage: "<method> [params-json]",
	Description: `Calls one method from the dispatcher's registered surface
(find_symbol, open_symbol, neighbors, subgraph, references, search_text,
gather_context, analyze_impact, analyze_diff, trace_flow, repo_map,
find_tests_for, co_changes, changed_files, list_methods, help) with an
optional JSON object of parameters.

Examples:
  codegraphd query list_methods
  codegraphd query find_symbol '{"query": "Add"}'
  codegraphd query analyze_impact '{"seed": "pkg.Add", "direction": "downstream"}'`,
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return fail(c, codegrapherrors.NewInputError("missing method name", "", "run 'codegraphd query list_methods' to see available methods"))
		}
		method := c.Args().Get(0)

		params := map[string]any{}
		if raw := c.Args().Get(1); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				return fail(c, codegrapherrors.NewInputError("params must be a JSON object", err.Error(), `wrap params in single quotes, e.g. '{"query": "Add"}'`))
			}
		}

		root, err := repoRoot(c)
		if err != nil {
			return fail(c, err)
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return fail(c, err)
		}
		log := newLogger(cfg)

		_, st, err := openRepo(root, cfg)
		if err != nil {
			return fail(c, err)
		}
		defer st.Close()

		engine := query.New(st, *cfg, root, nil, log)
		d, err := dispatch.New(engine, dispatch.DefaultLimits())
		if err != nil {
			return fail(c, fmt.Errorf("build dispatcher: %w", err))
		}

		resp, err := d.Dispatch(c.Context, method, params)
		if err != nil {
			return fail(c, codegrapherrors.NewInputError(fmt.Sprintf("query %q failed", method), err.Error(), "check the method name and parameters"))
		}
		return output.JSON(resp)
	},
}
