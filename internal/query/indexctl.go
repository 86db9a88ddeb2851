// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package query

import (
	"context"
	"time"

	"github.com/kraklabs/codegraph/internal/index"
)

// IndexStatusResult is index_status' response.
type IndexStatusResult struct {
	GraphVersion int64
	LiveFiles    int
	Running      bool
	RunnerPID    int           `json:"runner_pid,omitempty"`
	RunningFor   time.Duration `json:"running_for,omitempty"`
}

// IndexStatus reports the graph's current version/file count plus whether
// an index or watch process currently holds root's run lock, the same
// signal the status CLI command surfaces, exposed as a dispatcher method
// so an MCP client can poll it mid-run instead of shelling out.
func (e *Engine) IndexStatus(ctx context.Context) (IndexStatusResult, error) {
	version, err := e.st.CurrentVersion(ctx)
	if err != nil {
		return IndexStatusResult{}, err
	}
	files, err := e.st.ListLiveFiles(ctx)
	if err != nil {
		return IndexStatusResult{}, err
	}
	result := IndexStatusResult{GraphVersion: version, LiveFiles: len(files)}

	info, err := index.NewRunLock(e.root).Info()
	if err != nil {
		return IndexStatusResult{}, err
	}
	if info != nil {
		result.Running = true
		result.RunnerPID = info.PID
		result.RunningFor = time.Since(info.StartedAt)
	}
	return result, nil
}

// ReindexResult is reindex's response.
type ReindexResult struct {
	Requested bool
}

// Reindex drops a sentinel file asking the nearest running watch loop to
// run a full pass on its next poll tick. It does not index on the spot:
// the dispatcher's caller (codegraphd query) is a short-lived process that
// holds no exclusive claim on the store, so the write has to happen in
// whichever long-running process is already responsible for it.
func (e *Engine) Reindex(ctx context.Context) (ReindexResult, error) {
	if err := index.RequestReindex(e.root); err != nil {
		return ReindexResult{}, err
	}
	return ReindexResult{Requested: true}, nil
}
