// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package ui

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// ProgressConfig determines whether and how a long-running command should
// show an indeterminate spinner while it works.
type ProgressConfig struct {
	// Enabled is false when output is being piped/redirected or --json was
	// requested, since a spinner's carriage-return updates corrupt anything
	// that isn't a real terminal.
	Enabled bool
	NoColor bool
}

// NewProgressConfig derives a ProgressConfig from the same flags InitColors
// was called with, plus a TTY check on stderr (where the spinner draws).
func NewProgressConfig(jsonOutput, noColor bool) ProgressConfig {
	return ProgressConfig{
		Enabled: !jsonOutput && isatty.IsTerminal(os.Stderr.Fd()),
		NoColor: noColor,
	}
}

// NewPhaseSpinner creates an indeterminate spinner for an operation whose
// progress is tracked by phase name rather than item count (an indexing
// run's Scanning/Extracting/Writing/PostPass sequence, for instance).
// Returns nil when cfg.Enabled is false, so callers can call methods on the
// result unconditionally as long as they guard with a nil check first.
func NewPhaseSpinner(cfg ProgressConfig, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(!cfg.NoColor),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}
