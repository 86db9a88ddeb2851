// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package dispatch

import "fmt"

// Limits bounds a dispatched call's resource footprint: how large a result
// set a method may return, independent of whatever per-field validation its
// JSON Schema already performs. A per-method result cap rather than a
// per-script instruction cap.
type Limits struct {
	MaxResultBytes int
}

// DefaultLimits returns a single 1 MiB result cap that applies to every
// method alike; there are no per-method caps and the cap is not read from
// config.
func DefaultLimits() Limits {
	return Limits{MaxResultBytes: 1 << 20} // 1 MiB
}

// CheckSize refuses a response whose serialized size exceeds the cap,
// naming the method so the caller can shrink its request (smaller limit,
// narrower subgraph depth, tighter budget_bytes).
func (l Limits) CheckSize(method string, sizeBytes int) error {
	if l.MaxResultBytes > 0 && sizeBytes > l.MaxResultBytes {
		return fmt.Errorf("%s: result size %d bytes exceeds cap %d bytes", method, sizeBytes, l.MaxResultBytes)
	}
	return nil
}
