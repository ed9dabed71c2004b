// Package procinfo samples best-effort usage figures for the supervised
// process. Figures feed the status endpoint; absence of a figure is never an
// operational failure.
package procinfo

import "time"

// Usage is a point-in-time snapshot of a process's resource footprint.
type Usage struct {
	Timestamp time.Time `json:"timestamp"`

	// Memory usage
	MemoryRSS     int64 `json:"memory_rss"`     // Resident Set Size in bytes
	MemoryVirtual int64 `json:"memory_virtual"` // Virtual size in bytes

	Threads int `json:"threads"`
}
