package project

import (
	"time"

	"transcriber/internal/segment"
)

// DefaultCheckpointInterval is the minimum spacing between intermediate saves.
const DefaultCheckpointInterval = 2 * time.Second

// Checkpoint coalesces repeated saves of one project file during a batch.
// Mark writes at most once per interval; Flush always writes.
type Checkpoint struct {
	path     string
	interval time.Duration

	last  time.Time
	saves int
	err   error
}

// NewCheckpoint returns a Checkpoint for path. A non-positive interval uses
// DefaultCheckpointInterval.
func NewCheckpoint(path string, interval time.Duration) *Checkpoint {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	return &Checkpoint{path: path, interval: interval}
}

// Mark saves p when the interval has elapsed since the previous write. The
// first failed write is kept for Err.
func (c *Checkpoint) Mark(p *segment.Project) {
	if !c.last.IsZero() && time.Since(c.last) < c.interval {
		return
	}
	if err := c.write(p); err != nil && c.err == nil {
		c.err = err
	}
}

// Flush writes p unconditionally.
func (c *Checkpoint) Flush(p *segment.Project) error {
	return c.write(p)
}

// Err returns the first intermediate save failure.
func (c *Checkpoint) Err() error { return c.err }

// Saves reports how many writes were made.
func (c *Checkpoint) Saves() int { return c.saves }

func (c *Checkpoint) write(p *segment.Project) error {
	c.last = time.Now()
	c.saves++
	return Save(c.path, p)
}
