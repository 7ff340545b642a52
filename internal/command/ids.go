package command

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces command ids.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 command ids.
//
// UUIDv7 ids sort by creation time, which keeps journal listings readable.
// Thread-safe: uuid.NewV7 is safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
// Panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock is a monotonic logical clock that orders commands.
// Wall-clock timestamps can repeat or go backwards; Seq never does.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock whose first Next returns start+1. Used to
// resume ordering after loading a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments and returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
