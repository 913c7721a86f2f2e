// Package timex holds the time source shared by the tracker components and a
// Duration type that can be decoded from JSON configuration files.
package timex

import (
	"sync/atomic"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// OffsetClock is a Clock shifted by an adjustable offset. The offset is used
// to replay the route at a different moment (demos, rehearsals) and can be
// changed while other goroutines read the clock.
type OffsetClock struct {
	base   func() time.Time
	offset atomic.Int64
}

// NewOffsetClock returns a clock that reports base()+offset. A nil base means
// time.Now.
func NewOffsetClock(base func() time.Time, offset time.Duration) *OffsetClock {
	if base == nil {
		base = time.Now
	}
	c := &OffsetClock{base: base}
	c.offset.Store(int64(offset))
	return c
}

func (c *OffsetClock) Now() time.Time {
	return c.base().Add(c.Offset())
}

func (c *OffsetClock) Offset() time.Duration {
	return time.Duration(c.offset.Load())
}

func (c *OffsetClock) SetOffset(d time.Duration) {
	c.offset.Store(int64(d))
}

// FromMillis converts Unix milliseconds to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
