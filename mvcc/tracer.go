package mvcc

import (
	"sync/atomic"
)

// Tracer is told about every read which had to resolve a snapshot and every copy on write.
type Tracer interface {
	SnapshotLoaded()
	PageCopied()
}

// Counters is a Tracer which counts events.
type Counters struct {
	snapshotsLoaded uint64
	copiedPages     uint64
}

func (c *Counters) SnapshotLoaded() {
	atomic.AddUint64(&c.snapshotsLoaded, 1)
}

func (c *Counters) PageCopied() {
	atomic.AddUint64(&c.copiedPages, 1)
}

func (c *Counters) SnapshotsLoaded() uint64 {
	return atomic.LoadUint64(&c.snapshotsLoaded)
}

func (c *Counters) CopiedPages() uint64 {
	return atomic.LoadUint64(&c.copiedPages)
}

type NullTracer struct{}

func (_ NullTracer) SnapshotLoaded() {}

func (_ NullTracer) PageCopied() {}
