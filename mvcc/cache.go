package mvcc

import (
	"errors"
	"fmt"

	"github.com/leftmike/verpage/page"
)

var (
	ErrCursorClosed = errors.New("mvcc: cursor is closed")
	ErrLinkedInUse  = errors.New("mvcc: linked cursor still in use")
)

// Cache hands out cursors over the pages of a page.Cache. All cursors of a Cache share its
// version storage and its tracer.
type Cache struct {
	pool        *page.Cache
	tracer      Tracer
	versions    *versionStorage
	payloadSize int
	zero        []byte
}

func New(pool *page.Cache, tracer Tracer) (*Cache, error) {
	if pool.ReservedBytes() < HeaderSize {
		return nil, fmt.Errorf("mvcc: need %d reserved bytes per page; got %d", HeaderSize,
			pool.ReservedBytes())
	}
	if tracer == nil {
		tracer = NullTracer{}
	}
	return &Cache{
		pool:        pool,
		tracer:      tracer,
		versions:    newVersionStorage(),
		payloadSize: pool.PayloadSize(),
		zero:        make([]byte, pool.PayloadSize()),
	}, nil
}

func (mc *Cache) PayloadSize() int {
	return mc.payloadSize
}

func (mc *Cache) Pool() *page.Cache {
	return mc.pool
}

func (mc *Cache) Tracer() Tracer {
	return mc.tracer
}

// OpenCursor returns an unbound cursor; the first call to Next binds it to pid.
func (mc *Cache) OpenCursor(pid page.PageID, mode page.Mode, vc *VersionContext) (*Cursor,
	error) {

	if vc == nil {
		return nil, errors.New("mvcc: open cursor: missing version context")
	}
	if mode != page.Read && mode != page.Write {
		return nil, fmt.Errorf("mvcc: open cursor: unexpected mode: %s", mode)
	}
	return &Cursor{
		mc:     mc,
		mode:   mode,
		vc:     vc,
		nextID: pid,
	}, nil
}
