package page

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultPageSize      = 8192
	DefaultReservedBytes = 3 * 8
	DefaultCapacity      = 1024
)

var (
	ErrClosed = errors.New("page: cache is closed")
)

// Store is the durable home of pages; the cache faults pages in from it and writes dirty
// pages back to it.
type Store interface {
	// ReadPage fills buf with the page; it returns false if the page has never been written.
	ReadPage(pid PageID, buf []byte) (bool, error)
	WritePage(pid PageID, buf []byte) error
	LastPageID() (PageID, bool, error)
	Sync() error
	Close() error
}

type Config struct {
	PageSize      int
	ReservedBytes int
	Capacity      int
}

type Stats struct {
	Frames    int
	Faults    uint64
	Evictions uint64
	Flushes   uint64
}

type Cache struct {
	pagesMutex sync.Mutex
	pages      map[PageID]*Frame
	lru        *list.List
	lastPageID PageID
	extended   bool
	closed     bool
	store      Store
	cfg        Config
	logger     *log.Logger
	faults     uint64
	evictions  uint64
	flushes    uint64
}

func NewCache(st Store, cfg Config, logger *log.Logger) (*Cache, error) {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.ReservedBytes == 0 {
		cfg.ReservedBytes = DefaultReservedBytes
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.PageSize < 0 || cfg.PageSize%8 != 0 {
		return nil, fmt.Errorf("page: page size must be a multiple of 8: %d", cfg.PageSize)
	}
	if cfg.ReservedBytes < 0 || cfg.ReservedBytes >= cfg.PageSize {
		return nil, fmt.Errorf("page: reserved bytes %d out of range for page size %d",
			cfg.ReservedBytes, cfg.PageSize)
	}
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("page: capacity must be at least one frame: %d", cfg.Capacity)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	pid, ok, err := st.LastPageID()
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"page-size":      cfg.PageSize,
		"reserved-bytes": cfg.ReservedBytes,
		"capacity":       cfg.Capacity,
	}).Info("page cache starting")

	return &Cache{
		pages:      map[PageID]*Frame{},
		lru:        list.New(),
		lastPageID: pid,
		extended:   ok,
		store:      st,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (pc *Cache) PageSize() int {
	return pc.cfg.PageSize
}

func (pc *Cache) ReservedBytes() int {
	return pc.cfg.ReservedBytes
}

func (pc *Cache) PayloadSize() int {
	return pc.cfg.PageSize - pc.cfg.ReservedBytes
}

// LastPageID returns the highest page id that has been extended to, by a write pin or by the
// store; false means no page exists yet.
func (pc *Cache) LastPageID() (PageID, bool) {
	pc.pagesMutex.Lock()
	defer pc.pagesMutex.Unlock()

	return pc.lastPageID, pc.extended
}

// Pin returns the frame for a page, faulting it in from the store if necessary. A Write pin
// waits for any other Write pin of the same page to be unpinned and extends the cache to
// include the page. A Read pin never waits on a writer.
func (pc *Cache) Pin(pid PageID, mode Mode) (*Frame, error) {
	pc.pagesMutex.Lock()
	if pc.closed {
		pc.pagesMutex.Unlock()
		return nil, ErrClosed
	}

	fr, ok := pc.pages[pid]
	if ok {
		atomic.AddInt32(&fr.pin, 1)
		pc.lru.MoveToFront(fr.elem)
		if mode == Write {
			pc.extend(pid)
		}
		pc.pagesMutex.Unlock()

		<-fr.loaded
		if fr.err != nil {
			atomic.AddInt32(&fr.pin, -1)
			return nil, fr.err
		}
		if mode == Write {
			fr.writeMutex.Lock()
		}
		return fr, nil
	}

	fr = &Frame{
		pageID: pid,
		cache:  pc,
		pin:    1,
		loaded: make(chan struct{}),
		Bytes:  make([]byte, pc.cfg.PageSize),
	}
	fr.elem = pc.lru.PushFront(fr)
	pc.pages[pid] = fr
	pc.faults += 1
	if mode == Write {
		pc.extend(pid)
	}
	pc.evict()
	pc.pagesMutex.Unlock()

	_, err := pc.store.ReadPage(pid, fr.Bytes)
	if err != nil {
		fr.err = fmt.Errorf("page: read page %d: %s", pid, err)
		pc.pagesMutex.Lock()
		delete(pc.pages, pid)
		pc.lru.Remove(fr.elem)
		pc.pagesMutex.Unlock()
		close(fr.loaded)
		return nil, fr.err
	}
	close(fr.loaded)

	if mode == Write {
		fr.writeMutex.Lock()
	}
	return fr, nil
}

func (pc *Cache) Unpin(fr *Frame, mode Mode) {
	if mode == Write {
		fr.writeMutex.Unlock()
	}
	if atomic.AddInt32(&fr.pin, -1) < 0 {
		panic(fmt.Sprintf("page: unpin of unpinned page %d", fr.pageID))
	}
}

// extend must be called with pagesMutex held.
func (pc *Cache) extend(pid PageID) {
	if !pc.extended || pid > pc.lastPageID {
		pc.lastPageID = pid
		pc.extended = true
	}
}

// evict must be called with pagesMutex held. Pinned frames are never evicted; if every frame
// is pinned, the cache is allowed to grow past its capacity.
func (pc *Cache) evict() {
	for len(pc.pages) > pc.cfg.Capacity {
		var victim *Frame
		for e := pc.lru.Back(); e != nil; e = e.Prev() {
			fr := e.Value.(*Frame)
			if atomic.LoadInt32(&fr.pin) == 0 {
				victim = fr
				break
			}
		}
		if victim == nil {
			pc.logger.WithField("frames", len(pc.pages)).Debug("page cache over capacity")
			return
		}

		if victim.isDirty() {
			err := pc.store.WritePage(victim.pageID, victim.Bytes)
			if err != nil {
				pc.logger.WithFields(log.Fields{
					"page":  victim.pageID,
					"error": err,
				}).Error("page eviction failed")
				return
			}
			pc.flushes += 1
		}
		delete(pc.pages, victim.pageID)
		pc.lru.Remove(victim.elem)
		pc.evictions += 1

		pc.logger.WithField("page", victim.pageID).Debug("page evicted")
	}
}

// Flush writes every dirty frame back to the store and syncs it. Frames being written to
// are flushed once their writer unpins them.
func (pc *Cache) Flush() error {
	pc.pagesMutex.Lock()
	if pc.closed {
		pc.pagesMutex.Unlock()
		return ErrClosed
	}
	var frames []*Frame
	for _, fr := range pc.pages {
		if fr.isDirty() {
			atomic.AddInt32(&fr.pin, 1)
			frames = append(frames, fr)
		}
	}
	pc.pagesMutex.Unlock()

	var err error
	var cnt uint64
	for _, fr := range frames {
		<-fr.loaded
		fr.writeMutex.Lock()
		if err == nil && fr.isDirty() {
			err = pc.store.WritePage(fr.pageID, fr.Bytes)
			if err == nil {
				atomic.StoreInt32(&fr.dirty, 0)
				cnt += 1
			}
		}
		pc.Unpin(fr, Write)
	}

	pc.pagesMutex.Lock()
	pc.flushes += cnt
	pc.pagesMutex.Unlock()

	if err != nil {
		return fmt.Errorf("page: flush: %s", err)
	}
	pc.logger.WithField("pages", cnt).Debug("page cache flushed")
	return pc.store.Sync()
}

func (pc *Cache) Close() error {
	err := pc.Flush()
	if err == ErrClosed {
		return nil
	}

	pc.pagesMutex.Lock()
	pc.closed = true
	pc.pages = map[PageID]*Frame{}
	pc.lru.Init()
	pc.pagesMutex.Unlock()

	cerr := pc.store.Close()
	if err == nil {
		err = cerr
	}
	pc.logger.Info("page cache closed")
	return err
}

func (pc *Cache) Stats() Stats {
	pc.pagesMutex.Lock()
	defer pc.pagesMutex.Unlock()

	return Stats{
		Frames:    len(pc.pages),
		Faults:    pc.faults,
		Evictions: pc.evictions,
		Flushes:   pc.flushes,
	}
}
