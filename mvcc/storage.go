package mvcc

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/page"
)

// pageVersions is the in memory version state of one page. The head version and written flag
// are mirrored into the reserved header of the page by writers. Only a writer holding write
// admission for the page changes head and written.
type pageVersions struct {
	pageID   page.PageID
	chainRef uint64
	head     uint64
	written  uint32
	chain    atomic.Pointer[Snapshot]
}

func (pv *pageVersions) load() (uint64, bool) {
	// written is stored last and loaded first: a reader which sees written also sees head.
	written := atomic.LoadUint32(&pv.written) != 0
	return atomic.LoadUint64(&pv.head), written
}

func (pv *pageVersions) setHead(ver uint64) {
	atomic.StoreUint64(&pv.head, ver)
	atomic.StoreUint32(&pv.written, 1)
}

func (pv *pageVersions) header() header {
	head, written := pv.load()
	h := header{
		headVersion: head,
		chainRef:    pv.chainRef,
	}
	if written {
		h.flags |= flagWritten
	}
	return h
}

type versionStorage struct {
	mutex   sync.Mutex
	pages   map[page.PageID]*pageVersions
	lastRef uint64
}

func newVersionStorage() *versionStorage {
	return &versionStorage{
		pages: map[page.PageID]*pageVersions{},
	}
}

// lookup returns the version state of a page, building it from the reserved header of the
// pinned frame the first time the page is seen.
func (vs *versionStorage) lookup(fr *page.Frame) *pageVersions {
	vs.mutex.Lock()
	defer vs.mutex.Unlock()

	pid := fr.PageID()
	if pv, ok := vs.pages[pid]; ok {
		return pv
	}

	h := readHeader(fr.Reserved())
	vs.lastRef += 1
	pv := &pageVersions{
		pageID:   pid,
		chainRef: vs.lastRef,
		head:     h.headVersion,
	}
	if h.written() {
		pv.written = 1
		if h.chainRef != 0 {
			log.WithFields(log.Fields{
				"page": pid,
				"head": h.headVersion,
			}).Debug("page history not available")
		}
	}
	vs.pages[pid] = pv
	return pv
}

func (vs *versionStorage) get(pid page.PageID) (*pageVersions, bool) {
	vs.mutex.Lock()
	defer vs.mutex.Unlock()

	pv, ok := vs.pages[pid]
	return pv, ok
}

func (vs *versionStorage) all() []*pageVersions {
	vs.mutex.Lock()
	defer vs.mutex.Unlock()

	pvs := make([]*pageVersions, 0, len(vs.pages))
	for _, pv := range vs.pages {
		pvs = append(pvs, pv)
	}
	return pvs
}
