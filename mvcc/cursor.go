package mvcc

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/page"
)

// Cursor reads or writes the payload of one page at a time. Offsets are relative to the start
// of the payload. An access outside of the payload does nothing (reads return zero) and
// raises the bounds flag; see CheckAndClearBoundsFlag.
//
// A Cursor must be used by one goroutine at a time.
type Cursor struct {
	mc     *Cache
	mode   page.Mode
	vc     *VersionContext
	nextID page.PageID
	pageID page.PageID
	bound  bool
	closed bool
	linked *Cursor

	frame *page.Frame
	pv    *pageVersions
	view  []byte
	live  bool
	seq   uint64

	offset      int
	mark        int
	outOfBounds bool
	markOOB     bool

	mutating bool
	patch    *patchState
}

// patchState is the private copy of an old version being written by a writer whose version
// is older than the head of the page.
type patchState struct {
	version uint64
	buf     []byte
	log     patchLog
}

// Next binds the cursor to the next page: the page it was opened with the first time, and the
// page after the current one afterwards. A read cursor returns false if the page does not
// exist; a write cursor extends the cache to include the page.
func (cr *Cursor) Next() (bool, error) {
	if cr.closed {
		return false, ErrCursorClosed
	}
	return cr.pin(cr.nextID)
}

// NextPage binds the cursor to pid. If the cursor is already bound to pid, any write burst
// ends and the content visible to the version context is resolved again.
func (cr *Cursor) NextPage(pid page.PageID) (bool, error) {
	if cr.closed {
		return false, ErrCursorClosed
	}
	if cr.bound && cr.pageID == pid {
		cr.nextID = pid + 1
		cr.offset = 0
		cr.endMutation()
		cr.resolve()
		return true, nil
	}
	return cr.pin(pid)
}

func (cr *Cursor) pin(pid page.PageID) (bool, error) {
	cr.unpin()
	cr.nextID = pid + 1

	if cr.mode == page.Read {
		last, ok := cr.mc.pool.LastPageID()
		if !ok || pid > last {
			return false, nil
		}
	}

	fr, err := cr.mc.pool.Pin(pid, cr.mode)
	if err != nil {
		return false, err
	}
	cr.frame = fr
	cr.pv = cr.mc.versions.lookup(fr)
	cr.pageID = pid
	cr.bound = true
	cr.offset = 0
	cr.resolve()
	return true, nil
}

func (cr *Cursor) unpin() {
	if !cr.bound {
		return
	}
	cr.endMutation()
	cr.mc.pool.Unpin(cr.frame, cr.mode)
	cr.frame = nil
	cr.pv = nil
	cr.view = nil
	cr.live = false
	cr.bound = false
}

// resolve binds the view of the cursor to the content visible to its version context.
func (cr *Cursor) resolve() {
	if cr.mode == page.Write {
		cr.view = cr.frame.Payload()
		cr.live = true
		ver := cr.vc.WriteVersion()
		if head, written := cr.pv.load(); written && head > ver {
			snap := cr.pv.chain.Load().visible(func(v uint64) bool { return v <= ver })
			cr.view = snap.payloadOr(cr.mc.zero)
			cr.live = false
		}
		return
	}

	cr.seq = cr.frame.Sequence()
	head, written := cr.pv.load()
	if !written || cr.vc.canSee(head) {
		cr.view = cr.frame.Payload()
		cr.live = true
		return
	}

	snap := cr.pv.chain.Load().visible(cr.vc.canSee)
	cr.view = snap.payloadOr(cr.mc.zero)
	cr.live = false
	cr.mc.tracer.SnapshotLoaded()
	cr.vc.MarkDirty()

	if log.IsLevelEnabled(log.TraceLevel) {
		fields := log.Fields{
			"page": cr.pageID,
			"read": cr.vc.ReadVersion(),
			"head": head,
		}
		if snap != nil && !snap.PreHistory() {
			fields["snapshot"] = snap.version
		}
		log.WithFields(fields).Trace("snapshot loaded")
	}
}

// beginMutation starts a write burst on the bound page and, the first time the page is
// written under a new version, copies the current content.
func (cr *Cursor) beginMutation() {
	cr.frame.BeginWrite()
	cr.mutating = true
	cr.frame.MarkDirty()

	ver := cr.vc.WriteVersion()
	head, written := cr.pv.load()
	switch {
	case written && head == ver:
		cr.view = cr.frame.Payload()
		cr.live = true
		return
	case !written || ver > head:
		snap := preHistory
		if written {
			snap = &Snapshot{
				version: head,
				payload: append(make([]byte, 0, cr.mc.payloadSize), cr.frame.Payload()...),
			}
		}
		cr.pv.chain.Store(push(cr.pv.chain.Load(), snap))
		cr.pv.setHead(ver)
		cr.pv.header().write(cr.frame.Reserved())
		cr.view = cr.frame.Payload()
		cr.live = true
	default:
		base := cr.pv.chain.Load().visible(func(v uint64) bool { return v <= ver })
		cr.patch = &patchState{
			version: ver,
			buf:     append(make([]byte, 0, cr.mc.payloadSize), base.payloadOr(cr.mc.zero)...),
		}
		cr.view = cr.patch.buf
	}
	cr.mc.tracer.PageCopied()

	if log.IsLevelEnabled(log.TraceLevel) {
		log.WithFields(log.Fields{
			"page":    cr.pageID,
			"head":    head,
			"written": written,
			"version": ver,
		}).Trace("page copied")
	}
}

// endMutation publishes any patched old version and ends the write burst.
func (cr *Cursor) endMutation() {
	if !cr.mutating {
		return
	}
	if cr.patch != nil {
		snap := &Snapshot{
			version: cr.patch.version,
			payload: cr.patch.buf,
		}
		cr.pv.chain.Store(insert(cr.pv.chain.Load(), snap, cr.patch.log, cr.mc.zero))
		cr.patch = nil
		cr.view = cr.frame.Payload()
	}
	cr.frame.EndWrite()
	cr.mutating = false
}

func (cr *Cursor) mutate(off int, b []byte) {
	if cr.mode != page.Write || !cr.bound || off < 0 || off+len(b) > cr.mc.payloadSize {
		cr.outOfBounds = true
		return
	}
	if !cr.mutating {
		cr.beginMutation()
	}
	cr.frame.StorePayload(off, b)
	if cr.patch != nil {
		copy(cr.patch.buf[off:], b)
		cr.patch.log = append(cr.patch.log, patchEntry{off: off, b: append([]byte(nil), b...)})
	}
}

// load fills b from the view at off. Read cursors copy the live payload with atomic loads
// since a writer may be changing it.
func (cr *Cursor) load(off int, b []byte) bool {
	if off < 0 || off+len(b) > len(cr.view) {
		cr.outOfBounds = true
		return false
	}
	if cr.live && cr.mode == page.Read {
		return cr.frame.LoadPayload(off, b)
	}
	copy(b, cr.view[off:])
	return true
}

// ShouldRetry returns true if a read from the live payload of the page, by this cursor or a
// cursor linked to it, might have seen a write in progress since the cursor was bound or
// since the last call to ShouldRetry. When it returns true, the cursor has been bound again to
// the content now visible, and the reads must be repeated.
func (cr *Cursor) ShouldRetry() bool {
	var retry bool
	for c := cr; c != nil; c = c.linked {
		if c.needsRetry() {
			retry = true
		}
	}
	return retry
}

func (cr *Cursor) needsRetry() bool {
	if cr.closed || !cr.bound || !cr.live || cr.mode == page.Write {
		return false
	}
	seq := cr.frame.Sequence()
	if seq == cr.seq && seq&1 == 0 {
		return false
	}
	cr.resolve()
	return true
}

// CheckAndClearBoundsFlag returns true if an access by this cursor, or a cursor linked to it,
// was out of bounds; the flags are cleared.
func (cr *Cursor) CheckAndClearBoundsFlag() bool {
	var oob bool
	for c := cr; c != nil; c = c.linked {
		if c.outOfBounds {
			oob = true
		}
		c.outOfBounds = false
	}
	return oob
}

// OpenLinkedCursor returns a cursor, with the same mode and version context, which is linked
// to this cursor: ShouldRetry and CheckAndClearBoundsFlag cover both. Each cursor must be
// closed separately. A linked cursor which has been closed is reused.
func (cr *Cursor) OpenLinkedCursor(pid page.PageID) (*Cursor, error) {
	if cr.closed {
		return nil, ErrCursorClosed
	}
	if cr.linked != nil {
		if !cr.linked.closed {
			return nil, ErrLinkedInUse
		}
		cr.linked.closed = false
		cr.linked.nextID = pid
		cr.linked.offset = 0
		cr.linked.outOfBounds = false
		cr.linked.mark = 0
		cr.linked.markOOB = false
		return cr.linked, nil
	}

	lc, err := cr.mc.OpenCursor(pid, cr.mode, cr.vc)
	if err != nil {
		return nil, err
	}
	cr.linked = lc
	return lc, nil
}

// Close unpins the page; a linked cursor is not closed.
func (cr *Cursor) Close() {
	if cr.closed {
		return
	}
	cr.unpin()
	cr.closed = true
}

func (cr *Cursor) CurrentPageID() (page.PageID, bool) {
	return cr.pageID, cr.bound
}

func (cr *Cursor) VersionContext() *VersionContext {
	return cr.vc
}

func (cr *Cursor) Offset() int {
	return cr.offset
}

// SetOffset moves the cursor; an offset outside of the payload moves it to zero and raises
// the bounds flag.
func (cr *Cursor) SetOffset(off int) {
	if off < 0 || off > cr.mc.payloadSize {
		cr.offset = 0
		cr.outOfBounds = true
		return
	}
	cr.offset = off
}

func (cr *Cursor) Mark() {
	cr.mark = cr.offset
	cr.markOOB = cr.outOfBounds
}

func (cr *Cursor) SetOffsetToMark() {
	cr.offset = cr.mark
	cr.outOfBounds = cr.markOOB
}

func (cr *Cursor) GetByteAt(off int) byte {
	var b [1]byte
	cr.load(off, b[:])
	return b[0]
}

func (cr *Cursor) GetByte() byte {
	b := cr.GetByteAt(cr.offset)
	cr.offset += 1
	return b
}

func (cr *Cursor) PutByteAt(off int, v byte) {
	cr.mutate(off, []byte{v})
}

func (cr *Cursor) PutByte(v byte) {
	cr.PutByteAt(cr.offset, v)
	cr.offset += 1
}

func (cr *Cursor) GetShortAt(off int) int16 {
	var b [2]byte
	cr.load(off, b[:])
	return int16(binary.LittleEndian.Uint16(b[:]))
}

func (cr *Cursor) GetShort() int16 {
	v := cr.GetShortAt(cr.offset)
	cr.offset += 2
	return v
}

func (cr *Cursor) PutShortAt(off int, v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	cr.mutate(off, b[:])
}

func (cr *Cursor) PutShort(v int16) {
	cr.PutShortAt(cr.offset, v)
	cr.offset += 2
}

func (cr *Cursor) GetIntAt(off int) int32 {
	var b [4]byte
	cr.load(off, b[:])
	return int32(binary.LittleEndian.Uint32(b[:]))
}

func (cr *Cursor) GetInt() int32 {
	v := cr.GetIntAt(cr.offset)
	cr.offset += 4
	return v
}

func (cr *Cursor) PutIntAt(off int, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	cr.mutate(off, b[:])
}

func (cr *Cursor) PutInt(v int32) {
	cr.PutIntAt(cr.offset, v)
	cr.offset += 4
}

func (cr *Cursor) GetLongAt(off int) int64 {
	var b [8]byte
	cr.load(off, b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (cr *Cursor) GetLong() int64 {
	v := cr.GetLongAt(cr.offset)
	cr.offset += 8
	return v
}

func (cr *Cursor) PutLongAt(off int, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	cr.mutate(off, b[:])
}

func (cr *Cursor) PutLong(v int64) {
	cr.PutLongAt(cr.offset, v)
	cr.offset += 8
}

// GetBytes fills buf from the current offset.
func (cr *Cursor) GetBytes(buf []byte) {
	cr.load(cr.offset, buf)
	cr.offset += len(buf)
}

func (cr *Cursor) PutBytes(buf []byte) {
	cr.mutate(cr.offset, buf)
	cr.offset += len(buf)
}

// ZapPage sets the whole payload to zero.
func (cr *Cursor) ZapPage() {
	cr.mutate(0, cr.mc.zero)
}
