package page

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

type PageID uint64

type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Frame is a fixed size buffer holding one page. The first ReservedBytes of the frame are
// reserved for use by the layer above the cache; the rest is the payload.
//
// A frame must only be used while it is pinned. At most one pinner at a time holds write
// admission; readers never wait for it.
type Frame struct {
	writeMutex sync.Mutex
	pageID     PageID
	cache      *Cache
	pin        int32
	dirty      int32
	seq        uint64
	loaded     chan struct{}
	err        error
	elem       *list.Element
	Bytes      []byte
}

func (fr *Frame) PageID() PageID {
	return fr.pageID
}

func (fr *Frame) Reserved() []byte {
	return fr.Bytes[:fr.cache.cfg.ReservedBytes]
}

func (fr *Frame) Payload() []byte {
	return fr.Bytes[fr.cache.cfg.ReservedBytes:]
}

func (fr *Frame) MarkDirty() {
	atomic.StoreInt32(&fr.dirty, 1)
}

func (fr *Frame) isDirty() bool {
	return atomic.LoadInt32(&fr.dirty) != 0
}

// BeginWrite and EndWrite bracket a burst of in place mutations of the frame. The
// modification sequence is odd while a burst is in progress.
func (fr *Frame) BeginWrite() {
	atomic.AddUint64(&fr.seq, 1)
}

func (fr *Frame) EndWrite() {
	atomic.AddUint64(&fr.seq, 1)
}

// Sequence returns the modification sequence of the frame. A reader which samples the same
// even sequence before and after reading the payload saw a consistent payload.
func (fr *Frame) Sequence() uint64 {
	return atomic.LoadUint64(&fr.seq)
}

func (fr *Frame) GetByte(off int) (byte, bool) {
	return GetByte(fr.Payload(), off)
}

func (fr *Frame) PutByte(off int, b byte) bool {
	return PutByte(fr.Payload(), off, b)
}

func (fr *Frame) GetInt(off int) (int32, bool) {
	return GetInt(fr.Payload(), off)
}

func (fr *Frame) PutInt(off int, i int32) bool {
	return PutInt(fr.Payload(), off, i)
}

func (fr *Frame) GetLong(off int) (int64, bool) {
	return GetLong(fr.Payload(), off)
}

func (fr *Frame) PutLong(off int, l int64) bool {
	return PutLong(fr.Payload(), off, l)
}

// LoadPayload copies len(b) bytes of the payload starting at off into b, a word at a time with
// atomic loads; it may race with the holder of write admission calling StorePayload. Use
// Sequence to find out if the bytes are consistent.
func (fr *Frame) LoadPayload(off int, b []byte) bool {
	pos := fr.cache.cfg.ReservedBytes + off
	if off < 0 || pos+len(b) > len(fr.Bytes) {
		return false
	}
	for w := pos &^ 3; w < pos+len(b); w += 4 {
		word := atomic.LoadUint32(fr.word(w))
		wb := (*[4]byte)(unsafe.Pointer(&word))
		lo, hi := overlap(w, pos, len(b))
		copy(b[lo-pos:hi-pos], wb[lo-w:hi-w])
	}
	return true
}

// StorePayload copies b into the payload starting at off with atomic stores. Only the holder
// of write admission may call it.
func (fr *Frame) StorePayload(off int, b []byte) bool {
	pos := fr.cache.cfg.ReservedBytes + off
	if off < 0 || pos+len(b) > len(fr.Bytes) {
		return false
	}
	for w := pos &^ 3; w < pos+len(b); w += 4 {
		wp := fr.word(w)
		word := atomic.LoadUint32(wp)
		wb := (*[4]byte)(unsafe.Pointer(&word))
		lo, hi := overlap(w, pos, len(b))
		copy(wb[lo-w:hi-w], b[lo-pos:hi-pos])
		atomic.StoreUint32(wp, word)
	}
	return true
}

// word returns the aligned 32 bit word at w; page sizes are a multiple of 8 and frame buffers
// are at least 8 byte aligned.
func (fr *Frame) word(w int) *uint32 {
	return (*uint32)(unsafe.Pointer(&fr.Bytes[w]))
}

// overlap returns the part of the word at w which falls inside [pos, pos+n).
func overlap(w, pos, n int) (int, int) {
	lo, hi := w, w+4
	if lo < pos {
		lo = pos
	}
	if hi > pos+n {
		hi = pos + n
	}
	return lo, hi
}
