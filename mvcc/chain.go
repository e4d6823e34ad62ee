package mvcc

// Snapshot is a copy of a page's payload as of some version. A snapshot is never changed once
// it is linked into a chain; inserting below the head of a chain clones the snapshots above
// the insertion point instead, sharing their payloads.
type Snapshot struct {
	version  uint64
	payload  []byte
	previous *Snapshot
}

// preHistory stands for the content of a page before its first write: all zeros. It is
// always the oldest snapshot in a chain and it is shared by all chains.
var preHistory = &Snapshot{}

func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) Previous() *Snapshot {
	return s.previous
}

func (s *Snapshot) PreHistory() bool {
	return s == preHistory
}

// visible returns the newest snapshot which canSee accepts; preHistory is always visible.
// nil means nothing in the chain is visible.
func (s *Snapshot) visible(canSee func(ver uint64) bool) *Snapshot {
	for ; s != nil; s = s.previous {
		if s == preHistory || canSee(s.version) {
			return s
		}
	}
	return nil
}

// payloadOr returns the payload of the snapshot, or zero if the snapshot has no payload.
func (s *Snapshot) payloadOr(zero []byte) []byte {
	if s == nil || s.payload == nil {
		return zero
	}
	return s.payload
}

type patchEntry struct {
	off int
	b   []byte
}

type patchLog []patchEntry

func (pl patchLog) applyTo(payload, zero []byte) []byte {
	buf := append(make([]byte, 0, len(zero)), payload...)
	if len(buf) == 0 {
		buf = append(buf, zero...)
	}
	for _, pe := range pl {
		copy(buf[pe.off:], pe.b)
	}
	return buf
}

// push returns a chain with s in front of head. s must be newer than every version in head.
func push(head, s *Snapshot) *Snapshot {
	if s == preHistory {
		return preHistory
	}
	s.previous = head
	return s
}

// insert returns a chain with s placed in version order, replacing any snapshot with the same
// version. Snapshots newer than s are cloned; if pl is not empty, the clones get payloads
// with the patches applied.
func insert(head, s *Snapshot, pl patchLog, zero []byte) *Snapshot {
	var newer []*Snapshot
	cur := head
	for cur != nil && cur != preHistory && cur.version > s.version {
		newer = append(newer, cur)
		cur = cur.previous
	}
	if cur != nil && cur != preHistory && cur.version == s.version {
		cur = cur.previous
	}
	s.previous = cur

	for idx := len(newer) - 1; idx >= 0; idx -= 1 {
		payload := newer[idx].payload
		if len(pl) > 0 {
			payload = pl.applyTo(payload, zero)
		}
		s = &Snapshot{
			version:  newer[idx].version,
			payload:  payload,
			previous: s,
		}
	}
	return s
}

// trim returns a chain without any snapshot older than the newest snapshot at or below
// horizon, and the number of snapshots which were dropped. preHistory is not counted.
func trim(head *Snapshot, horizon uint64) (*Snapshot, int) {
	var newer []*Snapshot
	cur := head
	for cur != nil && cur != preHistory && cur.version > horizon {
		newer = append(newer, cur)
		cur = cur.previous
	}
	if cur == nil || cur.previous == nil {
		return head, 0
	}

	var cnt int
	for s := cur.previous; s != nil; s = s.previous {
		if s != preHistory {
			cnt += 1
		}
	}
	if cnt == 0 {
		return head, 0
	}

	s := preHistory
	if cur != preHistory {
		s = &Snapshot{
			version: cur.version,
			payload: cur.payload,
		}
	}
	for idx := len(newer) - 1; idx >= 0; idx -= 1 {
		s = &Snapshot{
			version:  newer[idx].version,
			payload:  newer[idx].payload,
			previous: s,
		}
	}
	return s, cnt
}

// versions lists the versions of the chain, newest first; preHistory is not listed.
func (s *Snapshot) versions() []uint64 {
	var vers []uint64
	for ; s != nil; s = s.previous {
		if s != preHistory {
			vers = append(vers, s.version)
		}
	}
	return vers
}
