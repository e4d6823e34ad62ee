package mvcc

import (
	"sort"
)

// VersionContext carries the versions a transaction writes under and reads at. It is owned by
// a single transaction; cursors hold it by reference, so a change is seen by every cursor
// opened with it, including linked cursors.
type VersionContext struct {
	writeVersion uint64
	readVersion  uint64
	excluded     []uint64
	dirty        bool
}

func NewVersionContext() *VersionContext {
	return &VersionContext{}
}

// SetVersions replaces the write version, the read version, and the set of versions which
// are not yet visible even though they are at or below the read version. Excluded versions
// above the read version are ignored.
func (vc *VersionContext) SetVersions(write, read uint64, excluded []uint64) {
	vc.writeVersion = write
	vc.readVersion = read
	vc.excluded = vc.excluded[:0]
	for _, v := range excluded {
		if v <= read {
			vc.excluded = append(vc.excluded, v)
		}
	}
	sort.Slice(vc.excluded, func(i, j int) bool { return vc.excluded[i] < vc.excluded[j] })
}

func (vc *VersionContext) SetWriteAndReadVersion(ver uint64) {
	vc.SetVersions(ver, ver, nil)
}

func (vc *VersionContext) WriteVersion() uint64 {
	return vc.writeVersion
}

func (vc *VersionContext) ReadVersion() uint64 {
	return vc.readVersion
}

func (vc *VersionContext) IsExcluded(ver uint64) bool {
	idx := sort.Search(len(vc.excluded), func(i int) bool { return vc.excluded[i] >= ver })
	return idx < len(vc.excluded) && vc.excluded[idx] == ver
}

// Excluded returns a copy of the excluded versions in increasing order.
func (vc *VersionContext) Excluded() []uint64 {
	return append([]uint64(nil), vc.excluded...)
}

// canSee returns true if content last written under ver is visible.
func (vc *VersionContext) canSee(ver uint64) bool {
	return ver == vc.writeVersion || (ver <= vc.readVersion && !vc.IsExcluded(ver))
}

// MarkDirty is called when a read had to fall back from the live payload to older content.
func (vc *VersionContext) MarkDirty() {
	vc.dirty = true
}

func (vc *VersionContext) IsDirty() bool {
	return vc.dirty
}

func (vc *VersionContext) ClearDirty() {
	vc.dirty = false
}
