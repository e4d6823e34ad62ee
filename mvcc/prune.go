package mvcc

import (
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/page"
)

// Versions reports the head version of a page, whether it has ever been written, and the
// versions in its chain, newest first.
func (mc *Cache) Versions(pid page.PageID) (uint64, bool, []uint64) {
	pv, ok := mc.versions.get(pid)
	if !ok {
		return 0, false, nil
	}
	head, written := pv.load()
	return head, written, pv.chain.Load().versions()
}

// Prune drops the snapshots which no reader with a read version at or above horizon can
// select: everything older than the newest snapshot at or below horizon. Callers must not
// have excluded versions at or below horizon. Prune returns the number of snapshots dropped.
func (mc *Cache) Prune(horizon uint64) int {
	var cnt int
	for _, pv := range mc.versions.all() {
		head := pv.chain.Load()
		trimmed, n := trim(head, horizon)
		if n > 0 && pv.chain.CompareAndSwap(head, trimmed) {
			cnt += n
		}
	}

	log.WithFields(log.Fields{
		"horizon":   horizon,
		"snapshots": cnt,
	}).Debug("version chains pruned")
	return cnt
}
