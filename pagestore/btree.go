package pagestore

import (
	"sync"

	"github.com/google/btree"

	"github.com/leftmike/verpage/page"
)

type btreeStore struct {
	mutex sync.Mutex
	tree  *btree.BTree
}

type btreeItem struct {
	pid page.PageID
	buf []byte
}

func (bi btreeItem) Less(item btree.Item) bool {
	return bi.pid < item.(btreeItem).pid
}

// NewBTree returns a store which keeps pages in memory.
func NewBTree() page.Store {
	return &btreeStore{
		tree: btree.New(16),
	}
}

func (bs *btreeStore) ReadPage(pid page.PageID, buf []byte) (bool, error) {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	item := bs.tree.Get(btreeItem{pid: pid})
	if item == nil {
		return false, nil
	}
	copy(buf, item.(btreeItem).buf)
	return true, nil
}

func (bs *btreeStore) WritePage(pid page.PageID, buf []byte) error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	bs.tree.ReplaceOrInsert(btreeItem{pid: pid, buf: append(make([]byte, 0, len(buf)), buf...)})
	return nil
}

func (bs *btreeStore) LastPageID() (page.PageID, bool, error) {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	item := bs.tree.Max()
	if item == nil {
		return 0, false, nil
	}
	return item.(btreeItem).pid, true, nil
}

func (bs *btreeStore) Sync() error {
	return nil
}

func (bs *btreeStore) Close() error {
	return nil
}
