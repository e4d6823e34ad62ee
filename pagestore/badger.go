package pagestore

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/page"
)

type badgerStore struct {
	db *badger.DB
}

func OpenBadger(dataDir string, logger *log.Logger) (page.Store, error) {
	os.MkdirAll(dataDir, 0755)

	opts := badger.DefaultOptions(dataDir)
	opts = opts.WithBypassLockGuard(true)
	if logger != nil {
		opts = opts.WithLogger(logger)
	}
	opts = opts.WithSyncWrites(false)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return badgerStore{
		db: db,
	}, nil
}

func (bs badgerStore) ReadPage(pid page.PageID, buf []byte) (bool, error) {
	var found bool
	err := bs.db.View(
		func(tx *badger.Txn) error {
			item, err := tx.Get(encodeKey(pid))
			if err == badger.ErrKeyNotFound {
				return nil
			} else if err != nil {
				return err
			}
			return item.Value(
				func(val []byte) error {
					if len(val) != len(buf) {
						return fmt.Errorf("pagestore: badger: page %d: got %d bytes, want %d", pid,
							len(val), len(buf))
					}
					copy(buf, val)
					found = true
					return nil
				})
		})
	return found, err
}

func (bs badgerStore) WritePage(pid page.PageID, buf []byte) error {
	return bs.db.Update(
		func(tx *badger.Txn) error {
			return tx.Set(encodeKey(pid), append(make([]byte, 0, len(buf)), buf...))
		})
}

func (bs badgerStore) LastPageID() (page.PageID, bool, error) {
	var pid page.PageID
	var ok bool
	err := bs.db.View(
		func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Reverse = true
			opts.PrefetchValues = false
			it := tx.NewIterator(opts)
			defer it.Close()

			it.Rewind()
			if it.Valid() {
				pid = decodeKey(it.Item().KeyCopy(nil))
				ok = true
			}
			return nil
		})
	return pid, ok, err
}

func (bs badgerStore) Sync() error {
	return bs.db.Sync()
}

func (bs badgerStore) Close() error {
	return bs.db.Close()
}
