package pagestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/leftmike/verpage/page"
)

var (
	pagesBucket = []byte{'p', 'a', 'g', 'e', 's'}
)

type bboltStore struct {
	db *bbolt.DB
}

func OpenBBolt(dataDir string) (page.Store, error) {
	os.MkdirAll(dataDir, 0755)

	db, err := bbolt.Open(filepath.Join(dataDir, "verpage.bbolt"), 0644, nil)
	if err != nil {
		return nil, err
	}
	// Sync explicitly when the page cache flushes.
	db.NoSync = true

	err = db.Update(
		func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(pagesBucket)
			return err
		})
	if err != nil {
		db.Close()
		return nil, err
	}

	return bboltStore{
		db: db,
	}, nil
}

func bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bkt := tx.Bucket(pagesBucket)
	if bkt == nil {
		return nil, errors.New("pagestore: bbolt: missing pages bucket")
	}
	return bkt, nil
}

func (bs bboltStore) ReadPage(pid page.PageID, buf []byte) (bool, error) {
	var found bool
	err := bs.db.View(
		func(tx *bbolt.Tx) error {
			bkt, err := bucket(tx)
			if err != nil {
				return err
			}
			val := bkt.Get(encodeKey(pid))
			if val == nil {
				return nil
			}
			if len(val) != len(buf) {
				return fmt.Errorf("pagestore: bbolt: page %d: got %d bytes, want %d", pid, len(val),
					len(buf))
			}
			copy(buf, val)
			found = true
			return nil
		})
	return found, err
}

func (bs bboltStore) WritePage(pid page.PageID, buf []byte) error {
	return bs.db.Update(
		func(tx *bbolt.Tx) error {
			bkt, err := bucket(tx)
			if err != nil {
				return err
			}
			return bkt.Put(encodeKey(pid), append(make([]byte, 0, len(buf)), buf...))
		})
}

func (bs bboltStore) LastPageID() (page.PageID, bool, error) {
	var pid page.PageID
	var ok bool
	err := bs.db.View(
		func(tx *bbolt.Tx) error {
			bkt, err := bucket(tx)
			if err != nil {
				return err
			}
			key, _ := bkt.Cursor().Last()
			if key != nil {
				pid = decodeKey(key)
				ok = true
			}
			return nil
		})
	return pid, ok, err
}

func (bs bboltStore) Sync() error {
	return bs.db.Sync()
}

func (bs bboltStore) Close() error {
	return bs.db.Close()
}
