package pagestore

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/page"
)

type pebbleStore struct {
	db *pebble.DB
}

func OpenPebble(dataDir string, logger *log.Logger) (page.Store, error) {
	os.MkdirAll(dataDir, 0755)

	opts := &pebble.Options{}
	if logger != nil {
		opts.Logger = logger
	}
	db, err := pebble.Open(dataDir, opts)
	if err != nil {
		return nil, err
	}
	return pebbleStore{
		db: db,
	}, nil
}

func (ps pebbleStore) ReadPage(pid page.PageID, buf []byte) (bool, error) {
	val, closer, err := ps.db.Get(encodeKey(pid))
	if err == pebble.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	defer closer.Close()

	if len(val) != len(buf) {
		return false, fmt.Errorf("pagestore: pebble: page %d: got %d bytes, want %d", pid, len(val),
			len(buf))
	}
	copy(buf, val)
	return true, nil
}

func (ps pebbleStore) WritePage(pid page.PageID, buf []byte) error {
	return ps.db.Set(encodeKey(pid), buf, pebble.NoSync)
}

func (ps pebbleStore) LastPageID() (page.PageID, bool, error) {
	it := ps.db.NewIter(nil)
	defer it.Close()

	if !it.Last() {
		return 0, false, it.Error()
	}
	return decodeKey(append([]byte(nil), it.Key()...)), true, nil
}

func (ps pebbleStore) Sync() error {
	return ps.db.Flush()
}

func (ps pebbleStore) Close() error {
	return ps.db.Close()
}
