package pagestore

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/page"
)

// Kinds lists the names accepted by Open.
var Kinds = []string{"file", "btree", "bbolt", "badger", "pebble"}

// Open returns the store named by kind with its data kept in dataDir.
func Open(kind, dataDir string, pageSize int, logger *log.Logger) (page.Store, error) {
	switch kind {
	case "file":
		return OpenFile(filepath.Join(dataDir, "verpage.pages"), pageSize)
	case "btree":
		return NewBTree(), nil
	case "bbolt":
		return OpenBBolt(dataDir)
	case "badger":
		return OpenBadger(dataDir, logger)
	case "pebble":
		return OpenPebble(dataDir, logger)
	}
	return nil, fmt.Errorf("pagestore: unknown store: %s", kind)
}

// Page keys are big endian so that the key order matches the page order.

func encodeKey(pid page.PageID) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(pid))
	return key[:]
}

func decodeKey(key []byte) page.PageID {
	if len(key) != 8 {
		panic(fmt.Sprintf("pagestore: decode key wrong length: %v", key))
	}
	return page.PageID(binary.BigEndian.Uint64(key))
}
