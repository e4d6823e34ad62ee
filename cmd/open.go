package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/mvcc"
	"github.com/leftmike/verpage/page"
	"github.com/leftmike/verpage/pagestore"
)

func openCache() (*mvcc.Cache, *mvcc.Counters, error) {
	if store != "btree" {
		err := os.MkdirAll(dataDir, 0755)
		if err != nil {
			return nil, nil, fmt.Errorf("verpage: %s", err)
		}
	}

	st, err := pagestore.Open(store, dataDir, pageSize, log.StandardLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("verpage: %s", err)
	}

	pool, err := page.NewCache(st,
		page.Config{
			PageSize:      pageSize,
			ReservedBytes: reservedBytes,
			Capacity:      capacity,
		}, log.StandardLogger())
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("verpage: %s", err)
	}

	cntrs := &mvcc.Counters{}
	mc, err := mvcc.New(pool, cntrs)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("verpage: %s", err)
	}

	log.WithFields(log.Fields{
		"store": store,
		"data":  dataDir,
	}).Info("page cache open")
	return mc, cntrs, nil
}

func closeCache(mc *mvcc.Cache) error {
	err := mc.Pool().Close()
	if err != nil {
		return fmt.Errorf("verpage: %s", err)
	}
	return nil
}
