package pagestore_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/leftmike/verpage/page"
	"github.com/leftmike/verpage/pagestore"
	"github.com/leftmike/verpage/testutil"
)

const pageSize = 256

func fillPage(b byte) []byte {
	buf := make([]byte, pageSize)
	for idx := range buf {
		buf[idx] = b + byte(idx%7)
	}
	return buf
}

func readPage(t *testing.T, st page.Store, pid page.PageID, want []byte) {
	t.Helper()

	buf := make([]byte, pageSize)
	ok, err := st.ReadPage(pid, buf)
	if err != nil {
		t.Fatalf("ReadPage(%d) failed with %s", pid, err)
	}
	if want == nil {
		if ok {
			t.Errorf("ReadPage(%d) got found want not found", pid)
		}
		return
	}
	if !ok {
		t.Errorf("ReadPage(%d) got not found want found", pid)
	} else if !bytes.Equal(buf, want) {
		t.Errorf("ReadPage(%d) got %v want %v", pid, buf[:8], want[:8])
	}
}

func lastPageID(t *testing.T, st page.Store, want page.PageID, wantOK bool) {
	t.Helper()

	pid, ok, err := st.LastPageID()
	if err != nil {
		t.Fatalf("LastPageID() failed with %s", err)
	}
	if ok != wantOK || (ok && pid != want) {
		t.Errorf("LastPageID() got %d, %v want %d, %v", pid, ok, want, wantOK)
	}
}

func writePage(t *testing.T, st page.Store, pid page.PageID, buf []byte) {
	t.Helper()

	err := st.WritePage(pid, buf)
	if err != nil {
		t.Fatalf("WritePage(%d) failed with %s", pid, err)
	}
}

// testStore writes and reads back pages; if reopen is not nil, the store is closed and
// reopened and the pages must still be there.
func testStore(t *testing.T, st page.Store, reopen func() (page.Store, error), holes bool) {
	t.Helper()

	lastPageID(t, st, 0, false)
	readPage(t, st, 0, nil)

	p3 := fillPage(30)
	p1 := fillPage(10)
	writePage(t, st, 3, p3)
	writePage(t, st, 1, p1)
	lastPageID(t, st, 3, true)

	readPage(t, st, 1, p1)
	readPage(t, st, 3, p3)
	readPage(t, st, 4, nil)
	if holes {
		readPage(t, st, 2, make([]byte, pageSize))
	} else {
		readPage(t, st, 2, nil)
	}

	p1 = fillPage(100)
	writePage(t, st, 1, p1)
	readPage(t, st, 1, p1)

	err := st.Sync()
	if err != nil {
		t.Fatalf("Sync() failed with %s", err)
	}

	if reopen != nil {
		err = st.Close()
		if err != nil {
			t.Fatalf("Close() failed with %s", err)
		}
		st, err = reopen()
		if err != nil {
			t.Fatalf("reopen failed with %s", err)
		}

		lastPageID(t, st, 3, true)
		readPage(t, st, 1, p1)
		readPage(t, st, 3, p3)
		readPage(t, st, 4, nil)
	}

	err = st.Close()
	if err != nil {
		t.Errorf("Close() failed with %s", err)
	}
}

func cleanDir(t *testing.T, dir string) string {
	t.Helper()

	dir = filepath.Join("testdata", dir)
	err := testutil.CleanDir(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestFileStore(t *testing.T) {
	name := filepath.Join(cleanDir(t, "file"), "test.pages")
	open := func() (page.Store, error) {
		return pagestore.OpenFile(name, pageSize)
	}
	st, err := open()
	if err != nil {
		t.Fatalf("OpenFile(%s) failed with %s", name, err)
	}
	testStore(t, st, open, true)
}

func TestBTreeStore(t *testing.T) {
	testStore(t, pagestore.NewBTree(), nil, false)
}

func TestBBoltStore(t *testing.T) {
	dir := cleanDir(t, "bbolt")
	open := func() (page.Store, error) {
		return pagestore.OpenBBolt(dir)
	}
	st, err := open()
	if err != nil {
		t.Fatalf("OpenBBolt(%s) failed with %s", dir, err)
	}
	testStore(t, st, open, false)
}

func TestBadgerStore(t *testing.T) {
	dir := cleanDir(t, "badger")
	logger := testutil.SetupLogger(filepath.Join("testdata", "pagestore_test.log"))
	open := func() (page.Store, error) {
		return pagestore.OpenBadger(dir, logger)
	}
	st, err := open()
	if err != nil {
		t.Fatalf("OpenBadger(%s) failed with %s", dir, err)
	}
	testStore(t, st, open, false)
}

func TestPebbleStore(t *testing.T) {
	dir := cleanDir(t, "pebble")
	logger := testutil.SetupLogger(filepath.Join("testdata", "pagestore_test.log"))
	open := func() (page.Store, error) {
		return pagestore.OpenPebble(dir, logger)
	}
	st, err := open()
	if err != nil {
		t.Fatalf("OpenPebble(%s) failed with %s", dir, err)
	}
	testStore(t, st, open, false)
}

func TestOpen(t *testing.T) {
	logger := testutil.SetupLogger(filepath.Join("testdata", "pagestore_test.log"))

	for _, kind := range pagestore.Kinds {
		dir := cleanDir(t, "open-"+kind)
		st, err := pagestore.Open(kind, dir, pageSize, logger)
		if err != nil {
			t.Errorf("Open(%s) failed with %s", kind, err)
			continue
		}
		writePage(t, st, 0, fillPage(1))
		readPage(t, st, 0, fillPage(1))
		err = st.Close()
		if err != nil {
			t.Errorf("Close(%s) failed with %s", kind, err)
		}
	}

	_, err := pagestore.Open("unknown", "testdata", pageSize, logger)
	if err == nil {
		t.Errorf("Open(unknown) did not fail")
	}
}
