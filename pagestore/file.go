package pagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/leftmike/verpage/page"
)

type fileStore struct {
	mutex    sync.Mutex
	f        *os.File
	pageSize int64
}

// OpenFile returns a store which keeps page n at offset n * pageSize of a single file.
func OpenFile(name string, pageSize int) (page.Store, error) {
	err := os.MkdirAll(filepath.Dir(name), 0755)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &fileStore{
		f:        f,
		pageSize: int64(pageSize),
	}, nil
}

func (fs *fileStore) ReadPage(pid page.PageID, buf []byte) (bool, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	fi, err := fs.f.Stat()
	if err != nil {
		return false, err
	}
	if fi.Size() < (int64(pid)+1)*fs.pageSize {
		return false, nil
	}
	br, err := fs.f.ReadAt(buf, int64(pid)*fs.pageSize)
	if err != nil {
		return false, err
	} else if int64(br) != fs.pageSize {
		return false, fmt.Errorf("pagestore: partial read: got %d, want %d", br, fs.pageSize)
	}
	return true, nil
}

func (fs *fileStore) WritePage(pid page.PageID, buf []byte) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	bw, err := fs.f.WriteAt(buf, int64(pid)*fs.pageSize)
	if err != nil {
		return err
	} else if int64(bw) != fs.pageSize {
		return fmt.Errorf("pagestore: partial write: got %d, want %d", bw, fs.pageSize)
	}
	return nil
}

func (fs *fileStore) LastPageID() (page.PageID, bool, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	fi, err := fs.f.Stat()
	if err != nil {
		return 0, false, err
	}
	n := fi.Size() / fs.pageSize
	if n == 0 {
		return 0, false, nil
	}
	return page.PageID(n - 1), true, nil
}

func (fs *fileStore) Sync() error {
	return fs.f.Sync()
}

func (fs *fileStore) Close() error {
	return fs.f.Close()
}
