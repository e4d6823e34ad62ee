package mvcc

import (
	"encoding/binary"
)

const (
	HeaderSize = 3 * 8

	headVersionOffset = 0
	chainRefOffset    = 8
	flagsOffset       = 16

	flagWritten = 1 << 0
)

type header struct {
	headVersion uint64
	chainRef    uint64
	flags       uint64
}

func readHeader(b []byte) header {
	return header{
		headVersion: binary.LittleEndian.Uint64(b[headVersionOffset:]),
		chainRef:    binary.LittleEndian.Uint64(b[chainRefOffset:]),
		flags:       binary.LittleEndian.Uint64(b[flagsOffset:]),
	}
}

func (h header) write(b []byte) {
	binary.LittleEndian.PutUint64(b[headVersionOffset:], h.headVersion)
	binary.LittleEndian.PutUint64(b[chainRefOffset:], h.chainRef)
	binary.LittleEndian.PutUint64(b[flagsOffset:], h.flags)
}

func (h header) written() bool {
	return h.flags&flagWritten != 0
}
