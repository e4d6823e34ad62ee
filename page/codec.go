package page

import (
	"encoding/binary"
)

// Pages are little endian. Each accessor reports false, and does nothing, when the access
// would fall outside of b.

func inBounds(b []byte, off, sz int) bool {
	return off >= 0 && off+sz <= len(b)
}

func GetByte(b []byte, off int) (byte, bool) {
	if !inBounds(b, off, 1) {
		return 0, false
	}
	return b[off], true
}

func PutByte(b []byte, off int, v byte) bool {
	if !inBounds(b, off, 1) {
		return false
	}
	b[off] = v
	return true
}

func GetShort(b []byte, off int) (int16, bool) {
	if !inBounds(b, off, 2) {
		return 0, false
	}
	return int16(binary.LittleEndian.Uint16(b[off:])), true
}

func PutShort(b []byte, off int, v int16) bool {
	if !inBounds(b, off, 2) {
		return false
	}
	binary.LittleEndian.PutUint16(b[off:], uint16(v))
	return true
}

func GetInt(b []byte, off int) (int32, bool) {
	if !inBounds(b, off, 4) {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(b[off:])), true
}

func PutInt(b []byte, off int, v int32) bool {
	if !inBounds(b, off, 4) {
		return false
	}
	binary.LittleEndian.PutUint32(b[off:], uint32(v))
	return true
}

func GetLong(b []byte, off int) (int64, bool) {
	if !inBounds(b, off, 8) {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(b[off:])), true
}

func PutLong(b []byte, off int, v int64) bool {
	if !inBounds(b, off, 8) {
		return false
	}
	binary.LittleEndian.PutUint64(b[off:], uint64(v))
	return true
}
