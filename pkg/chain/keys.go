package chain

import (
	"encoding/binary"
)

type keyType byte

const (
	blockTPrefix keyType = iota + 1
	undoTPrefix
	tipTPrefix
	nonceTPrefix
	mpnNonceTPrefix
	txBlockTPrefix
)

func typedKey(kType keyType, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}

	k := make([]byte, 0, n)
	k = append(k, byte(kType))
	for _, p := range parts {
		k = append(k, p...)
	}

	return k
}

// heightKey encodes h big endian so prefix iteration is in height order.
func heightKey(kType keyType, h uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], h)

	return typedKey(kType, b[:])
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
