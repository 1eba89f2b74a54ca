package crypto

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Derive maps an ordered tuple of seeds to a stable 32-byte address encoded
// as lowercase hex. Each seed is length-prefixed so ("ab","c") and ("a","bc")
// never collide.
func Derive(seeds ...[]byte) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only returned for an oversized key; nil is always valid
		panic(err)
	}
	var lenBuf [4]byte
	for _, s := range seeds {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		h.Write(lenBuf[:])
		h.Write(s)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveStrings is Derive over string seeds.
func DeriveStrings(seeds ...string) string {
	raw := make([][]byte, len(seeds))
	for i, s := range seeds {
		raw[i] = []byte(s)
	}
	return Derive(raw...)
}
