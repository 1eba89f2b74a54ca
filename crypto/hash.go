package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is the hex SHA-256 of data. Transaction ids, block hashes and the
// state root are all Hash values.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
