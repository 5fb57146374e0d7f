package hashx

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex blake2b-256 of b. Used to record what a step wrote.
func Digest(b []byte) string {
	h := blake2b.Sum256(b)
	return hex.EncodeToString(h[:])
}
