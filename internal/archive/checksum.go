package archive

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Checksum returns the hex blake3-256 digest of payload.
func Checksum(payload []byte) string {
	h := blake3.New(32, nil)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
