package storage

import (
	"encoding/hex"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("clarifyai-document-fingerprint-1")

// Fingerprint identifies extracted document text. Equal text gives equal
// fingerprints, so re-uploads of the same content can be detected.
func Fingerprint(text string) string {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		// the key is a fixed 32 bytes
		panic(err)
	}
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
