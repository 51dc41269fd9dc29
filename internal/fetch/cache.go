package fetch

import (
	"crypto/sha256"
	"encoding/hex"
)

func cacheName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16]) + ".zip"
}
