// Package checksum computes the content digests used as report ETags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Match reports whether an If-Match style value refers to sum. Surrounding
// quotes and a weak "W/" prefix are ignored; "*" matches anything.
func Match(tag, sum string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "*" {
		return true
	}
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`) == sum
}

// Quote formats sum as an ETag header value.
func Quote(sum string) string {
	return `"` + sum + `"`
}
