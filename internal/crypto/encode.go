package crypto

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeKey returns standard base64 encoding without newlines.
func EncodeKey(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// DecodeKey parses text produced by EncodeKey and checks it is size bytes long.
// A size of zero skips the length check.
func DecodeKey(s string, size int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	if size > 0 && len(b) != size {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrBadKey, size, len(b))
	}
	return b, nil
}
