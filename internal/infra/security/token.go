package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	defaultTokenBytes = 32
	tokenPrefix       = "ts_"
)

// RandomTokenGenerator mints opaque session tokens. The prefix makes leaked
// tokens recognizable in logs and support tickets without revealing anything
// about the session itself.
type RandomTokenGenerator struct {
	Size int
}

func (g RandomTokenGenerator) NewToken() (string, error) {
	size := g.Size
	if size <= 0 {
		size = defaultTokenBytes
	}
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("security: entropy read failed: %w", err)
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}
