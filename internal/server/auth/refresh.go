package auth

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jagcoaching/speechcoach/internal/common"
)

// NewRefreshToken returns an opaque, URL-safe refresh token carrying 256 bits
// of entropy.
func NewRefreshToken() (string, error) {
	return common.MakeRandURLString(common.RefreshTokenBytes)
}

// HashRefreshToken is the lookup key stored in place of the token itself.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
