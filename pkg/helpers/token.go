package helpers

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
)

// VerifyTokenBytes is the entropy of a verification token.
const VerifyTokenBytes = 16

// VerifyPayloadPrefix marks a verification token inside a /start payload.
const VerifyPayloadPrefix = "verify_"

// KeyRuntimeSettings is the Redis key holding persisted runtime settings.
func KeyRuntimeSettings() string {
	return "settings:runtime"
}

// KeyUserRate is the Redis key for the per-user update rate limit.
func KeyUserRate(uid int64) string {
	return "rl:user:" + strconv.FormatInt(uid, 10)
}

// GenToken returns n random bytes encoded as unpadded base64url.
func GenToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenVerifyToken generates a verification token safe for Telegram deep
// links (at most 64 chars of [A-Za-z0-9_-]).
func GenVerifyToken() (string, error) {
	return GenToken(VerifyTokenBytes)
}
