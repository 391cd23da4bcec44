package helpers

import "golang.org/x/crypto/bcrypt"

// HashSecret hashes a secret (verification token) using bcrypt
func HashSecret(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareSecret compares a bcrypt hash with a plain secret
func CompareSecret(hash string, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
