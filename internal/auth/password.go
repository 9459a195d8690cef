package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret bcrypt-hashes a password or PIN.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}

// CheckSecret reports whether secret matches hash. An empty hash never
// matches, so users without a PIN cannot sign in with one.
func CheckSecret(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
