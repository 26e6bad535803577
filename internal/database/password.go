package database

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Credential defaults seeded on first run.
const (
	DefaultAdminID       = "admin"
	DefaultAdminName     = "Administrator"
	DefaultAdminPassword = "admin"

	// DefaultStudentPassword is assigned at enrollment; students change it
	// through the profile path.
	DefaultStudentPassword = "1234"
)

// HashPassword returns the hex-encoded SHA-256 digest of a password.
// The on-disk format matches the legacy attendance schema.
func HashPassword(pwd string) string {
	sum := sha256.Sum256([]byte(pwd))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword compares a candidate password against a stored hash in
// constant time.
func VerifyPassword(hash, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(HashPassword(candidate))) == 1
}
