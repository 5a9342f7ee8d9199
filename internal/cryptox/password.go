// Package cryptox handles hashing of the local-only account credential.
// The credential hash never leaves the device: it is stored in the local
// store only and is excluded from every remote document projection.
package cryptox

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashCredential hashes a plaintext credential with bcrypt.
func HashCredential(credential string) (string, error) {
	if len(credential) < 8 {
		return "", fmt.Errorf("credential must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}

	return string(hashed), nil
}

// VerifyCredential compares a stored hash against a plaintext credential.
func VerifyCredential(hash, credential string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential))
}
