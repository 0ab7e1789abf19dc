// Package secrets generates and hashes the opaque secrets handed to callers:
// session refresh secrets (argon2id) and client secrets (bcrypt).
package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// SecretLength is the length of every generated secret.
const SecretLength = 64

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrMismatch is returned when a secret does not match its hash.
var ErrMismatch = errors.New("secret mismatch")

// Generate returns SecretLength random alphanumeric characters.
func Generate() (string, error) {
	return Alphanumeric(SecretLength)
}

// Alphanumeric returns n characters drawn uniformly from [A-Za-z0-9].
func Alphanumeric(n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("could not generate secret: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// HashClientSecret creates a bcrypt hash of a client secret.
func HashClientSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// VerifyClientSecret checks secret against a bcrypt hash.
func VerifyClientSecret(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}
