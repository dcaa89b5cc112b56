package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultLength is the length of generated account passwords.
const DefaultLength = 16

const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a random password of n characters.
func Generate(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", n)
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// Generator produces passwords. Task modules take one so tests can fix the
// output.
type Generator func() (string, error)

// Default generates DefaultLength passwords.
func Default() (string, error) {
	return Generate(DefaultLength)
}
