package random

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"
	"strings"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a uniformly random int in [0, n), or 0 when n <= 0
	Intn(n int) int

	// String generates a random string of the given length from the given alphabet
	String(length int, alphabet string) string
}

// CryptoRandom implements Random using crypto/rand.
// Room codes are guessable secrets for password-less rooms, so they come from a CSPRNG.
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a cryptographically random int in [0, n)
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mathrand.IntN(n)
	}
	return int(result.Int64())
}

// String generates a random string of the given length from the given alphabet
func (r *CryptoRandom) String(length int, alphabet string) string {
	if length <= 0 || alphabet == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(length)
	for range length {
		b.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return b.String()
}
