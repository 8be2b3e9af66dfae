// Package otp generates and checks the numeric codes used to confirm
// physical delivery of an order.
//
// Codes are 6 decimal digits, valid for 15 minutes from issuance, and are
// stored hashed — only the notification email ever carries the plaintext.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/charvilabs/charvi/pkg/crypt"
)

const (
	// Digits is the code length.
	Digits = 6

	// TTL is how long an issued code stays valid.
	TTL = 15 * time.Minute

	// MaxAttempts bounds verification tries per issued code.
	MaxAttempts = 5
)

var codeSpace = big.NewInt(1_000_000)

// Generate returns a fresh random code and its expiry relative to now.
func Generate(now time.Time) (code string, expiresAt time.Time, err error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("otp: generate: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), now.Add(TTL), nil
}

// Hash returns the storable digest of a code.
func Hash(code string) string {
	return crypt.Hash(code)
}

// Matches reports whether candidate hashes to storedHash, in constant time.
func Matches(storedHash, candidate string) bool {
	h := Hash(candidate)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(h)) == 1
}

// Expired reports whether an expiry timestamp has passed at now.
func Expired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
