// Package clientid issues the opaque ids that name a browser client.
package clientid

import (
	"crypto/rand"
	"math/big"
)

const (
	letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"
	length  = 32
)

type Source struct{}

func (Source) randString(n int) string {
	ret := make([]byte, n)
	for i := range n {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		ret[i] = letters[num.Int64()]
	}

	return string(ret)
}

// New returns a fresh client id.
func (s Source) New() string {
	return s.randString(length) // Entropy E = L * log2(63) = 32 * log2(63) = 191.3 bits
}

// Valid reports whether id could have been issued by New. Anything else in the
// client cookie is replaced rather than used as a storage key.
func (Source) Valid(id string) bool {
	if len(id) != length {
		return false
	}

	for i := range len(id) {
		if !isLetter(id[i]) {
			return false
		}
	}

	return true
}

func isLetter(c byte) bool {
	return c == '-' ||
		('0' <= c && c <= '9') ||
		('A' <= c && c <= 'Z') ||
		('a' <= c && c <= 'z')
}
