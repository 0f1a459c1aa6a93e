// Package cryptox implements the password proof used by sign-in: the
// client derives a key from password and salt with Argon2id and sends only
// a SHA-256 verifier of that key; the server stores and compares verifiers.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLen       = 32
)

// DeriveMasterKey stretches password with salt using Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keyLen)
}

// MakeVerifier hashes a master key into the value that is sent to and kept
// by the server.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// VerifierFor derives the verifier for password and salt in one step.
func VerifierFor(password []byte, salt []byte) []byte {
	return MakeVerifier(DeriveMasterKey(password, salt))
}

// EqualVerifiers compares two verifiers in constant time.
func EqualVerifiers(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
