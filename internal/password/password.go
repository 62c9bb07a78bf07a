// Package password stores credentials as salted one-way digests.
//
// Stored form is "<salt_hex>$<digest_hex>": a 16-byte random salt followed by
// the digest of salt || utf8(password). The default digest is a single
// SHA-256 round. It has no work factor and is kept for compatibility with
// hashes already persisted in that format; NewArgon2 offers a memory-hard
// alternative with the same stored shape.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the number of random salt bytes.
const SaltSize = 16

const separator = "$"

// Supported algorithm names.
const (
	SHA256   = "sha256"
	Argon2ID = "argon2id"
)

// ErrInvalidHashFormat is returned by Verify when the stored hash is malformed.
var ErrInvalidHashFormat = errors.New("invalid password hash format")

// digestFunc computes the digest of password under salt.
type digestFunc func(salt, password []byte) []byte

// Hasher hashes and verifies passwords with a fixed digest function.
type Hasher struct {
	digest digestFunc
}

// NewSHA256 returns the default hasher: sha256(salt || password).
func NewSHA256() *Hasher {
	return &Hasher{digest: sha256Digest}
}

// Argon2 parameters, as recommended by RFC 9106 for low-memory environments.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// NewArgon2 returns a hasher deriving a 32-byte argon2id key instead of a
// plain SHA-256 digest. Hashes produced by it do not verify under NewSHA256
// and vice versa.
func NewArgon2() *Hasher {
	return &Hasher{digest: argon2Digest}
}

// New returns the hasher for the named algorithm.
func New(algorithm string) (*Hasher, error) {
	switch algorithm {
	case SHA256, "":
		return NewSHA256(), nil
	case Argon2ID:
		return NewArgon2(), nil
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", algorithm)
	}
}

// Hash salts and hashes password, returning "<salt_hex>$<digest_hex>".
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := h.digest(salt, []byte(password))
	return hex.EncodeToString(salt) + separator + hex.EncodeToString(digest), nil
}

// Verify reports whether password matches storedHash.
// It returns ErrInvalidHashFormat if storedHash does not contain exactly one
// separator or its salt is not valid hex.
func (h *Hasher) Verify(password, storedHash string) (bool, error) {
	if strings.Count(storedHash, separator) != 1 {
		return false, ErrInvalidHashFormat
	}
	saltHex, expected, _ := strings.Cut(storedHash, separator)

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHashFormat, err)
	}

	actual := hex.EncodeToString(h.digest(salt, []byte(password)))
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) == 1, nil
}

func sha256Digest(salt, password []byte) []byte {
	sum := sha256.New()
	sum.Write(salt)
	sum.Write(password)
	return sum.Sum(nil)
}

func argon2Digest(salt, password []byte) []byte {
	return argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}
