// Package auth holds the credential and token primitives of the identity
// service: password hashing, signed session tokens and the request identity
// derived from them.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var (
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrInvalidHash       = errors.New("invalid password hash")
	ErrUnknownHashFormat = errors.New("unsupported password hash format")
	ErrUnknownAlgorithm  = errors.New("unknown password hashing algorithm")
)

// PasswordHasher produces salted one-way hashes and verifies plaintext
// against them. Verify returns (false, nil) on mismatch and an error only
// when the stored hash cannot be parsed.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to
// bcrypt.DefaultCost when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrInvalidHash, err)
	}
}

// Argon2Params are the tunable argon2id work factors.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultArgon2Params follows the OWASP argon2id recommendation.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// Argon2idHasher implements PasswordHasher with argon2id, encoding hashes in
// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type Argon2idHasher struct {
	params Argon2Params
}

func NewArgon2idHasher(params Argon2Params) *Argon2idHasher {
	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrInvalidHash
	}
	if threads == 0 || threads > 255 {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 || len(expected) > 1024 {
		return false, ErrInvalidHash
	}

	candidate := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(threads), uint32(len(expected))) //nolint:gosec // bounded above

	return subtle.ConstantTimeCompare(candidate, expected) == 1, nil
}

// MultiHasher hashes with one primary algorithm but verifies every supported
// format, so stored hashes keep working after PASSWORD_HASHER changes.
type MultiHasher struct {
	primary string
	bcrypt  *BcryptHasher
	argon   *Argon2idHasher
	dummy   string
}

// NewHasher builds a MultiHasher whose primary algorithm is algorithm.
func NewHasher(algorithm string, bcryptCost int, argonParams Argon2Params) (*MultiHasher, error) {
	h := &MultiHasher{
		primary: strings.ToLower(strings.TrimSpace(algorithm)),
		bcrypt:  NewBcryptHasher(bcryptCost),
		argon:   NewArgon2idHasher(argonParams),
	}
	if h.primary == "" {
		h.primary = AlgorithmBcrypt
	}
	if h.primary != AlgorithmBcrypt && h.primary != AlgorithmArgon2id {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	// A hash of a random secret, verified when a login identifier does not
	// resolve so that unknown and known accounts cost the same.
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate dummy seed: %w", err)
	}
	dummy, err := h.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, fmt.Errorf("build dummy hash: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Algorithm returns the primary hashing algorithm.
func (h *MultiHasher) Algorithm() string {
	return h.primary
}

func (h *MultiHasher) Hash(password string) (string, error) {
	if h.primary == AlgorithmArgon2id {
		return h.argon.Hash(password)
	}
	return h.bcrypt.Hash(password)
}

func (h *MultiHasher) Verify(password, hash string) (bool, error) {
	switch {
	case isArgon2id(hash):
		return h.argon.Verify(password, hash)
	case isBcrypt(hash):
		return h.bcrypt.Verify(password, hash)
	default:
		return false, ErrUnknownHashFormat
	}
}

// NeedsRehash reports whether hash was produced by something other than the
// primary algorithm (or, for bcrypt, with a different cost).
func (h *MultiHasher) NeedsRehash(hash string) bool {
	if h.primary == AlgorithmArgon2id {
		return !isArgon2id(hash)
	}
	if !isBcrypt(hash) {
		return true
	}
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.bcrypt.cost
}

// DummyHash returns a valid hash that matches no user-supplied password.
func (h *MultiHasher) DummyHash() string {
	return h.dummy
}

func isArgon2id(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
