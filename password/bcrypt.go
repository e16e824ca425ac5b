package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPassBytes = 8
	// bcrypt truncates input beyond 72 bytes; reject instead of
	// silently hashing a prefix.
	maxPassBytes = 72
)

// Config holds the bcrypt cost. Zero means bcrypt.DefaultCost.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies passwords.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates cfg and returns a Bcrypt hasher.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Bcrypt{cost: cost}, nil
}

// Hash returns the bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", errors.New("password must be at least 8 bytes")
	}
	if len(password) > maxPassBytes {
		return "", errors.New("password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches encodedHash. A mismatch is
// (false, nil); only malformed hashes produce an error.
func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// NeedsUpgrade reports whether encodedHash was produced with a lower
// cost than the hasher is configured for.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}
