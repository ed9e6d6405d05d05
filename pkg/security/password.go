// Package security guards the administrator credential. There is no user
// table; the only secret is a single bcrypt hash carried in configuration.
package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredential covers every mismatch, so callers cannot distinguish a
// wrong password from a malformed hash.
var ErrBadCredential = errors.New("credential mismatch")

// PasswordHasher checks presented passwords against the configured admin
// hash. Hash mints such a hash, so operators do not need a separate tool to
// rotate the credential.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps out-of-range costs to the bcrypt default. Tests
// pass bcrypt.MinCost to stay fast.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (b *bcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrBadCredential
	}
	return nil
}
