package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompareRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("letmein-please")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, hasher.Compare(hash, "letmein-please"))
}

func TestCompareRejectsWrongPassword(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("letmein-please")
	require.NoError(t, err)

	err = hasher.Compare(hash, "not-the-password")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestCompareRejectsMalformedHash(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	err := hasher.Compare("not-a-bcrypt-hash", "anything")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestOutOfRangeCostFallsBackToDefault(t *testing.T) {
	hasher := NewBcryptHasher(99)

	hash, err := hasher.Hash("letmein-please")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
