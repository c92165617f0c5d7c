package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	hashed, err := h.HashPassword("secret1")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	assert.NotEqual(t, "secret1", hashed)

	assert.True(t, h.CheckPassword(hashed, "secret1"))
	assert.False(t, h.CheckPassword(hashed, "secret2"))
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	h1, err := h.HashPassword("secret1")
	require.NoError(t, err)
	h2, err := h.HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, h.CheckPassword(h1, "secret1"))
	assert.True(t, h.CheckPassword(h2, "secret1"))
}

func TestNew_OutOfRangeCostFallsBack(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, New(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, New(99).Cost)
	assert.Equal(t, bcrypt.MinCost, New(bcrypt.MinCost).Cost)
}
