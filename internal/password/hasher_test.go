package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	passwords := []string{"secretpw", "パスワード1234", strings.Repeat("x", MaxLength), " spaced out "}
	for _, p := range passwords {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.True(t, h.Verify(p, hash), "Verify(%q, Hash(%q))", p, p)
	}
}

func TestVerifyMismatch(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("secretpw")
	require.NoError(t, err)

	assert.False(t, h.Verify("secretpx", hash))
	assert.False(t, h.Verify("SECRETPW", hash))
	assert.False(t, h.Verify("", hash))
	assert.False(t, h.Verify("secretpw", "not-a-bcrypt-hash"))
}

func TestHashIsSalted(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("secretpw")
	require.NoError(t, err)
	second, err := h.Hash("secretpw")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHashTooLong(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Hash(strings.Repeat("x", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestNewHasherCostFallback(t *testing.T) {
	h, err := NewHasher(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, h.Cost())

	assert.False(t, h.VerifyDummy("anything"))
}
