package multipass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getspookyid/multipass/multipass"
)

func TestDeriveBlindingFactorDeterministicIsStable(t *testing.T) {
	a := multipass.DeriveBlindingFactorDeterministic("multipass-1", "anchor-x", 7)
	b := multipass.DeriveBlindingFactorDeterministic("multipass-1", "anchor-x", 7)
	assert.Equal(t, a, b)
}

func TestDeriveBlindingFactorDeterministicDiffersPerPersona(t *testing.T) {
	a := multipass.DeriveBlindingFactorDeterministic("persona-a", "anchor-x", 1)
	b := multipass.DeriveBlindingFactorDeterministic("persona-b", "anchor-x", 1)
	assert.NotEqual(t, a, b)
}

func TestDeriveBlindingFactorIncludesTimestamp(t *testing.T) {
	a := multipass.DeriveBlindingFactor("multipass-1", "anchor-x", 1)
	b := multipass.DeriveBlindingFactor("multipass-1", "anchor-x", 1)
	assert.NotEqual(t, a, b, "wall-clock nanoseconds must vary across two successive calls")
}

func TestVerifyNonCorrelatability(t *testing.T) {
	a := multipass.DeriveBlindingFactorDeterministic("household-member-1", "anchor-x", 0)
	b := multipass.DeriveBlindingFactorDeterministic("household-member-2", "anchor-x", 0)

	ok, err := multipass.VerifyNonCorrelatability(a[:], b[:])
	require.NoError(t, err)
	assert.True(t, ok, "two independently derived factors should fall in the non-correlated Hamming band")
}

func TestVerifyNonCorrelatabilityRejectsMismatchedLengths(t *testing.T) {
	_, err := multipass.VerifyNonCorrelatability([]byte{1, 2, 3}, []byte{1, 2})
	assert.Error(t, err)
}

func TestVerifyNonCorrelatabilityRejectsIdenticalFactors(t *testing.T) {
	a := multipass.DeriveBlindingFactorDeterministic("same-persona", "anchor-x", 0)
	ok, err := multipass.VerifyNonCorrelatability(a[:], a[:])
	require.NoError(t, err)
	assert.False(t, ok, "identical factors have Hamming distance 0, outside the non-correlated band")
}
