package entropy_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getspookyid/multipass/entropy"
)

func TestEntropyHarvesterFallbackDistinguishable(t *testing.T) {
	h := entropy.NewHarvester(nil, zerolog.Nop())
	assert.True(t, h.IsFallback())
}

func TestEntropyHarvesterWithHardwareSource(t *testing.T) {
	var seed bytes.Buffer
	for i := 0; i < entropy.PoolLen+entropy.RootLen+32; i++ {
		seed.WriteByte(byte(i))
	}
	h := entropy.NewHarvester(&seed, zerolog.Nop())
	assert.False(t, h.IsFallback())
}

func TestEntropyDrawsDiffer(t *testing.T) {
	h := entropy.NewHarvester(nil, zerolog.Nop())
	a := h.Entropy()
	b := h.Entropy()
	assert.NotEqual(t, a, b)
}

func TestHardwareSecretDeterministicPerContext(t *testing.T) {
	h := entropy.NewHarvester(nil, zerolog.Nop())
	s1, err := h.HardwareSecret([]byte("ctx-a"))
	require.NoError(t, err)
	s2, err := h.HardwareSecret([]byte("ctx-b"))
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	s1Again, err := h.HardwareSecret([]byte("ctx-a"))
	require.NoError(t, err)
	assert.Equal(t, s1, s1Again)
}

func TestLevel4Entropy(t *testing.T) {
	h := entropy.NewHarvester(nil, zerolog.Nop())
	claim1, ent1 := h.Level4Entropy()
	claim2, ent2 := h.Level4Entropy()
	assert.NotEqual(t, ent1, ent2)
	_ = claim1
	_ = claim2
}
