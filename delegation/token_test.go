package delegation_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getspookyid/multipass/delegation"
	"github.com/getspookyid/multipass/entropy"
)

func TestTokenMarshalRoundTrip(t *testing.T) {
	anchorID := bytes.Repeat([]byte{0xAB}, 32)
	mobileKey := bytes.Repeat([]byte{0xCD}, 96)
	tok, err := delegation.NewToken(anchorID, mobileKey, 1_900_000_000, 2, 0x0F, 100)
	require.NoError(t, err)

	b, err := tok.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, delegation.TokenLen)

	got, err := delegation.UnmarshalToken(b)
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

func TestNewTokenRejectsWrongFieldLengths(t *testing.T) {
	_, err := delegation.NewToken(make([]byte, 31), make([]byte, 96), 0, 0, 0, 0)
	assert.Error(t, err)

	_, err = delegation.NewToken(make([]byte, 32), make([]byte, 95), 0, 0, 0, 0)
	assert.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	src := entropy.NewHarvester(nil, zerolog.Nop())
	kp, err := delegation.GenerateKeyPair(nil, src)
	require.NoError(t, err)

	tok, err := delegation.NewToken(bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 96), 123, 1, 0, 5)
	require.NoError(t, err)

	sig, err := delegation.Sign(kp, tok, src)
	require.NoError(t, err)

	ok, err := delegation.Verify(kp.PK, tok, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	// a token with a different max_passages must not verify against a
	// signature produced for the original value
	tok.MaxPassages = 6
	ok, err = delegation.Verify(kp.PK, tok, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateKeyPairUsesTwoGenerators(t *testing.T) {
	src := entropy.NewHarvester(nil, zerolog.Nop())
	kp, err := delegation.GenerateKeyPair(nil, src)
	require.NoError(t, err)
	assert.Equal(t, 1, kp.PK.MaxMessages())
}
