package bbs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	s := ScalarFromUint64(424242)
	b := s.Bytes()
	got, err := ScalarFromBytes(b[:])
	require.NoError(t, err)
	assert.True(t, s.Equal(got))
}

func TestScalarFromBytesRejectsNonCanonical(t *testing.T) {
	var tooBig [ScalarLen]byte
	for i := range tooBig {
		tooBig[i] = 0xff
	}
	_, err := ScalarFromBytes(tooBig[:])
	assert.Error(t, err)
}

func TestScalarFromBytesRejectsWrongLength(t *testing.T) {
	_, err := ScalarFromBytes(make([]byte, 10))
	assert.Error(t, err)
}

func TestScalarArithmetic(t *testing.T) {
	a := ScalarFromUint64(7)
	b := ScalarFromUint64(5)
	assert.True(t, a.Add(b).Equal(ScalarFromUint64(12)))
	assert.True(t, a.Sub(b).Equal(ScalarFromUint64(2)))
	assert.True(t, a.Mul(b).Equal(ScalarFromUint64(35)))
}

func TestScalarInverse(t *testing.T) {
	a := ScalarFromUint64(12345)
	inv, err := a.Inverse()
	require.NoError(t, err)
	assert.True(t, a.Mul(inv).Equal(ScalarFromUint64(1)))

	_, err = ZeroScalar().Inverse()
	assert.Error(t, err)
}

func TestHashToScalarDeterministic(t *testing.T) {
	a := HashToScalar([]byte("alice"))
	b := HashToScalar([]byte("alice"))
	c := HashToScalar([]byte("bob"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestScalarFromWideBytesReduces(t *testing.T) {
	var wide [64]byte
	for i := range wide {
		wide[i] = 0xff
	}
	s := ScalarFromWideBytes(wide)
	assert.True(t, s.BigInt().Cmp(Order) < 0)
}
