// Package bbs implements the C-SIG signature core: key generation, signing,
// and verification of a simplified BBS+ multi-message signature over
// BLS12-381, plus the scalar and point helpers the rest of the module
// (zkp, delegation, sss, multipass) builds on.
package bbs

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/getspookyid/multipass/types"
)

// Order is the BLS12-381 scalar field modulus shared by every component
// that works "over the same scalar field" (signatures, proofs, Shamir
// shares, delegation tokens, blinding factors).
var Order = fr.Modulus()

// ScalarLen is the canonical wire length of a Scalar: 32 bytes, little-endian.
const ScalarLen = 32

// Scalar is an element of the BLS12-381 scalar field, represented as a
// big.Int reduced mod Order. Values are always kept in [0, Order).
type Scalar struct {
	v *big.Int
}

// NewScalar reduces v mod Order and returns the result.
func NewScalar(v *big.Int) Scalar {
	r := new(big.Int).Mod(v, Order)
	return Scalar{v: r}
}

// ScalarFromUint64 embeds a small non-negative integer as a Scalar.
func ScalarFromUint64(n uint64) Scalar {
	return NewScalar(new(big.Int).SetUint64(n))
}

// ZeroScalar is the additive identity.
func ZeroScalar() Scalar { return Scalar{v: new(big.Int)} }

// BigInt returns the underlying value. Callers must not mutate it.
func (s Scalar) BigInt() *big.Int {
	if s.v == nil {
		return new(big.Int)
	}
	return s.v
}

// Bytes encodes the scalar as 32 bytes, little-endian, canonical (always
// reduced mod Order, zero-padded on the left in big-endian terms).
func (s Scalar) Bytes() [ScalarLen]byte {
	var out [ScalarLen]byte
	be := s.BigInt().FillBytes(make([]byte, ScalarLen))
	for i := 0; i < ScalarLen; i++ {
		out[i] = be[ScalarLen-1-i]
	}
	return out
}

// ScalarFromBytes decodes a canonical 32-byte little-endian scalar. It
// rejects non-canonical encodings (values >= Order) to guard the invariant
// that every Scalar in the system is already field-reduced.
func ScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarLen {
		return Scalar{}, types.InvalidKeyErr("scalar length", nil)
	}
	be := make([]byte, ScalarLen)
	for i := 0; i < ScalarLen; i++ {
		be[i] = b[ScalarLen-1-i]
	}
	v := new(big.Int).SetBytes(be)
	if v.Cmp(Order) >= 0 {
		return Scalar{}, types.InvalidKeyErr("non-canonical scalar", nil)
	}
	return Scalar{v: v}, nil
}

// ScalarFromWideBytes reduces a 64-byte wide value mod Order. Use this
// whenever a scalar is derived from raw randomness or a hash digest wider
// than the field, so the reduction bias is negligible, per spec.md's
// guidance that wide reduction SHOULD be used when the draw is randomness.
func ScalarFromWideBytes(b [64]byte) Scalar {
	v := new(big.Int).SetBytes(b[:])
	return NewScalar(v)
}

// HashToScalar deterministically maps data to a scalar via a single
// SHA-256 pass, reduced mod Order. Used for message encoding (messages are
// hashed into scalars before signing) and Fiat-Shamir challenges, where
// determinism -- not a uniform wide draw -- is the point.
func HashToScalar(data []byte) Scalar {
	h := sha256.Sum256(data)
	return NewScalar(new(big.Int).SetBytes(h[:]))
}

func (s Scalar) Add(o Scalar) Scalar {
	return NewScalar(new(big.Int).Add(s.BigInt(), o.BigInt()))
}

func (s Scalar) Sub(o Scalar) Scalar {
	return NewScalar(new(big.Int).Sub(s.BigInt(), o.BigInt()))
}

func (s Scalar) Mul(o Scalar) Scalar {
	return NewScalar(new(big.Int).Mul(s.BigInt(), o.BigInt()))
}

func (s Scalar) Neg() Scalar {
	return NewScalar(new(big.Int).Neg(s.BigInt()))
}

// Inverse returns the multiplicative inverse of s mod Order. It returns an
// error if s is zero, since zero is not invertible.
func (s Scalar) Inverse() (Scalar, error) {
	if s.BigInt().Sign() == 0 {
		return Scalar{}, types.CryptoErr("zero scalar has no inverse", nil)
	}
	inv := new(big.Int).ModInverse(s.BigInt(), Order)
	if inv == nil {
		return Scalar{}, types.CryptoErr("scalar not invertible", nil)
	}
	return Scalar{v: inv}, nil
}

func (s Scalar) Equal(o Scalar) bool {
	return s.BigInt().Cmp(o.BigInt()) == 0
}

func (s Scalar) IsZero() bool {
	return s.BigInt().Sign() == 0
}

// RandomScalar draws a uniform scalar in [0, Order) from r.
func RandomScalar(r io.Reader) (Scalar, error) {
	v, err := rand.Int(r, Order)
	if err != nil {
		return Scalar{}, types.CryptoErr("random scalar draw", err)
	}
	return Scalar{v: v}, nil
}
