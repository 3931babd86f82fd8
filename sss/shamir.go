// Package sss implements the C-SSS secret sharing layer: standard Shamir
// secret sharing over the BBS+ scalar field, for sovereign key recovery.
package sss

import (
	"io"

	"github.com/getspookyid/multipass/bbs"
	"github.com/getspookyid/multipass/types"
)

// ShareLen is the canonical wire length of a Share: index(1) || value(32).
const ShareLen = 1 + bbs.ScalarLen

// Share is one point (x, f(x)) on the sharing polynomial. Index is in
// [1, 255]; index 0 is reserved for the secret itself and never appears
// on the wire.
type Share struct {
	Index byte
	Value bbs.Scalar
}

// MarshalBinary encodes a Share as index(1) || value.bytes(32).
func (s Share) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, ShareLen)
	out = append(out, s.Index)
	vb := s.Value.Bytes()
	out = append(out, vb[:]...)
	return out, nil
}

// UnmarshalShare decodes a Share from its 33-byte wire form.
func UnmarshalShare(b []byte) (Share, error) {
	if len(b) != ShareLen {
		return Share{}, types.InvalidKeyErr("share length", nil)
	}
	v, err := bbs.ScalarFromBytes(b[1:])
	if err != nil {
		return Share{}, types.InvalidKeyErr("share value", err)
	}
	return Share{Index: b[0], Value: v}, nil
}

// SplitSecret picks k-1 uniform random coefficients a_1..a_{k-1}, forms
// f(x) = secret + Sum a_i*x^i, and returns (x, f(x)) for x = 1..n.
func SplitSecret(secret bbs.Scalar, n, k int, r io.Reader) ([]Share, error) {
	if k <= 0 || n <= 0 || k > n || n > 255 {
		return nil, types.InvalidKeyErr("invalid (n, k) threshold parameters", nil)
	}
	coeffs := make([]bbs.Scalar, k)
	coeffs[0] = secret
	for i := 1; i < k; i++ {
		c, err := bbs.RandomScalar(r)
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	shares := make([]Share, n)
	for x := 1; x <= n; x++ {
		shares[x-1] = Share{Index: byte(x), Value: evalPoly(coeffs, x)}
	}
	return shares, nil
}

// evalPoly evaluates f(x) = Sum coeffs[i] * x^i using Horner's method.
func evalPoly(coeffs []bbs.Scalar, x int) bbs.Scalar {
	xs := bbs.ScalarFromUint64(uint64(x))
	acc := bbs.ZeroScalar()
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = acc.Mul(xs).Add(coeffs[i])
	}
	return acc
}

// ReconstructSecret evaluates the Lagrange basis at x=0:
// secret = Sum_j y_j * Prod_{m != j} (-x_m) / (x_j - x_m).
// It fails if the share list is empty or any two share indices are equal
// (the denominator inverse fails in that case).
func ReconstructSecret(shares []Share) (bbs.Scalar, error) {
	if len(shares) == 0 {
		return bbs.Scalar{}, types.InvalidKeyErr("empty share list", nil)
	}
	secret := bbs.ZeroScalar()
	for j, sj := range shares {
		xj := bbs.ScalarFromUint64(uint64(sj.Index))
		num := bbs.ScalarFromUint64(1)
		den := bbs.ScalarFromUint64(1)
		for m, sm := range shares {
			if m == j {
				continue
			}
			xm := bbs.ScalarFromUint64(uint64(sm.Index))
			num = num.Mul(xm.Neg())
			den = den.Mul(xj.Sub(xm))
		}
		denInv, err := den.Inverse()
		if err != nil {
			return bbs.Scalar{}, types.InvalidKeyErr("duplicate share index", err)
		}
		coeff := num.Mul(denInv)
		secret = secret.Add(sj.Value.Mul(coeff))
	}
	return secret, nil
}
