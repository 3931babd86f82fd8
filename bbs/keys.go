package bbs

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/getspookyid/multipass/entropy"
	"github.com/getspookyid/multipass/types"
)

// PublicKey is `w || h0 || ... || hN` (spec.md §3): w = g2*sk, and the hi
// are domain-separated G1 generators, h0 blinding the signing nonce s and
// h1..hN each binding one message slot.
type PublicKey struct {
	W bls12381.G2Affine
	H []bls12381.G1Affine // H[0] = h0, H[i] = hi for i >= 1
}

// KeyPair is a BBS+ signing identity: a secret scalar and its public key.
type KeyPair struct {
	SK Scalar
	PK PublicKey
}

// MaxMessages returns how many message slots this public key supports
// (len(H) - 1, since H[0] is the s-blinding generator).
func (pk PublicKey) MaxMessages() int {
	if len(pk.H) == 0 {
		return 0
	}
	return len(pk.H) - 1
}

// MarshalBinary encodes the public key as w(96) || h0(48) || ... || hN(48).
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	if len(pk.H) == 0 {
		return nil, types.InvalidKeyErr("public key has no generators", nil)
	}
	out := make([]byte, 0, G2PointLen+len(pk.H)*G1PointLen)
	wb := encodeG2(pk.W)
	out = append(out, wb[:]...)
	for _, h := range pk.H {
		hb := encodeG1(h)
		out = append(out, hb[:]...)
	}
	return out, nil
}

// UnmarshalPublicKey decodes a public key encoded by MarshalBinary. Per
// spec.md §9's duck-typed-length note, any byte length of the form
// 96 + 48*k for k >= 1 is accepted -- callers needing fewer generators than
// were serialized may slice pk.H themselves.
func UnmarshalPublicKey(b []byte) (PublicKey, error) {
	if len(b) < G2PointLen+G1PointLen {
		return PublicKey{}, types.InvalidKeyErr("public key too short", nil)
	}
	rest := len(b) - G2PointLen
	if rest%G1PointLen != 0 {
		return PublicKey{}, types.InvalidKeyErr("public key length not w + k*h0", nil)
	}
	w, err := decodeG2(b[:G2PointLen])
	if err != nil {
		return PublicKey{}, err
	}
	n := rest / G1PointLen
	hs := make([]bls12381.G1Affine, n)
	off := G2PointLen
	for i := 0; i < n; i++ {
		h, err := decodeG1(b[off : off+G1PointLen])
		if err != nil {
			return PublicKey{}, err
		}
		hs[i] = h
		off += G1PointLen
	}
	return PublicKey{W: w, H: hs}, nil
}

// GenerateKeyPair derives sk from the entropy harvester (or an external
// 32-byte scalar if sk is supplied), builds w = g2*sk, and derives
// maxMessages+1 domain-separated generators.
func GenerateKeyPair(sk *Scalar, maxMessages int, src entropy.Source) (KeyPair, error) {
	var secret Scalar
	if sk != nil {
		secret = *sk
	} else {
		if src == nil {
			return KeyPair{}, types.CryptoErr("no entropy source and no external sk", nil)
		}
		e := src.Entropy()
		secret = HashToScalar(e[:])
	}
	w := g2Mul(G2Base(), secret)
	hs, err := GenerateGenerators(maxMessages)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{SK: secret, PK: PublicKey{W: w, H: hs}}, nil
}
