// Package delegation implements the C-DEL delegation-token scheme: a
// fixed-schema token signed and verified by reusing the C-SIG signature
// relation with two generators (h0, h1) and a single hashed message.
package delegation

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/getspookyid/multipass/bbs"
	"github.com/getspookyid/multipass/entropy"
	"github.com/getspookyid/multipass/types"
)

// TokenLen is the canonical wire length of a DelegationToken: anchor_id(32)
// || mobile_key(96) || expiration(8) || tier(1) || scope_mask(4) ||
// max_passages(4) = 145 bytes.
const TokenLen = 32 + 96 + 8 + 1 + 4 + 4

// Token is the fixed-schema delegation payload signed by C-SIG.
type Token struct {
	AnchorID    [32]byte
	MobileKey   [96]byte
	Expiration  uint64
	Tier        byte
	ScopeMask   uint32
	MaxPassages uint32
}

// NewToken rejects (InvalidKey) an anchorID/mobileKey that doesn't match
// the canonical 32/96-byte field widths; it never pads.
func NewToken(anchorID, mobileKey []byte, expiration uint64, tier byte, scopeMask, maxPassages uint32) (Token, error) {
	if len(anchorID) != 32 {
		return Token{}, types.InvalidKeyErr("anchor_id must be 32 bytes", nil)
	}
	if len(mobileKey) != 96 {
		return Token{}, types.InvalidKeyErr("mobile_key must be 96 bytes", nil)
	}
	var t Token
	copy(t.AnchorID[:], anchorID)
	copy(t.MobileKey[:], mobileKey)
	t.Expiration = expiration
	t.Tier = tier
	t.ScopeMask = scopeMask
	t.MaxPassages = maxPassages
	return t, nil
}

// MarshalBinary encodes the token per its canonical 145-byte layout.
func (t Token) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, TokenLen)
	out = append(out, t.AnchorID[:]...)
	out = append(out, t.MobileKey[:]...)
	var exp [8]byte
	binary.LittleEndian.PutUint64(exp[:], t.Expiration)
	out = append(out, exp[:]...)
	out = append(out, t.Tier)
	var scope [4]byte
	binary.LittleEndian.PutUint32(scope[:], t.ScopeMask)
	out = append(out, scope[:]...)
	var maxp [4]byte
	binary.LittleEndian.PutUint32(maxp[:], t.MaxPassages)
	out = append(out, maxp[:]...)
	return out, nil
}

// UnmarshalToken decodes a Token from its canonical 145-byte form.
func UnmarshalToken(b []byte) (Token, error) {
	if len(b) != TokenLen {
		return Token{}, types.InvalidKeyErr("delegation token length", nil)
	}
	var t Token
	off := 0
	copy(t.AnchorID[:], b[off:off+32])
	off += 32
	copy(t.MobileKey[:], b[off:off+96])
	off += 96
	t.Expiration = binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	t.Tier = b[off]
	off++
	t.ScopeMask = binary.LittleEndian.Uint32(b[off : off+4])
	off += 4
	t.MaxPassages = binary.LittleEndian.Uint32(b[off : off+4])
	return t, nil
}

// tokenDigest returns SHA-256(token_bytes). bbs.Sign/bbs.Verify apply
// HashToScalar to whatever message bytes they're given, which itself is
// another SHA-256 pass -- so signing/verifying this digest yields exactly
// spec.md §4.5's m = HashToScalar(SHA-256(token_bytes)).
func tokenDigest(token Token) ([]byte, error) {
	tokenBytes, err := token.MarshalBinary()
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(tokenBytes)
	return h[:], nil
}

// GenerateKeyPair builds a C-SIG keypair with exactly h0, h1 (N=2),
// matching spec.md §4.5's "sign with C-SIG parameters h0, h1".
func GenerateKeyPair(sk *bbs.Scalar, src entropy.Source) (bbs.KeyPair, error) {
	return bbs.GenerateKeyPair(sk, 1, src)
}

// Sign signs a delegation token with a two-generator C-SIG keypair.
func Sign(kp bbs.KeyPair, token Token, src entropy.Source) (bbs.Signature, error) {
	digest, err := tokenDigest(token)
	if err != nil {
		return bbs.Signature{}, err
	}
	return bbs.Sign(kp, [][]byte{digest}, src)
}

// Verify checks a delegation token's signature under the same relation
// used to produce it.
func Verify(pk bbs.PublicKey, token Token, sig bbs.Signature) (bool, error) {
	digest, err := tokenDigest(token)
	if err != nil {
		return false, err
	}
	return bbs.Verify(pk, sig, [][]byte{digest})
}
