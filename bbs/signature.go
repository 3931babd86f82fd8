package bbs

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/getspookyid/multipass/entropy"
	"github.com/getspookyid/multipass/types"
)

// SignatureLen is the canonical wire length of a Signature: A(48) || e(32) || s(32).
const SignatureLen = G1PointLen + ScalarLen + ScalarLen

// Signature is the BBS+ triple (A, e, s) satisfying
// e(A, w + g2*e) = e(g1 + h0*s + Sum hi*mi, g2).
type Signature struct {
	A bls12381.G1Affine
	E Scalar
	S Scalar
}

// MarshalBinary encodes the signature as A(48) || e(32) || s(32).
func (sig Signature) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, SignatureLen)
	ab := encodeG1(sig.A)
	out = append(out, ab[:]...)
	eb := sig.E.Bytes()
	out = append(out, eb[:]...)
	sb := sig.S.Bytes()
	out = append(out, sb[:]...)
	return out, nil
}

// UnmarshalSignature decodes a Signature from its 112-byte wire form.
func UnmarshalSignature(b []byte) (Signature, error) {
	if len(b) != SignatureLen {
		return Signature{}, types.InvalidSignatureErr("signature length", nil)
	}
	a, err := decodeG1(b[:G1PointLen])
	if err != nil {
		return Signature{}, types.InvalidSignatureErr("signature A", err)
	}
	e, err := ScalarFromBytes(b[G1PointLen : G1PointLen+ScalarLen])
	if err != nil {
		return Signature{}, types.InvalidSignatureErr("signature e", err)
	}
	s, err := ScalarFromBytes(b[G1PointLen+ScalarLen:])
	if err != nil {
		return Signature{}, types.InvalidSignatureErr("signature s", err)
	}
	return Signature{A: a, E: e, S: s}, nil
}

// hashMessages maps each raw message to a scalar via HashToScalar, per
// spec.md §4.3 step 2.
func hashMessages(messages [][]byte) []Scalar {
	out := make([]Scalar, len(messages))
	for i, m := range messages {
		out[i] = HashToScalar(m)
	}
	return out
}

// commitmentB computes B = g1 + h0*s + Sum_{i=1..n} hi*m_{i-1}.
func commitmentB(pk PublicKey, s Scalar, msgScalars []Scalar) bls12381.G1Affine {
	b := G1Base()
	b = g1Add(b, g1Mul(pk.H[0], s))
	for i, m := range msgScalars {
		b = g1Add(b, g1Mul(pk.H[i+1], m))
	}
	return b
}

// Sign implements spec.md §4.3's Sign algorithm: sample (e, s) via
// wide-reduction draws from src, compute B, and set A = B * (sk+e)^-1,
// resampling e if sk+e is zero.
func Sign(kp KeyPair, messages [][]byte, src entropy.Source) (Signature, error) {
	if kp.PK.MaxMessages() < len(messages) {
		return Signature{}, types.InvalidKeyErr("not enough generators for message count", nil)
	}
	if src == nil {
		return Signature{}, types.CryptoErr("no entropy source", nil)
	}
	msgScalars := hashMessages(messages)

	var e, s Scalar
	var skPlusE Scalar
	for {
		ent := src.Entropy()
		e = ScalarFromWideBytes(ent)
		skPlusE = kp.SK.Add(e)
		if !skPlusE.IsZero() {
			break
		}
	}
	sEnt := src.Entropy()
	s = ScalarFromWideBytes(sEnt)

	b := commitmentB(kp.PK, s, msgScalars)

	inv, err := skPlusE.Inverse()
	if err != nil {
		return Signature{}, types.CryptoErr("sk+e not invertible", err)
	}
	a := g1Mul(b, inv)
	return Signature{A: a, E: e, S: s}, nil
}

// Verify implements spec.md §4.3's Verify algorithm: reconstruct B and
// accept iff e(A, w + g2*e) == e(B, g2). A false return is a legitimate
// cryptographic "no", never wrapped as an error.
func Verify(pk PublicKey, sig Signature, messages [][]byte) (bool, error) {
	if pk.MaxMessages() < len(messages) {
		return false, types.InvalidKeyErr("not enough generators for message count", nil)
	}
	msgScalars := hashMessages(messages)
	b := commitmentB(pk, sig.S, msgScalars)

	lhs := g2Add(pk.W, g2Mul(G2Base(), sig.E))

	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{sig.A, negG1(b)},
		[]bls12381.G2Affine{lhs, G2Base()},
	)
	if err != nil {
		return false, types.CryptoErr("pairing check", err)
	}
	return ok, nil
}

func negG1(p bls12381.G1Affine) bls12381.G1Affine {
	var n bls12381.G1Affine
	n.Neg(&p)
	return n
}

// SignBytes and VerifyBytes are wire-format wrappers around Sign/Verify:
// SignBytes returns the signature in its 112-byte wire form; VerifyBytes
// parses the PK and signature from bytes first (returning
// InvalidKey/InvalidSignature on parse failure) before delegating to Verify.
func SignBytes(kp KeyPair, messages [][]byte, src entropy.Source) ([]byte, error) {
	sig, err := Sign(kp, messages, src)
	if err != nil {
		return nil, err
	}
	return sig.MarshalBinary()
}

func VerifyBytes(pkBytes, sigBytes []byte, messages [][]byte) (bool, error) {
	pk, err := UnmarshalPublicKey(pkBytes)
	if err != nil {
		return false, err
	}
	sig, err := UnmarshalSignature(sigBytes)
	if err != nil {
		return false, err
	}
	return Verify(pk, sig, messages)
}
