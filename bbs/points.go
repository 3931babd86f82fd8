package bbs

import (
	"crypto/sha256"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/getspookyid/multipass/types"
)

// G1PointLen and G2PointLen are the compressed wire lengths spec.md §3
// assigns to G1Point and G2Point.
const (
	G1PointLen = 48
	G2PointLen = 96
)

func g1JacToAffine(j bls12381.G1Jac) bls12381.G1Affine {
	var a bls12381.G1Affine
	a.FromJacobian(&j)
	return a
}

func g2JacToAffine(j bls12381.G2Jac) bls12381.G2Affine {
	var a bls12381.G2Affine
	a.FromJacobian(&j)
	return a
}

// g1Mul computes scalar*p over G1.
func g1Mul(p bls12381.G1Affine, s Scalar) bls12381.G1Affine {
	var jac bls12381.G1Jac
	jac.FromAffine(&p)
	jac.ScalarMultiplication(&jac, s.BigInt())
	return g1JacToAffine(jac)
}

// g1Add computes p+q over G1.
func g1Add(p, q bls12381.G1Affine) bls12381.G1Affine {
	var pj, qj bls12381.G1Jac
	pj.FromAffine(&p)
	qj.FromAffine(&q)
	pj.AddAssign(&qj)
	return g1JacToAffine(pj)
}

// g2Mul computes scalar*p over G2.
func g2Mul(p bls12381.G2Affine, s Scalar) bls12381.G2Affine {
	var jac bls12381.G2Jac
	jac.FromAffine(&p)
	jac.ScalarMultiplication(&jac, s.BigInt())
	return g2JacToAffine(jac)
}

// g2Add computes p+q over G2.
func g2Add(p, q bls12381.G2Affine) bls12381.G2Affine {
	var pj, qj bls12381.G2Jac
	pj.FromAffine(&p)
	qj.FromAffine(&q)
	pj.AddAssign(&qj)
	return g2JacToAffine(pj)
}

// G1ScalarMul, G1Add, G1Neg, G2ScalarMul and G2Add are exported point
// operations for packages (such as zkp) that build their own group
// elements on top of the BBS+ generators and keys.
func G1ScalarMul(p bls12381.G1Affine, s Scalar) bls12381.G1Affine { return g1Mul(p, s) }
func G1Add(p, q bls12381.G1Affine) bls12381.G1Affine              { return g1Add(p, q) }
func G1Neg(p bls12381.G1Affine) bls12381.G1Affine                 { return negG1(p) }
func G2ScalarMul(p bls12381.G2Affine, s Scalar) bls12381.G2Affine { return g2Mul(p, s) }
func G2Add(p, q bls12381.G2Affine) bls12381.G2Affine              { return g2Add(p, q) }

// EncodeG1/DecodeG1 and EncodeG2/DecodeG2 expose the compressed wire
// encodings used throughout the module's fixed-layout formats.
func EncodeG1(p bls12381.G1Affine) [G1PointLen]byte { return encodeG1(p) }
func DecodeG1(b []byte) (bls12381.G1Affine, error)  { return decodeG1(b) }
func EncodeG2(p bls12381.G2Affine) [G2PointLen]byte { return encodeG2(p) }
func DecodeG2(b []byte) (bls12381.G2Affine, error)  { return decodeG2(b) }

// G1Base and G2Base are the standard generators of G1 and G2.
func G1Base() bls12381.G1Affine {
	_, _, g1Gen, _ := bls12381.Generators()
	return g1Gen
}

func G2Base() bls12381.G2Affine {
	_, _, _, g2Gen := bls12381.Generators()
	return g2Gen
}

// hashToG1 derives a domain-separated G1 generator from a label, used to
// build the per-message generators h0..hN deterministically so that two
// independent parties deriving "the same" keypair's generators get
// identical points.
func hashToG1(label []byte) (bls12381.G1Affine, error) {
	dst := []byte("SPOOKYID_MULTIPASS_BBS_G1_")
	p, err := bls12381.HashToG1(label, dst)
	if err != nil {
		return bls12381.G1Affine{}, types.CryptoErr("hash to G1", err)
	}
	return p, nil
}

// GenerateGenerators deterministically derives n+1 domain-separated G1
// generators (h0, h1, ..., hn): h0 blinds the signing nonce s, h1..hn bind
// one message scalar each. n must cover every message slot a keypair will
// ever sign, per spec.md §3's "PK: w || h0..hN" layout.
func GenerateGenerators(n int) ([]bls12381.G1Affine, error) {
	if n < 0 {
		return nil, types.InvalidKeyErr("negative generator count", nil)
	}
	out := make([]bls12381.G1Affine, n+1)
	for i := 0; i <= n; i++ {
		label := sha256.Sum256(append([]byte("h"), byte(i>>24), byte(i>>16), byte(i>>8), byte(i)))
		p, err := hashToG1(label[:])
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func encodeG1(p bls12381.G1Affine) [G1PointLen]byte {
	return p.Bytes()
}

func decodeG1(b []byte) (bls12381.G1Affine, error) {
	if len(b) != G1PointLen {
		return bls12381.G1Affine{}, types.InvalidKeyErr("G1 point length", nil)
	}
	var p bls12381.G1Affine
	if _, err := p.SetBytes(b); err != nil {
		return bls12381.G1Affine{}, types.InvalidKeyErr("G1 point decode", err)
	}
	return p, nil
}

func encodeG2(p bls12381.G2Affine) [G2PointLen]byte {
	return p.Bytes()
}

func decodeG2(b []byte) (bls12381.G2Affine, error) {
	if len(b) != G2PointLen {
		return bls12381.G2Affine{}, types.InvalidKeyErr("G2 point length", nil)
	}
	var p bls12381.G2Affine
	if _, err := p.SetBytes(b); err != nil {
		return bls12381.G2Affine{}, types.InvalidKeyErr("G2 point decode", err)
	}
	return p, nil
}
