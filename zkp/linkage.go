package zkp

import (
	"crypto/sha256"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"

	"github.com/getspookyid/multipass/bbs"
)

// siteScalar implements the mandated "double hash" linkage-tag form: the
// site_id input is hashed once with SHA-256, and the digest is then
// hashed to a scalar via HashToScalar -- not HashToScalar(site_id)
// directly. spec.md §4.4's caveat subsection is explicit that
// implementations MUST be internally consistent about which form they
// use; this module uses the double-hash form everywhere a linkage tag is
// produced or checked.
func siteScalar(siteID []byte) bbs.Scalar {
	h := sha256.Sum256(siteID)
	return bbs.HashToScalar(h[:])
}

// GenerateLinkageTag computes (skHolder + HashToScalar(SHA-256(siteID)))*g1,
// a deterministic per-(holder secret, site) G1 point: stable across
// presentations to the same site, unrelated across different sites.
func GenerateLinkageTag(skHolder bbs.Scalar, siteID []byte) bls12381.G1Affine {
	sum := skHolder.Add(siteScalar(siteID))
	return bbs.G1ScalarMul(bbs.G1Base(), sum)
}
