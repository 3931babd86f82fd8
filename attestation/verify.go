// Package attestation implements the device attestation collaborator
// named in spec.md §6: given a leaf-first X.509 certificate chain, confirm
// the leaf carries a hardware-attestation extension, the chain's
// signatures link leaf through to root, and the root is a trusted vendor
// CA, then return the leaf's raw Subject Public Key Info.
package attestation

import (
	"crypto/x509"
	"strings"

	"github.com/rs/zerolog"

	"github.com/getspookyid/multipass/types"
)

// AndroidKeyStoreAttestationOID is the Android KeyStore hardware
// attestation extension OID.
var AndroidKeyStoreAttestationOID = mustParseOID("1.3.6.1.4.1.11129.2.1.17")

func mustParseOID(dotted string) []int {
	parts := strings.Split(dotted, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n := 0
		for _, c := range p {
			n = n*10 + int(c-'0')
		}
		out[i] = n
	}
	return out
}

func oidEqual(a []int, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasAttestationExtension(cert *x509.Certificate) bool {
	for _, ext := range cert.Extensions {
		if oidEqual(ext.Id, AndroidKeyStoreAttestationOID) {
			return true
		}
	}
	return false
}

// VerifyDeviceChain verifies a leaf-first DER certificate chain: the leaf
// must carry the Android KeyStore attestation extension, each certificate
// must be signed by the next one in the chain, and the root issuer must
// name a trusted vendor CA (Google or Apple). On success it returns the
// leaf's raw Subject Public Key Info bytes.
func VerifyDeviceChain(chainDER [][]byte, log zerolog.Logger) ([]byte, error) {
	if len(chainDER) == 0 {
		return nil, types.InvalidKeyErr("empty certificate chain", nil)
	}

	certs := make([]*x509.Certificate, len(chainDER))
	for i, der := range chainDER {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			log.Warn().Err(err).Msg("attestation: failed to parse certificate in chain")
			return nil, types.InvalidKeyErr("parse certificate", err)
		}
		certs[i] = c
	}

	leaf := certs[0]
	if !hasAttestationExtension(leaf) {
		log.Warn().Msg("attestation: leaf certificate missing hardware attestation extension")
		return nil, types.InvalidSignatureErr("leaf missing hardware attestation extension", nil)
	}

	for i := 0; i < len(certs)-1; i++ {
		if err := certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
			log.Warn().Err(err).Int("link", i).Msg("attestation: chain signature link failed")
			return nil, types.InvalidSignatureErr("chain signature verification failed", err)
		}
	}

	root := certs[len(certs)-1]
	issuer := root.Issuer.String()
	if !strings.Contains(issuer, "Google") && !strings.Contains(issuer, "Apple") {
		log.Warn().Str("issuer", issuer).Msg("attestation: untrusted root issuer")
		return nil, types.InvalidSignatureErr("untrusted root issuer: "+issuer, nil)
	}

	return leaf.RawSubjectPublicKeyInfo, nil
}
