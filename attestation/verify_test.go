package attestation_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getspookyid/multipass/attestation"
)

// buildChain returns a leaf-first [leaf, root] DER chain, with the leaf
// optionally carrying the hardware attestation extension and the root
// issued under rootCN.
func buildChain(t *testing.T, includeAttestationExt bool, rootCN string) ([][]byte, []byte) {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: rootCN},
		Issuer:                pkix.Name{CommonName: rootCN},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootCert, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "device-leaf"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	if includeAttestationExt {
		leafTemplate.ExtraExtensions = []pkix.Extension{
			{Id: asn1.ObjectIdentifier(attestation.AndroidKeyStoreAttestationOID), Value: []byte{0x05, 0x00}},
		}
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, rootCert, &leafKey.PublicKey, rootKey)
	require.NoError(t, err)

	return [][]byte{leafDER, rootDER}, leafDER
}

func TestVerifyDeviceChainAcceptsValidAttestedChain(t *testing.T) {
	chain, leafDER := buildChain(t, true, "Google Hardware Attestation Root")

	spki, err := attestation.VerifyDeviceChain(chain, zerolog.Nop())
	require.NoError(t, err)

	leafCert, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)
	assert.Equal(t, leafCert.RawSubjectPublicKeyInfo, spki)
}

func TestVerifyDeviceChainRejectsMissingAttestationExtension(t *testing.T) {
	chain, _ := buildChain(t, false, "Google Hardware Attestation Root")

	_, err := attestation.VerifyDeviceChain(chain, zerolog.Nop())
	assert.Error(t, err)
}

func TestVerifyDeviceChainRejectsUntrustedRoot(t *testing.T) {
	chain, _ := buildChain(t, true, "Evil Corp Root CA")

	_, err := attestation.VerifyDeviceChain(chain, zerolog.Nop())
	assert.Error(t, err)
}

func TestVerifyDeviceChainRejectsEmptyChain(t *testing.T) {
	_, err := attestation.VerifyDeviceChain(nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestVerifyDeviceChainRejectsBrokenSignatureLink(t *testing.T) {
	chain, _ := buildChain(t, true, "Google Hardware Attestation Root")
	// corrupt the tail of the leaf's signature so it no longer verifies
	// against the root's public key
	corrupted := make([]byte, len(chain[0]))
	copy(corrupted, chain[0])
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err := attestation.VerifyDeviceChain([][]byte{corrupted, chain[1]}, zerolog.Nop())
	assert.Error(t, err)
}
