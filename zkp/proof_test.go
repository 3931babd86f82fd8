package zkp_test

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getspookyid/multipass/bbs"
	"github.com/getspookyid/multipass/entropy"
	"github.com/getspookyid/multipass/zkp"
)

func newTestHarvester() *entropy.Harvester {
	return entropy.NewHarvester(nil, zerolog.Nop())
}

func setupSignedCredential(t *testing.T, messages [][]byte) (bbs.KeyPair, [][]byte, bbs.Signature) {
	t.Helper()
	src := newTestHarvester()
	kp, err := bbs.GenerateKeyPair(nil, len(messages)+1, src)
	require.NoError(t, err)
	sig, err := bbs.Sign(kp, messages, src)
	require.NoError(t, err)
	return kp, messages, sig
}

func TestSelectiveDisclosureRevealTamper(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("alice"), []byte("42"), []byte("secret-attr")}
	kp, _, sig := setupSignedCredential(t, messages)

	revealed := []int{0, 1} // reveal alice/42, keep secret-attr hidden
	proof, err := zkp.CreateProof(kp.PK, sig, messages, revealed, []byte("nonce-1"), []byte("site.example"), 7, nil, nil, src)
	require.NoError(t, err)

	revealedPairs := []zkp.RevealedMessage{
		{Index: 0, Message: messages[0]},
		{Index: 1, Message: messages[1]},
	}
	ok, err := zkp.VerifyProof(kp.PK, proof, revealedPairs, []byte("nonce-1"), 7, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// tamper with a revealed message value
	tamperedPairs := []zkp.RevealedMessage{
		{Index: 0, Message: []byte("mallory")},
		{Index: 1, Message: messages[1]},
	}
	ok, err = zkp.VerifyProof(kp.PK, proof, tamperedPairs, []byte("nonce-1"), 7, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinkageTagStableWithinSite(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("m1")}
	kp, _, sig := setupSignedCredential(t, messages)

	blinding := []byte("fixed-blinding-factor")
	p1, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site-a"), 1, blinding, nil, src)
	require.NoError(t, err)
	p2, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site-a"), 2, blinding, nil, src)
	require.NoError(t, err)

	assert.Equal(t, p1.LinkageTag.Bytes(), p2.LinkageTag.Bytes())
}

func TestLinkageTagDiffersAcrossSites(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("m1")}
	kp, _, sig := setupSignedCredential(t, messages)

	blinding := []byte("fixed-blinding-factor")
	p1, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site-a"), 1, blinding, nil, src)
	require.NoError(t, err)
	p2, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site-b"), 1, blinding, nil, src)
	require.NoError(t, err)

	assert.NotEqual(t, p1.LinkageTag.Bytes(), p2.LinkageTag.Bytes())
}

func TestLinkageTagDiffersWithDifferentHolderSecret(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("m1")}
	kp, _, sig := setupSignedCredential(t, messages)

	p1, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site-a"), 1, []byte("blinding-1"), nil, src)
	require.NoError(t, err)
	p2, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site-a"), 1, []byte("blinding-2"), nil, src)
	require.NoError(t, err)

	assert.NotEqual(t, p1.LinkageTag.Bytes(), p2.LinkageTag.Bytes())
}

func TestProofMarshalRoundTrip(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("a"), []byte("b")}
	kp, _, sig := setupSignedCredential(t, messages)

	proof, err := zkp.CreateProof(kp.PK, sig, messages, []int{0}, []byte("n"), []byte("site"), 3, nil, []byte("fresh"), src)
	require.NoError(t, err)

	b, err := proof.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, zkp.FixedPrefixLen+len(proof.Responses)*bbs.ScalarLen, len(b))

	got, err := zkp.UnmarshalProof(b, len(messages))
	require.NoError(t, err)
	assert.Equal(t, len(proof.Responses), len(got.Responses))

	revealedPairs := []zkp.RevealedMessage{{Index: 0, Message: messages[0]}}
	ok, err := zkp.VerifyProof(kp.PK, got, revealedPairs, []byte("n"), 3, []byte("fresh"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProofJSONRoundTrip(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("a"), []byte("b")}
	kp, _, sig := setupSignedCredential(t, messages)

	proof, err := zkp.CreateProof(kp.PK, sig, messages, []int{0}, []byte("n"), []byte("site"), 3, nil, nil, src)
	require.NoError(t, err)

	pd := proof.ToJSON()
	out, err := json.Marshal(pd)
	require.NoError(t, err)

	var roundTripped zkp.ProofData
	require.NoError(t, json.Unmarshal(out, &roundTripped))

	got, err := zkp.ProofFromJSON(&roundTripped)
	require.NoError(t, err)

	revealedPairs := []zkp.RevealedMessage{{Index: 0, Message: messages[0]}}
	ok, err := zkp.VerifyProof(kp.PK, got, revealedPairs, []byte("n"), 3, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDoSGuardRejectsOversizedRCount(t *testing.T) {
	src := newTestHarvester()
	messages := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	kp, _, sig := setupSignedCredential(t, messages)
	proof, err := zkp.CreateProof(kp.PK, sig, messages, nil, nil, []byte("site"), 0, nil, nil, src)
	require.NoError(t, err)

	b, err := proof.MarshalBinary()
	require.NoError(t, err)

	// Overwrite the valid r_count with an attacker-controlled huge value;
	// the parser must reject this before allocating a responses slice
	// sized to it.
	buf := make([]byte, zkp.FixedPrefixLen)
	copy(buf, b[:zkp.FixedPrefixLen])
	binary.LittleEndian.PutUint32(buf[zkp.FixedPrefixLen-4:], 1_000_000)

	_, err = zkp.UnmarshalProof(buf, len(messages))
	require.Error(t, err)
}
