package bbs

// VerifyPUFSignature treats a PUF challenge-response as a single-message
// BBS+ signature over the challenge and verifies it with VerifyBytes,
// exactly as the hardware-rooted device identity scheme it's adapted from
// does: "we treat the PUF signature as a standard BBS+ signature over the
// challenge". Any parse failure is treated as a rejection rather than
// propagated, since callers only care about the pass/fail verdict.
func VerifyPUFSignature(pkBytes, challenge, signature []byte) bool {
	ok, err := VerifyBytes(pkBytes, signature, [][]byte{challenge})
	if err != nil {
		return false
	}
	return ok
}
