// Package multipass implements C-MULTI household isolation: per-persona
// blinding factors and a non-correlatability check between two such
// factors.
package multipass

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
	"time"

	"github.com/getspookyid/multipass/types"
)

// DeriveBlindingFactor computes
// SHA-256("MULTIPASS_BLINDING:" || multipassID || "|ANCHOR:" || anchor ||
// "|SESSION:" || counter_LE || nanoseconds_LE).
//
// Because the current wall-clock nanosecond timestamp is folded in,
// identical (multipassID, anchor, counter) inputs at different instants
// produce different factors: this is a one-shot nonce generator, not a
// deterministic derivation. Callers that need the same persona to
// reproduce the same factor later must use
// DeriveBlindingFactorDeterministic instead and externalize time
// themselves.
func DeriveBlindingFactor(multipassID, anchor string, counter uint64) [32]byte {
	return mix(multipassID, anchor, counter, uint64(time.Now().UnixNano()))
}

// DeriveBlindingFactorDeterministic computes the same mixing construction
// as DeriveBlindingFactor but without the timestamp, so the same
// (multipassID, anchor, counter) triple always yields the same factor.
func DeriveBlindingFactorDeterministic(multipassID, anchor string, counter uint64) [32]byte {
	return mix(multipassID, anchor, counter, 0)
}

func mix(multipassID, anchor string, counter, nanoseconds uint64) [32]byte {
	h := sha256.New()
	h.Write([]byte("MULTIPASS_BLINDING:"))
	h.Write([]byte(multipassID))
	h.Write([]byte("|ANCHOR:"))
	h.Write([]byte(anchor))
	h.Write([]byte("|SESSION:"))
	var counterLE [8]byte
	binary.LittleEndian.PutUint64(counterLE[:], counter)
	h.Write(counterLE[:])
	var nsLE [8]byte
	binary.LittleEndian.PutUint64(nsLE[:], nanoseconds)
	h.Write(nsLE[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyNonCorrelatability reports whether the Hamming distance of a XOR b
// falls in [100, 156] bits -- the band spec.md §4.7 treats as evidence
// that two blinding factors are unrelated without being suspiciously
// close to the full 256-bit distance either.
func VerifyNonCorrelatability(a, b []byte) (bool, error) {
	if len(a) != len(b) {
		return false, types.InvalidKeyErr("blinding factors must be equal length", nil)
	}
	dist := 0
	for i := range a {
		dist += bits.OnesCount8(a[i] ^ b[i])
	}
	return dist >= 100 && dist <= 156, nil
}
