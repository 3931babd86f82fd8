// Package entropy implements the C-ENT hardware entropy service: a
// ChaCha20-backed PRNG reseeded from an avalanche noise pool rooted in a
// PUF-derived secret, exposing uniform entropy draws, HKDF-derived
// context secrets, and freshness claim digests to the rest of the module.
package entropy

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math/bits"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"github.com/getspookyid/multipass/types"
)

// PoolLen is the size of the avalanche noise pool; RootLen is the size of
// the PUF-derived root secret.
const (
	PoolLen = 232
	RootLen = 32
	keyLen  = chacha20.KeySize
	nonceLen = chacha20.NonceSize
)

// Source is the entropy-consuming interface the rest of the module
// (bbs, zkp, delegation) depends on, so those packages never need to
// import the concrete Harvester type directly.
type Source interface {
	Entropy() [64]byte
}

// Harvester is the C-ENT entropy service. Each NewHarvester call builds an
// independent instance (there is no package-level singleton); all
// operations on one instance are serialized behind mu.
type Harvester struct {
	mu sync.Mutex

	pool    [PoolLen]byte
	pufRoot [RootLen]byte
	cipher  *chacha20.Cipher

	fallback bool
	log      zerolog.Logger
}

// NewHarvester initializes a Harvester, reading 32+32+232 bytes from hwRNG.
// A nil hwRNG (or a read failure) falls back to a SHA-256-seeded PRNG keyed
// from wall-clock nanoseconds and the process ID, and logs a single
// "non-production" warning so the fallback path is clearly distinguishable
// to operators, per spec.md §4.1.
func NewHarvester(hwRNG io.Reader, log zerolog.Logger) *Harvester {
	h := &Harvester{log: log}

	var seed [keyLen + RootLen + PoolLen]byte
	ok := false
	if hwRNG != nil {
		if _, err := io.ReadFull(hwRNG, seed[:]); err == nil {
			ok = true
		}
	}
	if !ok {
		h.fallback = true
		h.log.Warn().Msg("entropy: hardware RNG unavailable, falling back to non-production software seed")
		fallbackSeed(seed[:])
	}

	key := seed[:keyLen]
	copy(h.pufRoot[:], seed[keyLen:keyLen+RootLen])
	copy(h.pool[:], seed[keyLen+RootLen:])

	var nonce [nonceLen]byte
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		// ChaCha20 construction only fails on malformed key/nonce length,
		// which cannot happen given the fixed-size seed above.
		panic(types.CryptoErr("chacha20 cipher init", err))
	}
	h.cipher = c
	return h
}

// fallbackSeed fills dst deterministically from wall-clock nanoseconds and
// the process ID via repeated SHA-256 expansion, for environments with no
// hardware RNG (e.g. CI, tests).
func fallbackSeed(dst []byte) {
	var ctr uint64
	var buf [8 + 8 + 8]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(os.Getpid()))

	off := 0
	for off < len(dst) {
		binary.LittleEndian.PutUint64(buf[16:24], ctr)
		h := sha256.Sum256(buf[:])
		n := copy(dst[off:], h[:])
		off += n
		ctr++
	}
}

// IsFallback reports whether this harvester is running on the
// non-production software-seeded path.
func (h *Harvester) IsFallback() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fallback
}

// harvest computes h = SHA-256(pool || nanoseconds), XORs h into pool[0:32]
// and a rotate-left-by-1 variant of h into pool[32:64], and reseeds the
// PRNG from pool[0:32] whenever nanoseconds mod 7 == 0. Caller must hold mu.
func (h *Harvester) harvest() {
	ns := uint64(time.Now().UnixNano())
	var nsBytes [8]byte
	binary.LittleEndian.PutUint64(nsBytes[:], ns)

	hash := sha256.New()
	hash.Write(h.pool[:])
	hash.Write(nsBytes[:])
	digest := hash.Sum(nil)

	for i := 0; i < 32; i++ {
		h.pool[i] ^= digest[i]
	}
	rotated := rotateLeft1(digest)
	for i := 0; i < 32; i++ {
		h.pool[32+i] ^= rotated[i]
	}

	if ns%7 == 0 {
		var nonce [nonceLen]byte
		c, err := chacha20.NewUnauthenticatedCipher(h.pool[:keyLen], nonce[:])
		if err == nil {
			h.cipher = c
		}
	}
}

// rotateLeft1 rotates the whole byte slice left by one bit, treating it as
// a single big-endian bit string (carry flows from each byte's top bit
// into the previous byte's bottom bit, wrapping from the first byte to the
// last).
func rotateLeft1(b []byte) []byte {
	out := make([]byte, len(b))
	wrapBit := bits.RotateLeft8(b[0], 1) & 1
	for i := 0; i < len(b); i++ {
		var nextTopBit byte
		if i+1 < len(b) {
			nextTopBit = b[i+1] >> 7
		} else {
			nextTopBit = wrapBit
		}
		out[i] = (b[i] << 1) | nextTopBit
	}
	return out
}

// Entropy harvests, then draws 64 bytes from the PRNG.
func (h *Harvester) Entropy() [64]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.harvest()
	var out [64]byte
	h.cipher.XORKeyStream(out[:], out[:])
	return out
}

// HardwareSecret derives a 32-byte context-bound secret via HKDF-SHA256
// with salt = pool[0:32], IKM = pufRoot, info = context.
func (h *Harvester) HardwareSecret(context []byte) ([32]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out [32]byte
	kdf := hkdf.New(sha256.New, h.pufRoot[:], h.pool[:32], context)
	if _, err := io.ReadFull(kdf, out[:]); err != nil {
		return out, types.CryptoErr("hkdf expand", err)
	}
	return out, nil
}

// Level4Entropy returns a freshness claim (SHA-256 of a fixed label
// concatenated with the pool) plus a fresh 64-byte entropy draw, for
// binding high-assurance proofs.
func (h *Harvester) Level4Entropy() (claim [32]byte, ent [64]byte) {
	h.mu.Lock()
	h.harvest()
	hash := sha256.New()
	hash.Write([]byte("LEVEL_4_FRESHNESS_BINDING"))
	hash.Write(h.pool[:])
	copy(claim[:], hash.Sum(nil))
	h.cipher.XORKeyStream(ent[:], ent[:])
	h.mu.Unlock()
	return claim, ent
}
