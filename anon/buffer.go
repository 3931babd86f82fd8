package anon

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/getspookyid/multipass/types"
)

// K0 is the base k-anonymity threshold; dynamicThreshold scales it per
// category sensitivity.
const K0 = 15

var sensitiveCategories = map[string]bool{
	"HIV_STATUS":             true,
	"POLITICAL_AFFILIATION": true,
}

var moderateCategories = map[string]bool{
	"AGE_BRACKET": true,
	"ZIP_CODE":    true,
}

// dynamicThreshold returns 2*K0 for the most sensitive categories, K0+5
// for moderately sensitive ones, and K0 otherwise.
func dynamicThreshold(category string) int {
	switch {
	case sensitiveCategories[category]:
		return 2 * K0
	case moderateCategories[category]:
		return K0 + 5
	default:
		return K0
	}
}

// MacroDataPoint is one submission to a category buffer. After DP release,
// IdentityHash is empty and Timestamp is floored to the hour.
type MacroDataPoint struct {
	Category     string  `json:"category"`
	Value        float64 `json:"value"`
	Timestamp    uint64  `json:"timestamp"`
	IdentityHash string  `json:"identity_hash,omitempty"`
}

// categoryBuffer is the per-category FIFO plus identity counter map.
type categoryBuffer struct {
	points       []MacroDataPoint
	identityCount map[string]int
}

func newCategoryBuffer() *categoryBuffer {
	return &categoryBuffer{identityCount: make(map[string]int)}
}

// uniqueCount returns the number of distinct identities with count > 0,
// the invariant spec.md §3 assigns to AnonymityBuffer.unique_count.
func (c *categoryBuffer) uniqueCount() int {
	n := 0
	for _, count := range c.identityCount {
		if count > 0 {
			n++
		}
	}
	return n
}

// Buffer is the process-wide map of category buffers, protected by a
// single reader/writer lock so submit (read threshold + mutate map) and
// flush (drain + clear) are each atomic, per spec.md §5.
type Buffer struct {
	mu         sync.RWMutex
	categories map[string]*categoryBuffer
	vault      *Vault
	epsilon    float64
	log        zerolog.Logger
	seq        uint64
}

// NewBuffer constructs a k-anonymity/DP submission buffer backed by vault,
// releasing with differential-privacy parameter epsilon (Laplace scale
// b = 1/epsilon).
func NewBuffer(vault *Vault, epsilon float64, log zerolog.Logger) *Buffer {
	return &Buffer{
		categories: make(map[string]*categoryBuffer),
		vault:      vault,
		epsilon:    epsilon,
		log:        log,
	}
}

// Submit implements spec.md §4.6's submit algorithm: hash the identity,
// append to the category buffer, and -- once unique_count crosses the
// category's dynamic threshold -- atomically drain the buffer, inject
// Laplace noise into every point's value, strip identities, floor
// timestamps to the hour, and persist the batch.
func (b *Buffer) Submit(category string, value float64, identityBytes []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	identityHash := hex.EncodeToString(sha256Sum(identityBytes))

	cb, ok := b.categories[category]
	if !ok {
		cb = newCategoryBuffer()
		b.categories[category] = cb
	}
	cb.points = append(cb.points, MacroDataPoint{
		Category:     category,
		Value:        value,
		Timestamp:    uint64(time.Now().Unix()),
		IdentityHash: identityHash,
	})
	cb.identityCount[identityHash]++

	threshold := dynamicThreshold(category)
	if cb.uniqueCount() < threshold {
		b.log.Debug().Str("category", category).Int("unique", cb.uniqueCount()).Int("threshold", threshold).Msg("anon: buffer below release threshold")
		return nil
	}

	released := cb.points
	delete(b.categories, category)

	b.log.Info().Str("category", category).Int("count", len(released)).Msg("anon: releasing batch")
	return b.release(released)
}

// release injects DP noise into each point and persists it, under the
// same write lock that checked the threshold, matching spec.md §5's
// "check threshold then drain" atomicity requirement. Each point gets its
// own monotonic sequence suffix so a batch of points that float to the
// same category/hour don't collide on a single vault key.
func (b *Buffer) release(points []MacroDataPoint) error {
	for _, p := range points {
		noise, err := laplaceNoise(b.epsilon)
		if err != nil {
			return err
		}
		p.Value += noise
		p.Timestamp = floorToHour(p.Timestamp)
		p.IdentityHash = ""

		b.seq++
		key := fmt.Sprintf("%s:%d:%d", p.Category, p.Timestamp, b.seq)
		val, err := encodePoint(p)
		if err != nil {
			return err
		}
		if err := b.vault.Default().Put([]byte(key), val); err != nil {
			return types.CryptoErr("vault put", err)
		}
	}
	return nil
}

func floorToHour(unixSeconds uint64) uint64 {
	const hour = 3600
	return (unixSeconds / hour) * hour
}

func sha256Sum(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// laplaceNoise draws u uniformly in (0,1) and returns
// Laplace_inverse_CDF(u; mu=0, b=1/epsilon).
func laplaceNoise(epsilon float64) (float64, error) {
	if epsilon <= 0 {
		return 0, types.CryptoErr("epsilon must be positive", nil)
	}
	b := 1.0 / epsilon

	const precision = 1 << 53
	n, err := rand.Int(rand.Reader, big.NewInt(precision-1))
	if err != nil {
		return 0, types.CryptoErr("laplace draw", err)
	}
	u := (float64(n.Int64()) + 1) / float64(precision) // u in (0,1)

	shifted := u - 0.5
	sign := 1.0
	if shifted < 0 {
		sign = -1.0
	}
	return -b * sign * math.Log(1-2*math.Abs(shifted)), nil
}

// CheckAttributeSafety returns true iff at most 3 attributes are present,
// used by callers to reject attribute-combination correlation attacks.
func CheckAttributeSafety(attributes []string) bool {
	return len(attributes) <= 3
}

// encodePoint/decodePoint are the vault's on-disk representation of a
// released MacroDataPoint, per spec.md §6: a JSON-encoded MacroDataPoint
// (identity_hash is always empty post-release, so it round-trips as the
// empty string via its `omitempty` tag).
func encodePoint(p MacroDataPoint) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, types.CryptoErr("encode vault value", err)
	}
	return b, nil
}

func decodePoint(val []byte) (MacroDataPoint, error) {
	var p MacroDataPoint
	if err := json.Unmarshal(val, &p); err != nil {
		return MacroDataPoint{}, types.CryptoErr("malformed vault value", err)
	}
	return p, nil
}

// QueryRange scans the vault's default tree for released points in
// category whose floored timestamp falls within [fromUnix, toUnix]
// inclusive. Keys are "{category}:{timestamp}:{sequence}"; the sequence
// suffix exists only to keep same-hour releases from colliding and is
// ignored here.
func (b *Buffer) QueryRange(category string, fromUnix, toUnix uint64) ([]MacroDataPoint, error) {
	it := b.vault.Default().NewIterator([]byte(category+":"), nil)
	defer it.Release()

	var out []MacroDataPoint
	for it.Next() {
		key := it.Key()
		parts := strings.SplitN(string(key), ":", 3)
		if len(parts) != 3 {
			continue
		}
		ts, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			continue
		}
		if ts < fromUnix || ts > toUnix {
			continue
		}
		point, err := decodePoint(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, point)
	}
	if err := it.Error(); err != nil {
		return nil, types.CryptoErr("vault iterator", err)
	}
	return out, nil
}
