// Package anon implements the C-ANON k-anonymity and differential-privacy
// submission buffer: batched, noise-injected release of macro data points
// once a category crosses a distinct-identity threshold, persisted to a
// "sled-like embedded key/value store" collaborator.
package anon

import (
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Named trees spec.md §6 expects the vault to expose alongside the
// default tree used for released DP data points.
const (
	TreeRevocations = "revocations"
	TreeSessions    = "sessions"
	TreeDeviceKeys  = "device_keys"
	TreeInvites     = "invites"
)

// Vault wraps an ethdb.KeyValueStore per named tree, standing in for the
// spec's "sled-like embedded key/value store" external collaborator: a
// default tree for released DP points plus independent named subtrees.
type Vault struct {
	trees map[string]ethdb.KeyValueStore
}

// NewVault constructs a Vault backed by in-memory stores. Production
// wiring would substitute a persistent ethdb.KeyValueStore implementation
// per tree; the interface is what this module depends on, not the backing
// engine.
func NewVault() *Vault {
	v := &Vault{trees: make(map[string]ethdb.KeyValueStore)}
	for _, name := range []string{"", TreeRevocations, TreeSessions, TreeDeviceKeys, TreeInvites} {
		v.trees[name] = memorydb.New()
	}
	return v
}

// Default returns the default tree, used for released DP data points.
func (v *Vault) Default() ethdb.KeyValueStore { return v.trees[""] }

// Tree returns the named subtree, or nil if name is not one of the trees
// this vault was constructed with.
func (v *Vault) Tree(name string) ethdb.KeyValueStore {
	return v.trees[name]
}
