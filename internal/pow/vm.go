// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pow implements the memory-hard proof-of-work VM lifecycle cache
// and the LWMA-1 difficulty retarget.
//
// The VM is a pure-Go memory-hard construction: a large pseudo-random
// scratchpad derived from a seed, mixed against the input over many rounds,
// with siphash for scratchpad addressing and Blake2b for the final digest.
// Construction is expensive and hashing is cheap, which is the cost profile
// the LRU eviction policy and the miner's per-epoch VM reuse depend on.
package pow

import (
	"sync"
	"time"

	"github.com/dchest/siphash"
	"github.com/decred/slog"
	"golang.org/x/crypto/blake2b"

	"github.com/gem-network/gem/internal/primitives"
)

// Log is the package-level logger, wired to a slog.Backend by cmd/gemd.
var Log = slog.Disabled

// ScratchpadBlocks is the number of 32-byte blocks in a VM's scratchpad.
const ScratchpadBlocks = 1 << 16 // 2MiB scratchpad

// mixRounds is how many scratchpad-indexed mix rounds CalculateHash runs.
const mixRounds = 64

// Flags selects a VM construction profile. Construction attempts the
// recommended profile first and falls back to the default profile on
// failure.
type Flags int

const (
	// FlagsRecommended builds the full-size scratchpad.
	FlagsRecommended Flags = iota
	// FlagsDefault builds a reduced scratchpad, used only if recommended
	// construction fails.
	FlagsDefault
)

// VM is one memory-hard VM instance, keyed by an epoch seed. Multiple
// readers may call CalculateHash concurrently; only construction is
// exclusive.
type VM struct {
	seed       []byte
	scratchpad [][32]byte
	siphashK0  uint64
	siphashK1  uint64
}

// NewVM builds a VM for seed, attempting the recommended (full) flags first
// and falling back to the default (reduced) flags if that allocation
// reports an error.
func NewVM(seed []byte) (*VM, error) {
	vm, err := newVMWithFlags(seed, FlagsRecommended)
	if err != nil {
		return newVMWithFlags(seed, FlagsDefault)
	}
	return vm, nil
}

func newVMWithFlags(seed []byte, flags Flags) (*VM, error) {
	size := ScratchpadBlocks
	if flags == FlagsDefault {
		size = ScratchpadBlocks / 8
	}

	keyDigest := blake2b.Sum512(seed)
	k0 := leUint64(keyDigest[0:8])
	k1 := leUint64(keyDigest[8:16])

	scratchpad := make([][32]byte, size)
	block := blake2b.Sum256(seed)
	for i := 0; i < size; i++ {
		scratchpad[i] = block
		block = blake2b.Sum256(block[:])
	}

	return &VM{
		seed:       append([]byte(nil), seed...),
		scratchpad: scratchpad,
		siphashK0:  k0,
		siphashK1:  k1,
	}, nil
}

// CalculateHash mixes input through the scratchpad and returns the final
// PoW hash. block.Header.PowHash is this function applied to the header
// hash under the epoch's VM.
func (vm *VM) CalculateHash(input []byte) primitives.Hash {
	state := blake2b.Sum256(input)
	n := uint64(len(vm.scratchpad))
	for i := 0; i < mixRounds; i++ {
		idx := siphash.Hash(vm.siphashK0, vm.siphashK1, state[:]) % n
		block := vm.scratchpad[idx]
		mixed := make([]byte, 64)
		copy(mixed[:32], state[:])
		copy(mixed[32:], block[:])
		state = blake2b.Sum256(mixed)
	}
	return primitives.Hash(state)
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

// cacheEntry pairs a VM with its last-access time for LRU eviction.
type cacheEntry struct {
	vm       *VM
	lastUsed time.Time
}

// Cache holds at most maxVMs VM instances, keyed by arbitrary byte sequences
// (the epoch seed), evicting the least-recently-used entry on overflow.
type Cache struct {
	mu      sync.RWMutex
	maxVMs  int
	entries map[string]*cacheEntry
}

// DefaultMaxVMs is the default cache capacity: the VMs of two epochs at once,
// e.g. either side of an epoch boundary.
const DefaultMaxVMs = 2

// NewCache builds an empty VM cache with the given capacity.
func NewCache(maxVMs int) *Cache {
	if maxVMs <= 0 {
		maxVMs = DefaultMaxVMs
	}
	return &Cache{
		maxVMs:  maxVMs,
		entries: make(map[string]*cacheEntry, maxVMs),
	}
}

// Create returns the shared VM for key, constructing and possibly evicting
// under the cache's write lock. A hit on an already-cached VM is found under
// the read lock and then takes the write lock briefly to refresh its LRU
// timestamp.
func (c *Cache) Create(key []byte) (*VM, error) {
	k := string(key)

	c.mu.RLock()
	if e, ok := c.entries[k]; ok {
		vm := e.vm
		c.mu.RUnlock()
		c.mu.Lock()
		if e, ok := c.entries[k]; ok {
			e.lastUsed = time.Now()
		}
		c.mu.Unlock()
		return vm, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have constructed it while we waited for the
	// write lock.
	if e, ok := c.entries[k]; ok {
		e.lastUsed = time.Now()
		return e.vm, nil
	}

	if len(c.entries) >= c.maxVMs {
		c.evictLocked()
	}

	vm, err := NewVM(key)
	if err != nil {
		return nil, err
	}
	c.entries[k] = &cacheEntry{vm: vm, lastUsed: time.Now()}
	return vm, nil
}

// evictLocked removes the least-recently-used entry. Caller must hold the
// write lock.
func (c *Cache) evictLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastUsed.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		Log.Debugf("pow: evicted VM cache entry (%d/%d in use)", len(c.entries), c.maxVMs)
	}
}

// Len reports the number of cached VM instances.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
