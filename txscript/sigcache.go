// Copyright (c) 2015-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/rand"
	"sync"
)

// sigCacheEntry is the 3-tuple key identifying one verified signature.
type sigCacheEntry struct {
	digest    [32]byte
	signature string
	publicKey string
}

// SigCache implements an ECDSA signature verification cache with a randomized
// entry eviction policy. Only valid signatures are added.
type SigCache struct {
	sync.RWMutex
	validSigs  map[sigCacheEntry]struct{}
	maxEntries uint
}

// NewSigCache creates and initializes a SigCache that can hold up to
// maxEntries entries. Once the max number of entries has been reached, new
// entries will replace old entries at random, avoiding the overhead of
// tracking least-recently-used eviction.
func NewSigCache(maxEntries uint) *SigCache {
	return &SigCache{
		validSigs:  make(map[sigCacheEntry]struct{}, maxEntries),
		maxEntries: maxEntries,
	}
}

// Exists returns true if the (digest, signature, publicKey) tuple is present
// in the SigCache.
func (c *SigCache) Exists(digest [32]byte, signature, publicKey []byte) bool {
	c.RLock()
	defer c.RUnlock()

	_, ok := c.validSigs[sigCacheEntry{digest, string(signature), string(publicKey)}]
	return ok
}

// Add adds the (digest, signature, publicKey) tuple to the SigCache. If the
// cache is at its maximum capacity, a random entry is evicted to make room.
func (c *SigCache) Add(digest [32]byte, signature, publicKey []byte) {
	c.Lock()
	defer c.Unlock()

	if c.maxEntries <= 0 {
		return
	}

	if uint(len(c.validSigs))+1 > c.maxEntries {
		var randEntry sigCacheEntry
		for entry := range c.validSigs {
			if randBiasedBit() {
				randEntry = entry
				break
			}
		}
		delete(c.validSigs, randEntry)
	}

	c.validSigs[sigCacheEntry{digest, string(signature), string(publicKey)}] = struct{}{}
}

// randBiasedBit returns a cryptographically random boolean, used only to pick
// an arbitrary existing entry for eviction.
func randBiasedBit() bool {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return true
	}
	return b[0]&0x01 == 0
}
