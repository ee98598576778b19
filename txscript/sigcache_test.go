// Copyright (c) 2015-2024 The bchd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/rand"
	"testing"
)

func genRandomSigCacheEntry(t *testing.T) ([32]byte, []byte, []byte) {
	t.Helper()
	var digest [32]byte
	if _, err := rand.Read(digest[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	sig := make([]byte, 64)
	if _, err := rand.Read(sig); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	pubKey := make([]byte, 33)
	if _, err := rand.Read(pubKey); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return digest, sig, pubKey
}

func TestSigCacheAddExists(t *testing.T) {
	cache := NewSigCache(10)
	digest, sig, pubKey := genRandomSigCacheEntry(t)

	if cache.Exists(digest, sig, pubKey) {
		t.Fatal("entry should not exist before it is added")
	}

	cache.Add(digest, sig, pubKey)
	if !cache.Exists(digest, sig, pubKey) {
		t.Fatal("entry should exist after it is added")
	}
}

func TestSigCacheDistinguishesFields(t *testing.T) {
	cache := NewSigCache(10)
	digest, sig, pubKey := genRandomSigCacheEntry(t)
	cache.Add(digest, sig, pubKey)

	otherDigest, _, _ := genRandomSigCacheEntry(t)
	if cache.Exists(otherDigest, sig, pubKey) {
		t.Fatal("a differing digest must not match a cached entry")
	}

	_, otherSig, _ := genRandomSigCacheEntry(t)
	if cache.Exists(digest, otherSig, pubKey) {
		t.Fatal("a differing signature must not match a cached entry")
	}

	_, _, otherPubKey := genRandomSigCacheEntry(t)
	if cache.Exists(digest, sig, otherPubKey) {
		t.Fatal("a differing public key must not match a cached entry")
	}
}

func TestSigCacheZeroCapacityNeverAdds(t *testing.T) {
	cache := NewSigCache(0)
	digest, sig, pubKey := genRandomSigCacheEntry(t)

	cache.Add(digest, sig, pubKey)
	if cache.Exists(digest, sig, pubKey) {
		t.Fatal("a zero-capacity cache must never retain an entry")
	}
}

func TestSigCacheEvictsAtCapacity(t *testing.T) {
	const capacity = 20
	cache := NewSigCache(capacity)

	entries := make([][3]interface{}, 0, capacity+50)
	for i := 0; i < capacity+50; i++ {
		digest, sig, pubKey := genRandomSigCacheEntry(t)
		cache.Add(digest, sig, pubKey)
		entries = append(entries, [3]interface{}{digest, sig, pubKey})
	}

	cache.RLock()
	size := len(cache.validSigs)
	cache.RUnlock()

	// The eviction policy is randomized and, like the unbiased-entry skip in
	// randBiasedBit, can occasionally leave the cache one entry over before
	// the next Add forces another eviction attempt. It must never grow
	// without bound.
	if size > capacity+1 {
		t.Fatalf("cache grew to %d entries, want at most %d", size, capacity+1)
	}

	mostRecent := entries[len(entries)-1]
	if !cache.Exists(mostRecent[0].([32]byte), mostRecent[1].([]byte), mostRecent[2].([]byte)) {
		t.Fatal("the most recently added entry should not have been evicted by itself")
	}
}
