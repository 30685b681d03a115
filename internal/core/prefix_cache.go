// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package core

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/westerndigitalcorporation/placement/pkg/hashspace"
)

var (
	mPrefixCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "placement",
		Name:      "prefix_cache",
		Help:      "prefix cache lookups by result",
	}, []string{"result"})
	mPrefixCacheHit  = mPrefixCache.WithLabelValues("hit")
	mPrefixCacheMiss = mPrefixCache.WithLabelValues("miss")
)

type prefixKey struct {
	bits uint
	mask uint32
	pool int64
}

// PrefixCache remembers the results of hashspace.Prefixes. Directory scans of
// a placement group ask for the same prefixes over and over. It is safe for
// use by multiple goroutines.
type PrefixCache struct {
	lock  sync.Mutex
	cache *lru.Cache
}

// NewPrefixCache returns a PrefixCache holding at most 'maxEntries' prefix
// sets. 'maxEntries' must be positive.
func NewPrefixCache(maxEntries int) *PrefixCache {
	if maxEntries <= 0 {
		Bugf("prefix cache needs a positive size, got %d", maxEntries)
	}
	return &PrefixCache{cache: lru.New(maxEntries)}
}

// Get returns the same prefixes as hashspace.Prefixes(bits, mask, pool). The
// returned slice belongs to the caller.
func (c *PrefixCache) Get(bits uint, mask uint32, pool int64) []string {
	if bits > hashspace.MaxBits {
		Bugf("%d bits is wider than the hash space", bits)
	}
	// Bits above 'bits' don't change the result, drop them so they share an
	// entry.
	key := prefixKey{bits: bits, mask: mask & hashspace.Mask(bits), pool: pool}

	c.lock.Lock()
	v, ok := c.cache.Get(key)
	if !ok {
		v = hashspace.Prefixes(key.bits, key.mask, key.pool)
		c.cache.Add(key, v)
	}
	c.lock.Unlock()

	if ok {
		mPrefixCacheHit.Inc()
	} else {
		mPrefixCacheMiss.Inc()
	}
	cached := v.([]string)
	out := make([]string, len(cached))
	copy(out, cached)
	return out
}

// Len returns the number of cached prefix sets.
func (c *PrefixCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.cache.Len()
}
