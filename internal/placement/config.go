// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package placement

import (
	"fmt"
)

// Config encapsulates parameters for a Pool.
type Config struct {
	PrefixCacheEntries int    // How many prefix lists to cache per pool? 0 disables the cache.
	MaxPGNum           uint32 // The largest placement-group count a pool may grow to.
	MaxSplitCount      int    // At most how many children may one placement group split into in one resize?
}

// Validate validates the configuration object has reasonable(not obviously
// wrong) values.
func (c *Config) Validate() error {
	if c.PrefixCacheEntries < 0 {
		return fmt.Errorf("PrefixCacheEntries can not be negative: %d", c.PrefixCacheEntries)
	}
	if c.MaxPGNum == 0 {
		return fmt.Errorf("MaxPGNum must be positive")
	}
	if c.MaxSplitCount <= 0 {
		return fmt.Errorf("MaxSplitCount must be positive: %d", c.MaxSplitCount)
	}
	return nil
}

// DefaultConfig specifies the default values for Config.
var DefaultConfig = Config{
	PrefixCacheEntries: 1024,
	MaxPGNum:           1 << 16,

	// A placement group splitting into more than this many children in one
	// step is almost always an operator typo.
	MaxSplitCount: 32,
}
