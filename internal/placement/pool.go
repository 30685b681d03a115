// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

// Package placement ties the placement arithmetic and the missing-object
// ledgers to a pool whose placement-group count can grow.
package placement

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/westerndigitalcorporation/placement/internal/core"
	"github.com/westerndigitalcorporation/placement/internal/missing"
	"github.com/westerndigitalcorporation/placement/pkg/hashspace"
)

var (
	mResizes = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "placement",
		Name:      "pool_resizes",
		Help:      "placement-group count changes applied to pools",
	})
	mChildren = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "placement",
		Name:      "pool_split_children",
		Help:      "child ledgers created by pool resizes",
	})
)

// Pool maps the objects of one pool onto its placement groups. It is safe for
// concurrent use.
type Pool struct {
	cfg   Config
	id    int64
	cache *core.PrefixCache // nil if disabled

	lock  sync.Mutex
	pgNum uint32
}

// NewPool creates a Pool with id 'id' and 'pgNum' placement groups.
func NewPool(cfg Config, id int64, pgNum uint32) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pgNum == 0 || pgNum > cfg.MaxPGNum {
		return nil, fmt.Errorf("pool %d: placement-group count %d out of range [1, %d]", id, pgNum, cfg.MaxPGNum)
	}
	p := &Pool{cfg: cfg, id: id, pgNum: pgNum}
	if cfg.PrefixCacheEntries > 0 {
		p.cache = core.NewPrefixCache(cfg.PrefixCacheEntries)
	}
	log.Infof("placement: created pool %d with %d placement groups", id, pgNum)
	return p, nil
}

// ID returns the id of the pool.
func (p *Pool) ID() int64 {
	return p.id
}

// PGNum returns the current placement-group count.
func (p *Pool) PGNum() uint32 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pgNum
}

// PGs returns every placement group of the pool, ordered by seed.
func (p *Pool) PGs() []core.PGID {
	n := p.PGNum()
	out := make([]core.PGID, n)
	for i := range out {
		out[i] = core.NewPGID(uint32(i), p.id, core.NoPreferred)
	}
	return out
}

// ObjectPG returns the placement group that holds 'oid'. The object must
// belong to this pool.
func (p *Pool) ObjectPG(oid core.ObjectID) core.PGID {
	if oid.Pool != p.id {
		core.Bugf("object %v is not in pool %d", oid, p.id)
	}
	return oid.PG(p.PGNum())
}

// CollectionPrefixes returns the directory prefixes that hold the objects of
// 'pg' at the current placement-group count.
func (p *Pool) CollectionPrefixes(pg core.PGID) []string {
	n := p.PGNum()
	p.checkPG(pg, n)
	if p.cache == nil {
		return pg.Prefixes(n)
	}
	return p.cache.Get(pg.SplitBits(n), pg.Seed, pg.Pool)
}

// Resize grows the pool to 'newPGNum' placement groups and splits the given
// ledgers, which are keyed by the placement groups they belong to at the
// current count. Objects that move are taken out of their parent ledger and
// put into a new ledger for their child; the new ledgers are returned, one
// per child of every given parent, even if empty.
//
// Nothing is changed if an error is returned.
func (p *Pool) Resize(newPGNum uint32, ledgers map[core.PGID]*missing.Set) (map[core.PGID]*missing.Set, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	old := p.pgNum
	if newPGNum < old {
		return nil, fmt.Errorf("pool %d: can't shrink from %d to %d placement groups", p.id, old, newPGNum)
	}
	if newPGNum > p.cfg.MaxPGNum {
		return nil, fmt.Errorf("pool %d: %d placement groups exceeds the limit of %d", p.id, newPGNum, p.cfg.MaxPGNum)
	}

	// Validate everything before touching any ledger.
	parents := make([]core.PGID, 0, len(ledgers))
	children := make(map[core.PGID][]core.PGID, len(ledgers))
	for pg, set := range ledgers {
		if pg.Pool != p.id || pg.Seed >= old {
			return nil, fmt.Errorf("pool %d: %s is not one of its %d placement groups", p.id, pg, old)
		}
		if set == nil {
			return nil, fmt.Errorf("pool %d: no ledger for %s", p.id, pg)
		}
		kids := pg.Children(old, newPGNum)
		if len(kids) > p.cfg.MaxSplitCount {
			return nil, fmt.Errorf("pool %d: %s would split into %d placement groups, limit is %d",
				p.id, pg, len(kids), p.cfg.MaxSplitCount)
		}
		parents = append(parents, pg)
		children[pg] = kids
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].Less(parents[j]) })

	out := make(map[core.PGID]*missing.Set)
	for _, parent := range parents {
		for _, child := range children[parent] {
			set := missing.New()
			ledgers[parent].SplitInto(child, child.SplitBits(newPGNum), set)
			out[child] = set
		}
	}

	p.pgNum = newPGNum
	if newPGNum != old {
		mResizes.Inc()
	}
	mChildren.Add(float64(len(out)))
	log.Infof("placement: pool %d resized from %d to %d placement groups, split %d ledgers into %d",
		p.id, old, newPGNum, len(parents), len(out))
	return out, nil
}

func (p *Pool) checkPG(pg core.PGID, pgNum uint32) {
	if pg.Pool != p.id || pg.Seed >= pgNum {
		core.Bugf("%s is not one of the %d placement groups of pool %d", pg, pgNum, p.id)
	}
}

// HashPrefixes returns the directory prefixes that hold the objects of this
// pool whose low 'bits' hash bits equal those of 'mask'.
func (p *Pool) HashPrefixes(bits uint, mask uint32) []string {
	if p.cache == nil {
		return hashspace.Prefixes(bits, mask, p.id)
	}
	return p.cache.Get(bits, mask, p.id)
}
