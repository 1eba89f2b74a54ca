package rpc

import (
	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"

	"github.com/tolelom/indiechain/core"
)

// recordCache is a read-through LRU for records that never change once
// committed: games, assets and authority grants. It must read committed
// state only, or a rolled back write would be cached for good. Concurrent
// misses on the same key share one read.
type recordCache struct {
	state core.RecordReader
	cache gcache.Cache
	sf    singleflight.Group
}

func newRecordCache(state core.RecordReader, size int) *recordCache {
	return &recordCache{
		state: state,
		cache: gcache.New(size).LRU().Build(),
	}
}

func (c *recordCache) load(key string, fn func() (any, error)) (any, error) {
	if v, err := c.cache.Get(key); err == nil {
		return v, nil
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		_ = c.cache.Set(key, v)
		return v, nil
	})
	return v, err
}

func (c *recordCache) Game(key string) (*core.Game, error) {
	v, err := c.load("game:"+key, func() (any, error) { return c.state.GetGame(key) })
	if err != nil {
		return nil, err
	}
	return v.(*core.Game), nil
}

func (c *recordCache) Asset(key string) (*core.Asset, error) {
	v, err := c.load("asset:"+key, func() (any, error) { return c.state.GetAsset(key) })
	if err != nil {
		return nil, err
	}
	return v.(*core.Asset), nil
}

func (c *recordCache) MintAuthority(key string) (*core.MintAuthority, error) {
	v, err := c.load("mauth:"+key, func() (any, error) { return c.state.GetMintAuthority(key) })
	if err != nil {
		return nil, err
	}
	return v.(*core.MintAuthority), nil
}

func (c *recordCache) HolderAuthority(key string) (*core.HolderAuthority, error) {
	v, err := c.load("hauth:"+key, func() (any, error) { return c.state.GetHolderAuthority(key) })
	if err != nil {
		return nil, err
	}
	return v.(*core.HolderAuthority), nil
}
