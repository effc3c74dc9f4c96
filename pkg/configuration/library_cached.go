package configuration

import (
	"github.com/srand/multinode/pkg/log"
	"github.com/srand/multinode/pkg/utils"
)

type cachedConfiguration struct {
	*Configuration
	key string
}

func (c *cachedConfiguration) Key() string {
	return c.key
}

func (c *cachedConfiguration) Size() int64 {
	return int64(len(c.Contents))
}

// A library that keeps recently used configurations of another library in memory.
type cachedLibrary struct {
	library Library
	lru     *utils.LRU[*cachedConfiguration]
}

// Wraps a library with an in-memory cache of at most maxSize bytes of configuration contents.
func NewCachedLibrary(library Library, maxSize int64) *cachedLibrary {
	return &cachedLibrary{
		library: library,
		lru: utils.NewLRU[*cachedConfiguration](maxSize, func(c *cachedConfiguration) {
			log.Tracef("Configuration %s evicted from memory (%s)", c.key, utils.HumanByteSize(c.Size()))
		}),
	}
}

func (l *cachedLibrary) Add(c *Configuration) error {
	if err := l.library.Add(c); err != nil {
		return err
	}
	l.cache(c)
	return nil
}

func (l *cachedLibrary) Get(hash utils.Digest) (*Configuration, error) {
	if c, ok := l.lru.Get(hash.String()); ok {
		return c.Configuration, nil
	}

	c, err := l.library.Get(hash)
	if err != nil {
		return nil, err
	}

	l.cache(c)
	return c, nil
}

func (l *cachedLibrary) Remove(hash utils.Digest) error {
	l.lru.Remove(hash.String())
	return l.library.Remove(hash)
}

func (l *cachedLibrary) cache(c *Configuration) {
	l.lru.Add(&cachedConfiguration{Configuration: c, key: c.Hash().String()})
}
