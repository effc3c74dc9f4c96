package utils

import (
	"container/list"
	"sync"
)

// An item in the LRU cache.
type LRUItem interface {
	Key() string
	Size() int64
}

// EvictFunc is called when an item is evicted from the cache.
type EvictFunc[E LRUItem] func(item E)

// LRU is a size bounded cache that evicts the least recently used items first.
type LRU[E LRUItem] struct {
	mu sync.Mutex

	// The maximum total size of the items.
	maxSize int64

	// Current total size of the items.
	currentSize int64

	// Most recently used first.
	cacheList *list.List

	cacheMap map[string]*list.Element

	onEvict EvictFunc[E]
}

// Creates a new LRU cache.
func NewLRU[E LRUItem](maxSize int64, onEvict EvictFunc[E]) *LRU[E] {
	return &LRU[E]{
		maxSize:   maxSize,
		cacheList: list.New(),
		cacheMap:  make(map[string]*list.Element),
		onEvict:   onEvict,
	}
}

// Add an item to the cache, evicting old items until the cache fits.
// An item larger than the cache itself is not retained.
func (lru *LRU[E]) Add(item E) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if ele, ok := lru.cacheMap[item.Key()]; ok {
		lru.removeElement(ele)
	}

	ele := lru.cacheList.PushFront(item)
	lru.cacheMap[item.Key()] = ele
	lru.currentSize += item.Size()

	for lru.currentSize > lru.maxSize {
		lru.removeOldest()
	}
}

// Get an item from the cache and mark it as recently used.
func (lru *LRU[E]) Get(key string) (item E, ok bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if ele, hit := lru.cacheMap[key]; hit {
		lru.cacheList.MoveToFront(ele)
		return ele.Value.(E), true
	}
	return
}

// Remove an item from the cache without calling the eviction function.
func (lru *LRU[E]) Remove(key string) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if ele, hit := lru.cacheMap[key]; hit {
		lru.removeElement(ele)
	}
}

// Number of items in the cache.
func (lru *LRU[E]) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.cacheList.Len()
}

// Total size of the items in the cache.
func (lru *LRU[E]) Size() int64 {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.currentSize
}

func (lru *LRU[E]) removeOldest() {
	ele := lru.cacheList.Back()
	if ele == nil {
		return
	}

	lru.removeElement(ele)
	if lru.onEvict != nil {
		lru.onEvict(ele.Value.(E))
	}
}

func (lru *LRU[E]) removeElement(e *list.Element) {
	lru.cacheList.Remove(e)
	item := e.Value.(E)
	delete(lru.cacheMap, item.Key())
	lru.currentSize -= item.Size()
}
