package server

import (
	"container/list"
	"encoding/hex"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/mithrel/hashmark/internal/render"
)

// ContentHash is the hex BLAKE3 digest of a document. It keys the render
// cache and doubles as the ETag of rendered responses.
func ContentHash(doc string) string {
	sum := blake3.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:16])
}

type cacheEntry struct {
	key  string
	page render.Page
}

// pageCache is a fixed-size LRU of rendered pages. A zero size disables it.
type pageCache struct {
	mu    sync.Mutex
	size  int
	order *list.List
	items map[string]*list.Element
}

func newPageCache(size int) *pageCache {
	return &pageCache{size: size, order: list.New(), items: make(map[string]*list.Element)}
}

func (c *pageCache) get(key string) (render.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return render.Page{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).page, true
}

func (c *pageCache) put(key string, page render.Page) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).page = page
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, page: page})
	for c.order.Len() > c.size {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.items, last.Value.(*cacheEntry).key)
	}
}

func (c *pageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
