package rating

import (
	"context"
	"strings"
	"sync"
)

// PlaceholderImage is shown when no source yields a product image.
const PlaceholderImage = "/images/placeholder.svg"

var placeholderMarkers = []string{
	"placeholder",
	"no-image",
	"default-product",
}

// IsPlaceholder reports whether url is empty or one of the known placeholder paths.
func IsPlaceholder(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return true
	}
	lower := strings.ToLower(url)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ImageCache is the session image cache. Entries are only added or
// overwritten; misses and backend failures both report ok == false.
type ImageCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, url string)
}

// CardSource exposes the product cards currently rendered in the tab.
type CardSource interface {
	CardImage(itemID string) (string, bool)
}

type MemoryImageCache struct {
	mu     sync.RWMutex
	images map[string]string
}

func NewMemoryImageCache() *MemoryImageCache {
	return &MemoryImageCache{images: make(map[string]string)}
}

func (c *MemoryImageCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.images[key]
	return url, ok
}

func (c *MemoryImageCache) Set(_ context.Context, key, url string) {
	if key == "" || IsPlaceholder(url) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[key] = url
}

// CardSet is a concurrency-safe CardSource replaced wholesale whenever the
// tab reports the cards it renders.
type CardSet struct {
	mu    sync.RWMutex
	cards map[string]string
}

func NewCardSet() *CardSet {
	return &CardSet{cards: make(map[string]string)}
}

func (s *CardSet) Replace(cards map[string]string) {
	next := make(map[string]string, len(cards))
	for id, url := range cards {
		next[id] = url
	}
	s.mu.Lock()
	s.cards = next
	s.mu.Unlock()
}

func (s *CardSet) CardImage(itemID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	url, ok := s.cards[itemID]
	return url, ok
}

// ImageResolver picks a displayable image for a line item.
type ImageResolver struct {
	cache ImageCache
	cards CardSource
}

func NewImageResolver(cache ImageCache, cards CardSource) *ImageResolver {
	return &ImageResolver{cache: cache, cards: cards}
}

// Resolve tries the item image, the cache and the rendered card, in that
// order, keyed by the item's original ID.
func (r *ImageResolver) Resolve(ctx context.Context, item LineItem) string {
	if !IsPlaceholder(item.Image) {
		return item.Image
	}

	key := item.Key()
	if r.cache != nil && key != "" {
		if url, ok := r.cache.Get(ctx, key); ok && !IsPlaceholder(url) {
			return url
		}
	}

	if r.cards != nil && key != "" {
		if url, ok := r.cards.CardImage(key); ok && !IsPlaceholder(url) {
			return url
		}
	}

	return PlaceholderImage
}

// Remember stores a usable image under the item's original and base IDs.
func (r *ImageResolver) Remember(ctx context.Context, item LineItem, url string) {
	rememberImage(ctx, r.cache, item, url)
}

func rememberImage(ctx context.Context, cache ImageCache, item LineItem, url string) {
	if cache == nil || IsPlaceholder(url) {
		return
	}
	key := item.Key()
	if key == "" {
		return
	}
	cache.Set(ctx, key, url)
	if base := BaseProductID(key); base != key && base != "" {
		cache.Set(ctx, base, url)
	}
}
