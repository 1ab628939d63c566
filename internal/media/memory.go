package media

import (
	"context"
	"sort"
	"sync"
	"time"

	"faceguard/pkg/platform/sentinel"
)

// InMemoryBlobs is a BlobStore for tests and local runs without S3.
type InMemoryBlobs struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewInMemoryBlobs() *InMemoryBlobs {
	return &InMemoryBlobs{objects: make(map[string][]byte)}
}

func (b *InMemoryBlobs) Put(_ context.Context, key, _ string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	return nil
}

func (b *InMemoryBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *InMemoryBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// Keys lists stored keys in order.
func (b *InMemoryBlobs) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type InMemoryIndex struct {
	mu    sync.RWMutex
	items map[string]Info
}

func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{items: make(map[string]Info)}
}

func (i *InMemoryIndex) Record(_ context.Context, info Info) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[info.Key] = info
	return nil
}

func (i *InMemoryIndex) Expired(_ context.Context, class Class, cutoff time.Time, limit int) ([]Info, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []Info
	for _, info := range i.items {
		if info.Class == class && info.CreatedAt.Before(cutoff) {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (i *InMemoryIndex) Remove(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.items, key)
	return nil
}
