// Package release fetches the plugin's remote release descriptor and
// caches it for a fixed window to bound network calls.
package release

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vrsandeep/techmail/internal/logger"
)

// DefaultTTL is how long a fetched descriptor stays fresh.
const DefaultTTL = 12 * time.Hour

// Slot persists the single cached entry under a key.
type Slot interface {
	Load(key string) ([]byte, bool, error)
	Save(key string, value []byte) error
	Delete(key string) error
}

type entry struct {
	Descriptor *Descriptor `json:"descriptor"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Cache serves the descriptor from its slot while fresh and refetches it
// from the source once stale. Failed fetches are never cached.
type Cache struct {
	source Source
	slot   Slot
	key    string
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Entry
	group  singleflight.Group
}

// NewCache creates a cache over source. A non-positive ttl means DefaultTTL.
func NewCache(source Source, slot Slot, key string, ttl time.Duration, l *logrus.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source: source,
		slot:   slot,
		key:    key,
		ttl:    ttl,
		now:    time.Now,
		log:    logger.Component(l, "release"),
	}
}

// SetClock replaces the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the descriptor and true, or nil and false when no
// descriptor is available.
func (c *Cache) Get(ctx context.Context) (*Descriptor, bool) {
	now := c.now()
	if e, ok := c.load(); ok {
		age := now.Sub(e.FetchedAt)
		if age >= 0 && age < c.ttl {
			return e.Descriptor, true
		}
	}

	// Concurrent misses share one fetch.
	v, err, _ := c.group.Do(c.key, func() (any, error) {
		return c.source.Fetch(ctx)
	})
	if err != nil {
		c.log.WithError(err).Warn("Release descriptor unavailable")
		return nil, false
	}
	d := v.(*Descriptor)

	data, err := json.Marshal(entry{Descriptor: d, FetchedAt: now})
	if err == nil {
		err = c.slot.Save(c.key, data)
	}
	if err != nil {
		c.log.WithError(err).Warn("Could not cache release descriptor")
	}
	c.log.WithField("version", d.Version).Debug("Fetched release descriptor")
	return d, true
}

// Invalidate drops the cached entry so the next Get fetches.
func (c *Cache) Invalidate() error {
	return c.slot.Delete(c.key)
}

func (c *Cache) load() (entry, bool) {
	data, ok, err := c.slot.Load(c.key)
	if err != nil {
		c.log.WithError(err).Warn("Could not read cached release descriptor")
		return entry{}, false
	}
	if !ok {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Descriptor == nil {
		return entry{}, false
	}
	return e, true
}

// MemorySlot is an in-process Slot.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemorySlot creates an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string][]byte)}
}

func (m *MemorySlot) Load(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySlot) Save(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySlot) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
