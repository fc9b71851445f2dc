package synccache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"hargapanel/backend/internal/domain"
	"hargapanel/backend/internal/remote"
)

// Cache keeps the last-known full snapshot in process memory in front of
// a SyncStore. Reads are served from memory once primed; a cache miss
// triggers at most one remote fetch at a time, shared by every
// concurrent caller. Writes are applied to the cached snapshot first
// (write-ahead-local) and then pushed to the remote store before the
// call returns (durability before ack); a failed push is reported but
// never rolls the optimistic value back.
type Cache struct {
	store   remote.SyncStore
	breaker *gobreaker.CircuitBreaker
	flight  singleflight.Group

	mu        sync.RWMutex
	snapshot  *domain.Snapshot
	lastError string
	version   uint64
}

func New(store remote.SyncStore) *Cache {
	// The breaker only guards the fetch path: without it every cache-miss
	// read during a remote outage would fire a fresh request.
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "remote-fetch",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Cache{store: store, breaker: breaker}
}

// Snapshot returns the cached snapshot, fetching it on first use. All
// callers that arrive while a fetch is in flight share that fetch's
// outcome. On failure nothing is cached and the error describes the
// cause; the next call retries through the breaker.
func (c *Cache) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	c.mu.RLock()
	if c.snapshot != nil {
		snap := c.snapshot.Clone()
		c.mu.RUnlock()
		return snap, nil
	}
	c.mu.RUnlock()

	_, err, _ := c.flight.Do("snapshot", func() (any, error) {
		// Re-check under the lock: an ApplySync-free fetch may have
		// completed between the miss above and joining the flight.
		c.mu.RLock()
		cached := c.snapshot
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		fetched, err := c.breaker.Execute(func() (any, error) {
			return c.store.FetchSnapshot(ctx)
		})
		if err != nil {
			c.recordError(err)
			return nil, err
		}

		snap := fetched.(*domain.Snapshot)
		c.mu.Lock()
		c.snapshot = snap
		c.lastError = ""
		c.version++
		c.mu.Unlock()
		log.Printf("[synccache] snapshot fetched and cached")
		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	// Clone under the lock: a concurrent ApplySync may be swapping
	// collections on the shared snapshot.
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone(), nil
}

// ApplySync replaces the collection named by action in the cached
// snapshot, then pushes the action to the remote store and waits for the
// outcome. Unknown actions skip the local mutation but are still
// forwarded. A push failure is returned to the caller; the optimistic
// local value stays.
func (c *Cache) ApplySync(ctx context.Context, action string, data json.RawMessage) error {
	c.applyLocal(action, data)

	if err := c.store.PushAction(ctx, action, data); err != nil {
		c.recordError(err)
		return fmt.Errorf("sync %s: %w", action, err)
	}
	return nil
}

func (c *Cache) applyLocal(action string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return
	}

	var err error
	switch action {
	case domain.ActionSyncLocations:
		err = replaceCollection(data, &c.snapshot.Locations)
	case domain.ActionSyncSuppliers:
		err = replaceCollection(data, &c.snapshot.Suppliers)
	case domain.ActionSyncItems:
		err = replaceCollection(data, &c.snapshot.Items)
	case domain.ActionSyncCompetitorList:
		err = replaceCollection(data, &c.snapshot.CompetitorList)
	case domain.ActionSyncCompetitors:
		err = replaceCollection(data, &c.snapshot.Competitors)
	case domain.ActionSyncPurchases:
		err = replaceCollection(data, &c.snapshot.Purchases)
	case domain.ActionSyncSalesData:
		err = replaceCollection(data, &c.snapshot.SalesData)
	default:
		// Forward-compatible: an action this build does not know keeps
		// the cache untouched and still reaches the remote store.
		return
	}
	if err != nil {
		log.Printf("[synccache] %s payload not applied locally: %v", action, err)
		return
	}
	c.version++
}

func replaceCollection[T any](data json.RawMessage, target *[]T) error {
	var decoded []T
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*target = decoded
	return nil
}

func (c *Cache) recordError(err error) {
	msg := err.Error()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		msg = "Remote store sedang tidak tersedia (circuit breaker terbuka), coba lagi sebentar lagi."
	}
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
	log.Printf("[synccache] remote error: %v", err)
}

// LastError is the human-readable cause of the most recent remote
// failure, empty after a successful fetch.
func (c *Cache) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Version increments on every successful fetch and every locally applied
// sync action. Analytics use it to key result caches.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Warm primes the cache in the background at startup; failures are
// logged and retried lazily by the first real read.
func (c *Cache) Warm(ctx context.Context) {
	if _, err := c.Snapshot(ctx); err != nil {
		log.Printf("[synccache] warm fetch failed: %v", err)
	}
}
