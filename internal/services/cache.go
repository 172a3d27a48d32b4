package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"biosonar/internal/config"
	"biosonar/internal/models"
)

const historyCollection = "histories"

// Generic in-memory cache with type safety
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*cacheItem[V]
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
		done:  make(chan struct{}),
	}

	go c.cleanup(5 * time.Minute)

	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Len counts entries, expired ones included until the next sweep.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the cleanup goroutine.
func (c *Cache[K, V]) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache[K, V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *Cache[K, V]) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
		}
	}
}

// CacheService keeps candle histories in memory and, when configured, in
// Firestore.
type CacheService struct {
	ttl             time.Duration
	firestoreClient *firestore.Client
	histories       *Cache[string, *models.History]
}

// NewCacheService connects to Firestore when a project is configured. A
// failed connection falls back to the in-memory cache.
func NewCacheService(ctx context.Context, cfg *config.AnalyzerConfig) *CacheService {
	var client *firestore.Client
	if cfg.FirestoreProject != "" {
		var opts []option.ClientOption
		if cfg.FirestoreCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentials))
		}

		var err error
		client, err = firestore.NewClient(ctx, cfg.FirestoreProject, opts...)
		if err != nil {
			log.Warnf("Failed to initialize Firestore, using in-memory cache only: %v", err)
			client = nil
		}
	}

	return newCacheService(cfg.CacheTTL, client)
}

func newCacheService(ttl time.Duration, client *firestore.Client) *CacheService {
	return &CacheService{
		ttl:             ttl,
		firestoreClient: client,
		histories:       NewCache[string, *models.History](ttl),
	}
}

// Persistent reports whether Firestore backs the cache.
func (s *CacheService) Persistent() bool {
	return s.firestoreClient != nil
}

// GetHistory retrieves a history from cache
func (s *CacheService) GetHistory(ctx context.Context, symbol string, size int) (*models.History, bool) {
	key := historyKey(symbol, size)

	if h, found := s.histories.Get(key); found {
		return h, true
	}

	if s.firestoreClient == nil {
		return nil, false
	}

	doc, err := s.firestoreClient.Collection(historyCollection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			log.Warnf("firestore read %s: %v", key, err)
		}
		return nil, false
	}

	var h models.History
	if err := doc.DataTo(&h); err != nil {
		log.Warnf("firestore decode %s: %v", key, err)
		return nil, false
	}
	if time.Since(h.FetchedAt) >= s.ttl {
		return nil, false
	}

	s.histories.Set(key, &h)
	return &h, true
}

// SetHistory stores a history in cache
func (s *CacheService) SetHistory(ctx context.Context, symbol string, size int, h *models.History) error {
	key := historyKey(symbol, size)
	s.histories.Set(key, h)

	if s.firestoreClient != nil {
		if _, err := s.firestoreClient.Collection(historyCollection).Doc(key).Set(ctx, h); err != nil {
			return fmt.Errorf("firestore write %s: %w", key, err)
		}
	}

	return nil
}

// Close closes the Firestore client
func (s *CacheService) Close() error {
	s.histories.Stop()
	if s.firestoreClient != nil {
		return s.firestoreClient.Close()
	}
	return nil
}

// historyKey is also the Firestore document ID, which must not contain "/".
func historyKey(symbol string, size int) string {
	symbol = strings.ReplaceAll(strings.ToUpper(symbol), "/", "_")
	return fmt.Sprintf("%s:%d", symbol, size)
}
