package usecase

import (
	"sync"
	"time"

	"giftnews/internal/domain"
)

// CacheKey идентифицирует вычисленную страницу результатов.
type CacheKey struct {
	Category string
	Limit    int
}

// CacheEntry - вычисленная страница результатов с отметкой времени.
// Создается при промахе, заменяется целиком при следующем успешном
// пересчете, частично не изменяется.
type CacheEntry struct {
	Articles   []domain.NormalizedArticle
	ComputedAt time.Time
}

// ResultCache хранит вычисленные страницы результатов на ограниченное
// время. Создается один раз при старте и передается конвейеру по ссылке.
// Часы инъецируются, чтобы истечение TTL было детерминировано тестируемым.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResultCache создает кэш результатов с указанным TTL.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[CacheKey]CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get возвращает закэшированную страницу, если она есть и не старше TTL.
func (c *ResultCache) Get(key CacheKey) ([]domain.NormalizedArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.ComputedAt) > c.ttl {
		return nil, false
	}
	return entry.Articles, true
}

// GetStale возвращает запись независимо от ее возраста.
// Используется только на пути деградации: когда пересчет не удался,
// доступность важнее свежести.
func (c *ResultCache) GetStale(key CacheKey) ([]domain.NormalizedArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Articles, true
}

// Put сохраняет свежую страницу, безусловно заменяя предыдущую запись
// по тому же ключу. Конкурирующие пересчеты одного ключа допустимы:
// побеждает последняя запись.
func (c *ResultCache) Put(key CacheKey, articles []domain.NormalizedArticle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = CacheEntry{Articles: articles, ComputedAt: c.now()}
}
