package service

import (
	"fmt"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// SearchCache хранит недавние результаты поиска рядом ограниченное время.
// Любое изменение реестра или журнала очищает его, так что устаревание по TTL
// возможно только для записей других процессов. nil *SearchCache отключает кэш.
type SearchCache struct {
	cache *goCache.Cache
}

// NewSearchCache возвращает nil при неположительном ttl
func NewSearchCache(ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		return nil
	}
	return &SearchCache{cache: goCache.New(ttl, 2*ttl)}
}

func (c *SearchCache) get(key string) ([]NearbyResult, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cloneResults(v.([]NearbyResult)), true
}

func (c *SearchCache) set(key string, results []NearbyResult) {
	if c == nil {
		return
	}
	c.cache.SetDefault(key, cloneResults(results))
}

// Flush удаляет все сохранённые результаты
func (c *SearchCache) Flush() {
	if c == nil {
		return
	}
	c.cache.Flush()
}

func searchKey(q NearbyQuery) string {
	return fmt.Sprintf("%v|%v|%v|%s|%s|%s", q.Center.Latitude, q.Center.Longitude, q.MaxDistanceKm,
		q.Filters.Type, q.Filters.Status, q.Filters.SearchText)
}

func cloneResults(in []NearbyResult) []NearbyResult {
	out := make([]NearbyResult, len(in))
	for i, r := range in {
		out[i] = NearbyResult{Resource: r.Resource.Clone(), DistanceKm: r.DistanceKm}
	}
	return out
}
