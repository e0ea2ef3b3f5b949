package spotify

import (
	"time"

	"github.com/patrickmn/go-cache"

	"jucket/spotify/model"
)

const (
	// Queue and history change with every track, so they expire quickly
	DefaultCacheExpiration = 15 * time.Second
	DefaultCleanupInterval = time.Minute

	// Context names (playlist or artist titles) rarely change
	ContextNameExpiration = time.Hour

	queueKey  = "queue"
	recentKey = "recent"
)

// CacheManager keeps Web API responses that the player polls every second
// but that only change on track changes or explicit queue edits.
type CacheManager struct {
	memCache *cache.Cache
	names    *cache.Cache
}

// NewCacheManager creates a new cache manager
func NewCacheManager() *CacheManager {
	return NewCacheManagerWithConfig(DefaultCacheExpiration, DefaultCleanupInterval)
}

// NewCacheManagerWithConfig creates a cache manager with custom settings
func NewCacheManagerWithConfig(expiration, cleanup time.Duration) *CacheManager {
	return &CacheManager{
		memCache: cache.New(expiration, cleanup),
		names:    cache.New(ContextNameExpiration, cleanup),
	}
}

// Queue returns the cached upcoming tracks.
func (cm *CacheManager) Queue() ([]model.Track, bool) {
	return cm.tracks(queueKey)
}

// SetQueue caches the upcoming tracks.
func (cm *CacheManager) SetQueue(tracks []model.Track) {
	cm.memCache.Set(queueKey, tracks, cache.DefaultExpiration)
}

// Recent returns the cached recently played tracks.
func (cm *CacheManager) Recent() ([]model.Track, bool) {
	return cm.tracks(recentKey)
}

// SetRecent caches the recently played tracks.
func (cm *CacheManager) SetRecent(tracks []model.Track) {
	cm.memCache.Set(recentKey, tracks, cache.DefaultExpiration)
}

func (cm *CacheManager) tracks(key string) ([]model.Track, bool) {
	if cached, found := cm.memCache.Get(key); found {
		if tracks, ok := cached.([]model.Track); ok {
			return tracks, true
		}
	}
	return nil, false
}

// ContextName returns the cached display name of a context URI.
func (cm *CacheManager) ContextName(uri string) (string, bool) {
	if cached, found := cm.names.Get(uri); found {
		if name, ok := cached.(string); ok {
			return name, true
		}
	}
	return "", false
}

// SetContextName caches the display name of a context URI.
func (cm *CacheManager) SetContextName(uri, name string) {
	cm.names.Set(uri, name, cache.DefaultExpiration)
}

// Invalidate drops queue and history after a track change or queue edit.
func (cm *CacheManager) Invalidate() {
	cm.memCache.Flush()
}

// GetCacheStats returns the number of live entries in each cache
func (cm *CacheManager) GetCacheStats() map[string]interface{} {
	return map[string]interface{}{
		"memory_items":  cm.memCache.ItemCount(),
		"context_names": cm.names.ItemCount(),
	}
}
