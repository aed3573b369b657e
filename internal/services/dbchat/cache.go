package dbchat

import (
	"context"
	"fmt"

	"github.com/datadeck-io/datadeck-api/internal/models"

	"github.com/botirk38/semanticcache"
	"github.com/botirk38/semanticcache/options"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const defaultSemanticThreshold = 0.9

// ResponseCache provides semantic caching of chat answers. Two questions
// about the same data source that embed close enough reuse one answer.
type ResponseCache struct {
	cache     *semanticcache.SemanticCache[string, models.DBChatResponse]
	threshold float32
}

// NewResponseCache builds the cache from config. A nil or disabled config
// returns a nil cache; all methods are nil-safe.
func NewResponseCache(config *models.CacheConfig) (*ResponseCache, error) {
	if config == nil || !config.Enabled || config.OpenAIAPIKey == "" {
		fiberlog.Info("ResponseCache: semantic cache disabled")
		return nil, nil
	}

	threshold := config.SemanticThreshold
	if threshold <= 0 || threshold > 1 {
		fiberlog.Warnf("ResponseCache: invalid threshold %.2f, using default %.2f", threshold, defaultSemanticThreshold)
		threshold = defaultSemanticThreshold
	}

	embedModel := config.EmbeddingModel
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}

	backend := config.Backend
	if backend == "" {
		backend = models.CacheBackendRedis
		fiberlog.Warn("ResponseCache: backend not specified, defaulting to redis")
	}

	var cache *semanticcache.SemanticCache[string, models.DBChatResponse]
	var err error

	switch backend {
	case models.CacheBackendMemory:
		capacity := config.Capacity
		if capacity <= 0 {
			capacity = 1000
			fiberlog.Warnf("ResponseCache: invalid or missing capacity, using default %d", capacity)
		}
		cache, err = semanticcache.New(
			options.WithOpenAIProvider[string, models.DBChatResponse](config.OpenAIAPIKey, embedModel),
			options.WithLRUBackend[string, models.DBChatResponse](capacity),
		)

	case models.CacheBackendRedis:
		if config.RedisURL == "" {
			return nil, fmt.Errorf("redis URL not set for redis backend")
		}
		cache, err = semanticcache.New(
			options.WithOpenAIProvider[string, models.DBChatResponse](config.OpenAIAPIKey, embedModel),
			options.WithRedisBackend[string, models.DBChatResponse](config.RedisURL, 1),
		)

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s (supported: redis, memory)", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create semantic cache: %w", err)
	}

	fiberlog.Info("ResponseCache: semantic cache initialized")
	return &ResponseCache{cache: cache, threshold: float32(threshold)}, nil
}

// Get looks up an answer by semantic similarity. The cache key embeds the
// data source ID so answers never leak across sources.
func (rc *ResponseCache) Get(ctx context.Context, key string, requestID string) (*models.DBChatResponse, bool) {
	if rc == nil || rc.cache == nil {
		return nil, false
	}

	if hit, found, err := rc.cache.Get(ctx, key); found && err == nil {
		fiberlog.Infof("[%s] ResponseCache: exact cache hit", requestID)
		return &hit, true
	} else if err != nil {
		fiberlog.Errorf("[%s] ResponseCache: exact lookup error: %v", requestID, err)
	}

	if match, err := rc.cache.Lookup(ctx, key, rc.threshold); err == nil && match != nil {
		fiberlog.Infof("[%s] ResponseCache: semantic cache hit", requestID)
		return &match.Value, true
	} else if err != nil {
		fiberlog.Errorf("[%s] ResponseCache: semantic lookup error: %v", requestID, err)
	}

	return nil, false
}

// Set stores an answer for future retrieval.
func (rc *ResponseCache) Set(ctx context.Context, key string, resp *models.DBChatResponse, requestID string) {
	if rc == nil || rc.cache == nil {
		return
	}

	if err := rc.cache.Set(ctx, key, key, *resp); err != nil {
		fiberlog.Errorf("[%s] ResponseCache: failed to store: %v", requestID, err)
	}
}

// Flush clears all cached answers.
func (rc *ResponseCache) Flush(ctx context.Context) error {
	if rc == nil || rc.cache == nil {
		return nil
	}
	return rc.cache.Flush(ctx)
}

// Close releases cache resources.
func (rc *ResponseCache) Close() error {
	if rc == nil || rc.cache == nil {
		return nil
	}
	return rc.cache.Close()
}
