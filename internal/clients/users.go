// internal/clients/users.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonhttp "agrisure-workers/internal/common/http"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// UsersClient reads user contact details from the identity service. Lookups
// are cached in Redis because the same user is fetched on every lifecycle
// step of every application they own.
type UsersClient struct {
	baseURL    string
	httpClient *commonhttp.Client
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     logger.Logger
}

func NewUsersClient(baseURL string, timeout time.Duration, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *UsersClient {
	return &UsersClient{
		baseURL:    baseURL,
		httpClient: commonhttp.NewClient(timeout),
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     log,
	}
}

func userCacheKey(id string) string {
	return "users:profile:" + id
}

// GetUser fetches one user, serving from the Redis cache when possible.
// Cache failures degrade to a direct fetch.
func (c *UsersClient) GetUser(ctx context.Context, id, bearer string) (*models.User, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, userCacheKey(id)).Result()
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(cached), &user); err == nil {
				return &user, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("user cache read failed", map[string]interface{}{
				"userId": id,
				"error":  err.Error(),
			})
		}
	}

	user, err := c.fetchUser(ctx, id, bearer)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if b, err := json.Marshal(user); err == nil {
			if err := c.cache.Set(ctx, userCacheKey(id), b, c.cacheTTL).Err(); err != nil {
				c.logger.Warn("user cache write failed", map[string]interface{}{
					"userId": id,
					"error":  err.Error(),
				})
			}
		}
	}
	return user, nil
}

func (c *UsersClient) fetchUser(ctx context.Context, id, bearer string) (*models.User, error) {
	var user models.User
	url := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, id)
	if err := c.httpClient.GetJSON(ctx, url, bearer, "user", id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
