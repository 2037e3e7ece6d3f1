package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
)

const rateLimitPrefix = "engine:ratelimit"

// KeyFunc выбирает ключ, по которому считаются запросы.
type KeyFunc func(c *gin.Context) string

// ByClientIP считает запросы по IP клиента.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByActor считает запросы по участнику, без авторизации по IP.
func ByActor(c *gin.Context) string {
	if actor, ok := ActorFromContext(c); ok {
		return "actor:" + actor.ID.String()
	}
	return "ip:" + c.ClientIP()
}

// NewRateLimitStore хранит счётчики в Redis, если клиент задан, иначе в памяти процесса.
func NewRateLimitStore(rdb *redis.Client) (limiter.Store, error) {
	options := limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		MaxRetry:        limiter.DefaultMaxRetry,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if rdb == nil {
		return memory.NewStoreWithOptions(options), nil
	}
	store, err := redisstore.NewStoreWithOptions(rdb, options)
	if err != nil {
		return nil, fmt.Errorf("rate limit: не удалось создать redis store: %w", err)
	}
	return store, nil
}

// RateLimitMiddleware ограничивает количество запросов на ключ.
// По умолчанию: 60 запросов в минуту.
func RateLimitMiddleware(store limiter.Store, limit int64, period time.Duration, key KeyFunc) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}
	if key == nil {
		key = ByClientIP
	}

	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lctx, err := instance.Get(c, key(c))
		if err != nil {
			// Хранилище недоступно: пропускаем запрос, а не роняем API.
			logger.WithFields(logrus.Fields{"path": c.FullPath()}).WithError(err).Warn("rate limit: хранилище недоступно")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lctx.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lctx.Reset))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "слишком много запросов, попробуйте позже",
				},
			})
			return
		}

		c.Next()
	}
}
