package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей в Redis
	KeyPrefix string
}

// AuthRateLimitConfig — лимит для login/register (защита от brute-force)
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 10,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:auth",
	}
}

// AnswerRateLimitConfig — лимит на запись ответов (защита от спама при
// быстром переключении вариантов; дебаунс свободного текста живёт выше,
// в сессии)
func AnswerRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:answers",
	}
}

// RateLimiter — фиксированное окно на Redis INCR+EXPIRE. При недоступном
// Redis запросы пропускаются (fail-open): лимитер защищает от шума, а не
// реализует контроль доступа.
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// verdict — результат проверки лимита для одного запроса
type verdict struct {
	allowed    bool
	remaining  int
	retryAfter int
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP + endpoint path.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, c.ClientIP(), path)

		v, err := rl.check(key, cfg)
		if err != nil {
			log.Printf("[RateLimiter] Redis недоступен для ключа %s: %v. Запрос пропущен (fail-open).", key, err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(v.retryAfter))

		if !v.allowed {
			log.Printf("[RateLimiter] Лимит превышен: ключ=%s, лимит=%d", key, cfg.MaxRequests)
			c.Header("Retry-After", strconv.Itoa(v.retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": v.retryAfter,
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) check(key string, cfg RateLimitConfig) (verdict, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return verdict{}, err
	}

	// Первый запрос в окне открывает его
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
			log.Printf("[RateLimiter] Не удалось установить TTL для ключа %s: %v", key, err)
		}
	}

	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	ttl, _ := rl.redisClient.TTL(ctx, key).Result()
	retryAfter := int(ttl.Seconds())
	if retryAfter < 0 {
		retryAfter = int(cfg.Window.Seconds())
	}

	return verdict{
		allowed:    int(count) <= cfg.MaxRequests,
		remaining:  remaining,
		retryAfter: retryAfter,
	}, nil
}
