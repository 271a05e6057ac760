// Package ratelimiter throttles repeated operations per client key.
package ratelimiter

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterInterface は、キーごとに操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Allow(key string) bool
}

// entry pairs a token bucket with the last time the key was seen.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterは、クライアントキー（IPアドレスなど）ごとにトークンバケットで頻度を制限します。
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit    // 1秒あたりの補充数
	burst   int           // バケット容量
	idleTTL time.Duration // この期間使われなかったキーは破棄
	entries map[string]*entry
	now     func() time.Time
}

// NewRateLimiterは新しいRateLimiterのインスタンスを生成します。
// perSecondが0以下の場合は制限なしになります。
func NewRateLimiter(perSecond float64, burst int, idleTTL time.Duration) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allowはキーに対する操作を1回消費し、上限内であればtrueを返します。
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictIdle(now)

	e, ok := rl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// evictIdleはidleTTLを過ぎたキーを削除します。呼び出し側でロックを保持すること。
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, e := range rl.entries {
		if now.Sub(e.lastSeen) >= rl.idleTTL {
			delete(rl.entries, key)
		}
	}
}

// RejectMessage は制限超過時にRejectFuncへ渡す文言です。
const RejectMessage = "Too many attempts. Please wait a moment and try again."

// RejectFunc は制限を超えたリクエストへの応答を書き込みます。戻った後にチェーンは中断されます。
type RejectFunc func(c *gin.Context, status int, message string)

// Middlewareはクライアントごとに制限を超えたリクエストを429で拒否するGinミドルウェアを返します。
// rejectがnilの場合は本文なしの429を返します。
func Middleware(rl RateLimiterInterface, reject RejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			slog.Warn("rate limit exceeded", "path", c.FullPath(), "remote_addr", c.ClientIP())
			if reject == nil {
				c.AbortWithStatus(http.StatusTooManyRequests)
				return
			}
			reject(c, http.StatusTooManyRequests, RejectMessage)
			c.Abort()
			return
		}
		c.Next()
	}
}
