// Package app は設定とストアからHTTPアプリケーション全体を組み立てます。
package app

import (
	"log/slog"
	"time"

	"portal_backend/internal/app/config"
	"portal_backend/internal/app/di"
	"portal_backend/internal/app/router"
	accounthandler "portal_backend/internal/feature/account/transport/handler"
	authhandler "portal_backend/internal/feature/auth/transport/handler"
	"portal_backend/internal/feature/auth/usecase"
	homehandler "portal_backend/internal/feature/home/transport/handler"
	healthhandler "portal_backend/internal/platform/http/handler"
	"portal_backend/internal/platform/http/render"
	"portal_backend/internal/platform/http/sessioncookie"
	"portal_backend/internal/platform/token"
	"portal_backend/internal/shared/ratelimiter"

	"github.com/gin-gonic/gin"
)

// limiterIdleTTL はアクセスの途絶えたクライアントのリミッターを破棄するまでの時間です。
const limiterIdleTTL = 10 * time.Minute

// App は組み立て済みのアプリケーションです。
type App struct {
	Engine   *gin.Engine
	Sessions *usecase.SessionManager
}

// Options はテストなどで差し替える組み立てオプションです。
type Options struct {
	Logger *slog.Logger
	// BcryptCost が0以下ならbcrypt.DefaultCostを使います。
	BcryptCost int
}

// New はストアを受け取り、ユースケース・ハンドラー・ルーターを接続します。
// グローバル状態は持たず、依存はすべて引数から渡します。
func New(cfg config.Config, stores *di.Stores, opts Options) *App {
	// Usecase
	authUC := usecase.NewAuthUsecase(stores.Users, opts.BcryptCost)
	sessions := usecase.NewSessionManager(stores.Sessions, stores.Users, cfg.SessionTTL, cfg.MaxSessionsPerUser)

	// Platform
	tokens := token.NewGenerator(cfg.SecretKey)
	view := render.NewRenderer(cfg.CookieSecure)
	cookies := sessioncookie.Policy{Secure: cfg.CookieSecure}

	var limiter ratelimiter.RateLimiterInterface
	if cfg.LoginRateLimit > 0 && cfg.LoginRateBurst > 0 {
		limiter = ratelimiter.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst, limiterIdleTTL)
	}

	// Handler
	handlers := router.Handlers{
		Auth:     authhandler.NewAuthHandler(authUC, sessions, tokens, view, cookies),
		Home:     homehandler.NewHomeHandler(view),
		Account:  accounthandler.NewAccountHandler(view),
		Health:   healthhandler.NewHealthHandler(stores.Checks),
		Identity: authhandler.LoadIdentity(sessions, tokens, view, cookies),
	}

	engine := router.NewRouter(handlers, router.Options{
		Logger:             opts.Logger,
		CookieSecure:       cfg.CookieSecure,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		LoginLimiter:       limiter,
	})

	return &App{Engine: engine, Sessions: sessions}
}
