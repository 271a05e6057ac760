// Package router はGinエンジンを組み立て、各フィーチャーのルートを登録します。
package router

import (
	"log/slog"
	"net/http"
	"time"

	accounthandler "portal_backend/internal/feature/account/transport/handler"
	authhandler "portal_backend/internal/feature/auth/transport/handler"
	homehandler "portal_backend/internal/feature/home/transport/handler"
	healthhandler "portal_backend/internal/platform/http/handler"
	"portal_backend/internal/platform/http/csrf"
	"portal_backend/internal/platform/http/render"
	"portal_backend/internal/platform/logging"
	"portal_backend/internal/shared/ratelimiter"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers はルーターへ登録するハンドラー群です。
type Handlers struct {
	Auth    *authhandler.AuthHandler
	Home    *homehandler.HomeHandler
	Account *accounthandler.AccountHandler
	Health  *healthhandler.HealthHandler
	// Identity はすべてのページでセッションCookieからユーザーを読み込むミドルウェアです。
	Identity gin.HandlerFunc
}

// Options はミドルウェアの設定です。
type Options struct {
	Logger             *slog.Logger
	CookieSecure       bool
	CORSAllowedOrigins []string
	// LoginLimiter がnilならPOST /loginの流量制限を行いません。
	LoginLimiter ratelimiter.RateLimiterInterface
}

func NewRouter(h Handlers, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))
	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", csrf.HeaderName},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.SetHTMLTemplate(render.Templates())

	// 認証不要
	// 導通確認用
	r.GET("/healthz", h.Health.Health)
	r.HEAD("/healthz", h.Health.Health)

	// HTMLページ: 現在のユーザーを読み込み、フォームをCSRFで保護する
	pages := r.Group("/")
	pages.Use(h.Identity, csrf.Protect(opts.CookieSecure, h.Auth.Reject))
	{
		pages.GET("/", h.Home.Index)

		// 新規ユーザー登録
		pages.GET(authhandler.RegisterPath, h.Auth.RegisterForm)
		pages.POST(authhandler.RegisterPath, h.Auth.Register)

		// ログイン（セッション発行）
		pages.GET(authhandler.LoginPath, h.Auth.LoginForm)
		if opts.LoginLimiter != nil {
			pages.POST(authhandler.LoginPath, ratelimiter.Middleware(opts.LoginLimiter, h.Auth.Reject), h.Auth.Login)
		} else {
			pages.POST(authhandler.LoginPath, h.Auth.Login)
		}
		pages.GET("/logout", h.Auth.Logout)

		// ログイン必須のルート
		account := pages.Group("/account")
		account.Use(authhandler.LoginRequired())
		{
			account.GET("/", h.Account.Show)
		}
	}

	return r
}
