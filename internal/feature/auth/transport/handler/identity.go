package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal_backend/internal/feature/auth/domain/entity"
	"portal_backend/internal/platform/http/sessioncookie"
)

const currentUserKey = "auth.currentUser"

// IdentityResolver はセッションIDから現在のユーザーを導出します。
// 匿名の場合は (nil, nil) を返します。
type IdentityResolver interface {
	Resolve(ctx context.Context, sessionID string) (*entity.User, error)
}

// TokenParser は署名付きトークンからセッションIDを取り出します。
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// LoadIdentity はリクエストごとにセッションCookieを検証し、ユーザーをストアから再取得します。
// 無効なCookieは削除され、リクエストは匿名として続行します。
func LoadIdentity(resolver IdentityResolver, tokens TokenParser, view Renderer, cookies sessioncookie.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := sessioncookie.Read(c.Request)
		if !ok {
			c.Next()
			return
		}

		sid, err := tokens.ParseToken(raw)
		if err != nil {
			slog.Debug("discarding invalid session cookie", "error", err, "remote_addr", c.ClientIP())
			sessioncookie.Clear(c.Writer, cookies)
			c.Next()
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), sid)
		if err != nil {
			slog.Error("identity resolve failed", "error", err)
			RenderServerError(c, view)
			return
		}
		if user == nil {
			sessioncookie.Clear(c.Writer, cookies)
			c.Next()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// LoginRequired は匿名ユーザーをログイン画面へリダイレクトします。
func LoginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusSeeOther, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser はLoadIdentityが設定したユーザーを返します。匿名ならnilです。
func CurrentUser(c *gin.Context) *entity.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*entity.User); ok {
			return u
		}
	}
	return nil
}
