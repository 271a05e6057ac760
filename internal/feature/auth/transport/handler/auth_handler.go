// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"portal_backend/internal/feature/auth/domain/entity"
	"portal_backend/internal/feature/auth/transport/http/dto"
	"portal_backend/internal/feature/auth/usecase"
	"portal_backend/internal/platform/http/flash"
	"portal_backend/internal/platform/http/sessioncookie"
)

const (
	// LandingPath はログイン・ログアウト後のリダイレクト先です。
	LandingPath = "/"
	// LoginPath はログインフォームのパスです。
	LoginPath = "/login"
	// RegisterPath は登録フォームのパスです。
	RegisterPath = "/register"

	msgRegistered        = "Registration successful!"
	msgLoggedOut         = "You have been logged out."
	msgInvalidCredential = "Invalid credentials"
	msgUsernameTaken     = "Username already taken"
	msgPasswordTooShort  = "Field must be at least 6 characters long."
	msgPasswordTooLong   = "Field cannot be longer than 72 bytes."
	msgServerError       = "The server could not complete your request. Please try again later."
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Signup は新規ユーザーを登録し、ストアが採番したIDを返します。
	Signup(ctx context.Context, username, password string) (string, error)
	// Login は資格情報を検証し、一致したユーザーを返します。
	Login(ctx context.Context, username, password string) (*entity.User, error)
}

// SessionService はサーバー側セッションの発行と失効を行います。
type SessionService interface {
	Establish(ctx context.Context, user *entity.User, meta usecase.ClientMeta) (*entity.Session, error)
	Revoke(ctx context.Context, sessionID string) error
}

// TokenCodec はセッションIDを署名付きトークンへ変換します。
type TokenCodec interface {
	GenerateToken(sessionID string, expiresAt time.Time) (string, error)
	ParseToken(token string) (string, error)
}

// Renderer はHTMLページとフラッシュ通知を出力します。
type Renderer interface {
	HTML(c *gin.Context, status int, name string, data gin.H)
	Flash(c *gin.Context, notice flash.Notice)
}

// AuthHandler は登録・ログイン・ログアウトのHTTPリクエストを処理します。
type AuthHandler struct {
	auth     AuthUsecase
	sessions SessionService
	tokens   TokenCodec
	view     Renderer
	cookies  sessioncookie.Policy
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase, sessions SessionService, tokens TokenCodec, view Renderer, cookies sessioncookie.Policy) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		tokens:   tokens,
		view:     view,
		cookies:  cookies,
	}
}

// RegisterForm は空の登録フォームを表示します。
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, dto.RegisterForm{}, nil, "")
}

// Register はユーザー登録フォームの送信を処理します。
// - バリデーションエラー時はメッセージ付きでフォームを再表示
// - ユーザー名重複時は再表示
// - ストア障害時は500
// - 成功時はフラッシュを設定しログイン画面へ303
func (h *AuthHandler) Register(c *gin.Context) {
	var form dto.RegisterForm
	if errs := dto.Bind(c.Request, &form); len(errs) > 0 {
		form.Password, form.ConfirmPassword = "", ""
		h.renderRegister(c, http.StatusOK, form, errs, "")
		return
	}

	if _, err := h.auth.Signup(c.Request.Context(), form.Username, form.Password); err != nil {
		switch {
		case errors.Is(err, usecase.ErrDuplicateUsername):
			slog.Info("signup rejected: username taken", "username", form.Username, "remote_addr", c.ClientIP())
			h.renderRegister(c, http.StatusOK, dto.RegisterForm{Username: form.Username}, dto.FieldErrors{"username": msgUsernameTaken}, "")
		case errors.Is(err, usecase.ErrPasswordTooShort):
			h.renderRegister(c, http.StatusOK, dto.RegisterForm{Username: form.Username}, dto.FieldErrors{"password": msgPasswordTooShort}, "")
		case errors.Is(err, usecase.ErrPasswordTooLong):
			h.renderRegister(c, http.StatusOK, dto.RegisterForm{Username: form.Username}, dto.FieldErrors{"password": msgPasswordTooLong}, "")
		default:
			slog.Error("signup failed", "error", err, "remote_addr", c.ClientIP())
			h.renderServerError(c)
		}
		return
	}

	slog.Info("user signup successful", "username", form.Username, "remote_addr", c.ClientIP())
	h.view.Flash(c, flash.Success(msgRegistered))
	c.Redirect(http.StatusSeeOther, LoginPath)
}

// LoginForm は空のログインフォームを表示します。
func (h *AuthHandler) LoginForm(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, dto.LoginForm{}, nil, "")
}

// Login はログインフォームの送信を処理します。
// 未登録ユーザーとパスワード不一致は同一のレスポンスになります。
func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if errs := dto.Bind(c.Request, &form); len(errs) > 0 {
		h.renderLogin(c, http.StatusOK, dto.LoginForm{Username: form.Username}, errs, "")
		return
	}

	ctx := c.Request.Context()
	user, err := h.auth.Login(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			// ユーザー列挙攻撃を防止するため、どちらが誤っていたかは公開しない
			slog.Warn("login failed", "username", form.Username, "remote_addr", c.ClientIP())
			h.renderLogin(c, http.StatusOK, dto.LoginForm{Username: form.Username}, nil, msgInvalidCredential)
			return
		}
		slog.Error("login failed", "error", err, "remote_addr", c.ClientIP())
		h.renderServerError(c)
		return
	}

	sess, err := h.sessions.Establish(ctx, user, usecase.ClientMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		slog.Error("session establish failed", "error", err, "user_id", user.ID)
		h.renderServerError(c)
		return
	}

	token, err := h.tokens.GenerateToken(sess.ID, sess.ExpiresAt)
	if err != nil {
		slog.Error("session token signing failed", "error", err, "user_id", user.ID)
		h.renderServerError(c)
		return
	}

	sessioncookie.Write(c.Writer, token, sess.ExpiresAt, h.cookies)
	slog.Info("user login successful", "user_id", user.ID, "remote_addr", c.ClientIP())
	c.Redirect(http.StatusSeeOther, LandingPath)
}

// Logout はサーバー側セッションを失効させ、Cookieを必ず削除します。
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw, ok := sessioncookie.Read(c.Request); ok {
		if sid, err := h.tokens.ParseToken(raw); err == nil {
			if err := h.sessions.Revoke(c.Request.Context(), sid); err != nil {
				slog.Warn("session revoke failed", "error", err)
			}
		}
	}

	sessioncookie.Clear(c.Writer, h.cookies)
	h.view.Flash(c, flash.Info(msgLoggedOut))
	c.Redirect(http.StatusSeeOther, LandingPath)
}

// Reject は前段のミドルウェアが受け付けなかった送信に対し、
// 入力済みのユーザー名とメッセージを添えて該当フォームを再表示します。
func (h *AuthHandler) Reject(c *gin.Context, status int, message string) {
	username := c.PostForm("username")
	switch c.FullPath() {
	case RegisterPath:
		h.renderRegister(c, status, dto.RegisterForm{Username: username}, nil, message)
	case LoginPath:
		h.renderLogin(c, status, dto.LoginForm{Username: username}, nil, message)
	default:
		c.AbortWithStatus(status)
	}
}

func (h *AuthHandler) renderRegister(c *gin.Context, status int, form dto.RegisterForm, errs dto.FieldErrors, message string) {
	h.view.HTML(c, status, "register.tmpl", gin.H{
		"Title":  "Register",
		"User":   CurrentUser(c),
		"Form":   form,
		"Errors": errs,
		"Error":  formError(errs, message),
	})
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, form dto.LoginForm, errs dto.FieldErrors, message string) {
	h.view.HTML(c, status, "login.tmpl", gin.H{
		"Title":  "Login",
		"User":   CurrentUser(c),
		"Form":   form,
		"Errors": errs,
		"Error":  formError(errs, message),
	})
}

func (h *AuthHandler) renderServerError(c *gin.Context) {
	RenderServerError(c, h.view)
}

// RenderServerError は詳細を含まない汎用エラーページを500で表示します。
func RenderServerError(c *gin.Context, view Renderer) {
	view.HTML(c, http.StatusInternalServerError, "error.tmpl", gin.H{
		"Title":   "Error",
		"Message": msgServerError,
	})
	c.Abort()
}

// formError はフォーム全体へのメッセージを返します。
func formError(errs dto.FieldErrors, message string) string {
	if message != "" {
		return message
	}
	return strings.TrimSpace(errs[""])
}
