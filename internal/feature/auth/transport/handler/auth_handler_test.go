package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal_backend/internal/feature/auth/domain/entity"
	"portal_backend/internal/feature/auth/usecase"
	"portal_backend/internal/platform/http/flash"
	"portal_backend/internal/platform/http/render"
	"portal_backend/internal/platform/http/sessioncookie"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockAuthUsecase is a mock implementation of the AuthUsecase interface.
type mockAuthUsecase struct {
	SignupFunc  func(ctx context.Context, username, password string) (string, error)
	LoginFunc   func(ctx context.Context, username, password string) (*entity.User, error)
	signupCalls int
}

func (m *mockAuthUsecase) Signup(ctx context.Context, username, password string) (string, error) {
	m.signupCalls++
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, username, password)
	}
	return "user-1", nil // Default: success
}

func (m *mockAuthUsecase) Login(ctx context.Context, username, password string) (*entity.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, usecase.ErrInvalidCredentials // Default: failure
}

// mockSessionService is a mock implementation of SessionService and IdentityResolver.
type mockSessionService struct {
	EstablishFunc func(ctx context.Context, user *entity.User, meta usecase.ClientMeta) (*entity.Session, error)
	ResolveFunc   func(ctx context.Context, sessionID string) (*entity.User, error)
	RevokeFunc    func(ctx context.Context, sessionID string) error
	revoked       []string
	lastMeta      usecase.ClientMeta
}

func (m *mockSessionService) Establish(ctx context.Context, user *entity.User, meta usecase.ClientMeta) (*entity.Session, error) {
	m.lastMeta = meta
	if m.EstablishFunc != nil {
		return m.EstablishFunc(ctx, user, meta)
	}
	return &entity.Session{ID: "sess-1", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockSessionService) Resolve(ctx context.Context, sessionID string) (*entity.User, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockSessionService) Revoke(ctx context.Context, sessionID string) error {
	m.revoked = append(m.revoked, sessionID)
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, sessionID)
	}
	return nil
}

// fakeTokens encodes a session ID as "tok:<id>".
type fakeTokens struct{}

func (fakeTokens) GenerateToken(sessionID string, _ time.Time) (string, error) {
	return "tok:" + sessionID, nil
}

func (fakeTokens) ParseToken(token string) (string, error) {
	sid, ok := strings.CutPrefix(token, "tok:")
	if !ok {
		return "", errors.New("bad token")
	}
	return sid, nil
}

func setupRouter(auth AuthUsecase, sessions *mockSessionService) *gin.Engine {
	view := render.NewRenderer(false)
	h := NewAuthHandler(auth, sessions, fakeTokens{}, view, sessioncookie.Policy{})

	r := gin.New()
	r.SetHTMLTemplate(render.Templates())
	r.Use(LoadIdentity(sessions, fakeTokens{}, view, sessioncookie.Policy{}))
	r.GET("/register", h.RegisterForm)
	r.POST("/register", h.Register)
	r.GET("/login", h.LoginForm)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.GET("/private", LoginRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, "hello %s", CurrentUser(c).Username)
	})
	return r
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Forms(t *testing.T) {
	router := setupRouter(&mockAuthUsecase{}, &mockSessionService{})

	for _, path := range []string{"/register", "/login"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `name="username"`)
			assert.NotContains(t, w.Body.String(), `class="error"`)
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name             string
		form             url.Values
		signupFunc       func(ctx context.Context, username, password string) (string, error)
		expectedStatus   int
		expectedLocation string
		expectedBody     string
		expectSignup     bool
	}{
		{
			name:             "success: redirects to login with flash",
			form:             url.Values{"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"secret1"}},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/login",
			expectSignup:     true,
		},
		{
			name:           "failure: password of length 5 never reaches the store",
			form:           url.Values{"username": {"alice"}, "password": {"12345"}, "confirm_password": {"12345"}},
			expectedStatus: http.StatusOK,
			expectedBody:   "Field must be at least 6 characters long.",
		},
		{
			name:           "failure: password over 72 bytes never reaches the store",
			form:           url.Values{"username": {"alice"}, "password": {strings.Repeat("p", 73)}, "confirm_password": {strings.Repeat("p", 73)}},
			expectedStatus: http.StatusOK,
			expectedBody:   "Field cannot be longer than 72 bytes.",
		},
		{
			name: "failure: password rejected by the usecase is a field error",
			form: url.Values{"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"secret1"}},
			signupFunc: func(context.Context, string, string) (string, error) {
				return "", usecase.ErrPasswordTooLong
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "Field cannot be longer than 72 bytes.",
			expectSignup:   true,
		},
		{
			name:           "failure: confirmation mismatch",
			form:           url.Values{"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"other11"}},
			expectedStatus: http.StatusOK,
			expectedBody:   "Passwords must match.",
		},
		{
			name:           "failure: duplicate username",
			form:           url.Values{"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"secret1"}},
			signupFunc:     func(context.Context, string, string) (string, error) { return "", usecase.ErrDuplicateUsername },
			expectedStatus: http.StatusOK,
			expectedBody:   "Username already taken",
			expectSignup:   true,
		},
		{
			name: "failure: store unavailable",
			form: url.Values{"username": {"alice"}, "password": {"secret1"}, "confirm_password": {"secret1"}},
			signupFunc: func(context.Context, string, string) (string, error) {
				return "", fmt.Errorf("create user: %w", usecase.ErrStoreUnavailable)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Something went wrong",
			expectSignup:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockAuthUsecase{SignupFunc: tt.signupFunc}
			router := setupRouter(uc, &mockSessionService{})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, postForm("/register", tt.form))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
				assert.NotNil(t, findCookie(w, flash.CookieName), "flash cookie should be set")
			}
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			if tt.expectSignup {
				assert.Equal(t, 1, uc.signupCalls)
			} else {
				assert.Zero(t, uc.signupCalls)
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	uc := &mockAuthUsecase{
		LoginFunc: func(_ context.Context, username, password string) (*entity.User, error) {
			return &entity.User{ID: "user-1", Username: username}, nil
		},
	}
	sessions := &mockSessionService{}
	router := setupRouter(uc, sessions)

	req := postForm("/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cookie := findCookie(w, sessioncookie.Name)
	require.NotNil(t, cookie)
	assert.Equal(t, "tok:sess-1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "test-agent", sessions.lastMeta.UserAgent)
}

// TestAuthHandler_Login_IdenticalFailures checks that a wrong password and an unknown
// username produce byte-identical responses.
func TestAuthHandler_Login_IdenticalFailures(t *testing.T) {
	uc := &mockAuthUsecase{
		LoginFunc: func(context.Context, string, string) (*entity.User, error) {
			return nil, usecase.ErrInvalidCredentials
		},
	}
	router := setupRouter(uc, &mockSessionService{})

	do := func(username, password string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/login", url.Values{"username": {username}, "password": {password}}))
		return w
	}

	wrongPassword := do("alice", "wrong")
	unknownUser := do("alice", "anything")

	assert.Equal(t, http.StatusOK, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Contains(t, wrongPassword.Body.String(), "Invalid credentials")
	assert.Nil(t, findCookie(wrongPassword, sessioncookie.Name))
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	tests := []struct {
		name           string
		form           url.Values
		loginFunc      func(ctx context.Context, username, password string) (*entity.User, error)
		establishFunc  func(ctx context.Context, user *entity.User, meta usecase.ClientMeta) (*entity.Session, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing fields",
			form:           url.Values{},
			expectedStatus: http.StatusOK,
			expectedBody:   "This field is required.",
		},
		{
			name: "store unavailable",
			form: url.Values{"username": {"alice"}, "password": {"secret1"}},
			loginFunc: func(context.Context, string, string) (*entity.User, error) {
				return nil, usecase.ErrStoreUnavailable
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Something went wrong",
		},
		{
			name: "session store unavailable",
			form: url.Values{"username": {"alice"}, "password": {"secret1"}},
			loginFunc: func(context.Context, string, string) (*entity.User, error) {
				return &entity.User{ID: "user-1", Username: "alice"}, nil
			},
			establishFunc: func(context.Context, *entity.User, usecase.ClientMeta) (*entity.Session, error) {
				return nil, usecase.ErrStoreUnavailable
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(&mockAuthUsecase{LoginFunc: tt.loginFunc}, &mockSessionService{EstablishFunc: tt.establishFunc})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, postForm("/login", tt.form))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.Nil(t, findCookie(w, sessioncookie.Name))
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("revokes the session and clears the cookie", func(t *testing.T) {
		sessions := &mockSessionService{
			ResolveFunc: func(context.Context, string) (*entity.User, error) {
				return &entity.User{ID: "user-1", Username: "alice"}, nil
			},
		}
		router := setupRouter(&mockAuthUsecase{}, sessions)

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "tok:sess-1"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, []string{"sess-1"}, sessions.revoked)
		cookie := findCookie(w, sessioncookie.Name)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Less(t, cookie.MaxAge, 0)
	})

	t.Run("anonymous logout still redirects", func(t *testing.T) {
		sessions := &mockSessionService{}
		router := setupRouter(&mockAuthUsecase{}, sessions)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Empty(t, sessions.revoked)
		assert.NotNil(t, findCookie(w, sessioncookie.Name))
	})

	t.Run("revoke failure does not block logout", func(t *testing.T) {
		sessions := &mockSessionService{
			RevokeFunc: func(context.Context, string) error { return usecase.ErrStoreUnavailable },
		}
		router := setupRouter(&mockAuthUsecase{}, sessions)

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "tok:sess-1"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
	})
}

func TestAuthHandler_Reject(t *testing.T) {
	view := render.NewRenderer(false)
	h := NewAuthHandler(&mockAuthUsecase{}, &mockSessionService{}, fakeTokens{}, view, sessioncookie.Policy{})
	reject := func(c *gin.Context) {
		h.Reject(c, http.StatusForbidden, "Your form has expired.")
		c.Abort()
	}

	r := gin.New()
	r.SetHTMLTemplate(render.Templates())
	r.POST(RegisterPath, reject, h.Register)
	r.POST(LoginPath, reject, h.Login)
	r.POST("/other", reject, func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedBody   []string
	}{
		{"register form is re-rendered", RegisterPath, http.StatusForbidden, []string{`name="confirm_password"`, "Your form has expired.", `value="alice"`}},
		{"login form is re-rendered", LoginPath, http.StatusForbidden, []string{`name="password"`, "Your form has expired.", `value="alice"`}},
		{"other paths get a bare status", "/other", http.StatusForbidden, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postForm(tt.path, url.Values{"username": {"alice"}}))

			assert.Equal(t, tt.expectedStatus, w.Code)
			for _, want := range tt.expectedBody {
				assert.Contains(t, w.Body.String(), want)
			}
			if tt.expectedBody == nil {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}
