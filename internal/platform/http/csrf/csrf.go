// Package csrf implements double-submit cookie protection for HTML forms.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName holds the per-client token.
	CookieName = "portal_csrf"
	// FieldName is the hidden form field carrying the token.
	FieldName = "csrf_token"
	// HeaderName may carry the token instead of the form field.
	HeaderName = "X-CSRF-Token"

	contextKey = "csrfToken"
	tokenBytes = 32
)

// RejectFunc writes the response for a request that failed the token check.
// The middleware aborts the chain after it returns.
type RejectFunc func(c *gin.Context, status int, message string)

// RejectMessage is passed to RejectFunc when the submitted token is missing or wrong.
const RejectMessage = "Your form has expired. Please submit it again."

// Protect issues a token cookie when missing and rejects unsafe requests
// whose submitted token does not match the cookie. A nil reject answers
// with a bare 403.
func Protect(secure bool, reject RejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Request.Cookie(CookieName); err == nil && len(cookie.Value) == tokenBytes*2 {
			token = cookie.Value
		}

		if !isSafeMethod(c.Request.Method) {
			submitted := c.PostForm(FieldName)
			if submitted == "" {
				submitted = c.GetHeader(HeaderName)
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				slog.Warn("csrf token mismatch", "path", c.FullPath(), "remote_addr", c.ClientIP())
				if reject == nil {
					c.AbortWithStatus(http.StatusForbidden)
					return
				}
				// the re-rendered form needs a usable token
				if token == "" {
					if !issue(c, secure) {
						return
					}
				} else {
					c.Set(contextKey, token)
				}
				reject(c, http.StatusForbidden, RejectMessage)
				c.Abort()
				return
			}
		}

		if token == "" {
			if !issue(c, secure) {
				return
			}
		} else {
			c.Set(contextKey, token)
		}
		c.Next()
	}
}

// issue sets a fresh token cookie and stores the token on the context.
func issue(c *gin.Context, secure bool) bool {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return false
	}
	token := hex.EncodeToString(b)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(contextKey, token)
	return true
}

// Token returns the token for embedding in a form, or "" outside Protect.
func Token(c *gin.Context) string {
	return c.GetString(contextKey)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
