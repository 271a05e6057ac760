// Package handler はトップページのHTTPハンドラーを提供します。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "portal_backend/internal/feature/auth/transport/handler"
)

// HomeHandler はランディングページを表示します。
type HomeHandler struct {
	view authhandler.Renderer
}

// NewHomeHandler はHomeHandlerの新しいインスタンスを生成します。
func NewHomeHandler(view authhandler.Renderer) *HomeHandler {
	return &HomeHandler{view: view}
}

// Index はログイン中なら挨拶を、匿名ならログインへのリンクを表示します。
func (h *HomeHandler) Index(c *gin.Context) {
	h.view.HTML(c, http.StatusOK, "index.tmpl", gin.H{
		"Title": "Home",
		"User":  authhandler.CurrentUser(c),
	})
}
