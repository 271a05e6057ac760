// Package handler はアカウントページのHTTPハンドラーを提供します。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "portal_backend/internal/feature/auth/transport/handler"
)

// AccountHandler はログイン中ユーザーのプロフィールを表示します。
// ルーターでLoginRequiredの後ろに登録します。
type AccountHandler struct {
	view authhandler.Renderer
}

// NewAccountHandler はAccountHandlerの新しいインスタンスを生成します。
func NewAccountHandler(view authhandler.Renderer) *AccountHandler {
	return &AccountHandler{view: view}
}

// Show はアカウントページを表示します。
func (h *AccountHandler) Show(c *gin.Context) {
	user := authhandler.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, authhandler.LoginPath)
		return
	}
	h.view.HTML(c, http.StatusOK, "account.tmpl", gin.H{
		"Title": "Account",
		"User":  user,
	})
}
