package dto

// LoginForm は POST /login のフォームを表します。
// 長さの制約は登録時のみで、ログインでは必須チェックだけを行います。
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}
