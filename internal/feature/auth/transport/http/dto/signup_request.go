// Package dto defines the form objects for the auth feature's HTML transport layer.
package dto

// RegisterForm is the body of POST /register.
// Field rules are gin binding tags evaluated by go-playground/validator.
// String lengths are counted in runes; maxbytes counts bytes.
type RegisterForm struct {
	Username        string `form:"username" binding:"required,min=4,max=25"`
	Password        string `form:"password" binding:"required,min=6,maxbytes=72"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}
