// Package render loads the embedded HTML templates and renders pages with the
// per-request values every page needs (CSRF token, pending flash notice).
package render

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"

	"portal_backend/internal/platform/http/csrf"
	"portal_backend/internal/platform/http/flash"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

// Renderer writes HTML pages. secureCookies controls the flash cookie flag.
type Renderer struct {
	secureCookies bool
}

// NewRenderer creates a Renderer.
func NewRenderer(secureCookies bool) *Renderer {
	return &Renderer{secureCookies: secureCookies}
}

// HTML renders the named template with data plus CSRFToken and Flash.
// A pending flash notice is consumed by this render.
func (r *Renderer) HTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CSRFToken"] = csrf.Token(c)
	if notice, ok := flash.ReadAndClear(c.Writer, c.Request, r.secureCookies); ok {
		data["Flash"] = notice
	}
	c.HTML(status, name, data)
}

// Flash stores a notice for the next rendered page.
func (r *Renderer) Flash(c *gin.Context, notice flash.Notice) {
	flash.Write(c.Writer, notice, r.secureCookies)
}
