package handler

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"portal/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names.
const (
	pageLogin         = "login"
	pageRegister      = "register"
	pageResetPassword = "reset_password"
	pageDashboard     = "dashboard"
	pageCourses       = "courses"
	pageCourse        = "course"
	pageProfile       = "profile"
	pageAdmin         = "admin"
)

var pages = []string{
	pageLogin, pageRegister, pageResetPassword, pageDashboard,
	pageCourses, pageCourse, pageProfile, pageAdmin,
}

// Renderer is a gin HTML renderer holding one template set per page, each
// combining the shared layout with the page's content block.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.templates[name]
	if !ok {
		panic(fmt.Sprintf("handler: unknown page template %q", name))
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

// Messages shown after a post/redirect/get, keyed by the notice query parameter.
var notices = map[string]string{
	"registered":       "Registration successful! Please log in.",
	"password_reset":   "Password reset successful! Please log in.",
	"reset_requested":  "If your email exists, a reset link or code has been sent.",
	"logged_out":       "You have been logged out.",
	"profile_updated":  "Profile updated successfully.",
	"password_updated": "Password updated successfully.",
	"user_deleted":     "User deleted.",
	"course_created":   "Course created.",
	"course_updated":   "Course updated.",
	"course_deleted":   "Course deleted.",
	"module_created":   "Module created.",
	"module_deleted":   "Module deleted.",
}

// renderPage adds the fields every page expects to data and renders name.
// A notice from the query is dropped when the page shows an error.
func renderPage(c *gin.Context, status int, name, title string, data gin.H) {
	data["Title"] = title
	data["User"] = middleware.ClaimsFrom(c)
	if _, ok := data["Notice"]; !ok {
		if msg, _ := data["Error"].(string); msg == "" {
			data["Notice"] = notices[c.Query("notice")]
		}
	}
	c.HTML(status, name, data)
}

// formStatus is the status of a page re-rendered because a submitted form failed.
const formStatus = http.StatusUnprocessableEntity
