package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portal/internal/claims"
	"portal/internal/guard"
	"portal/internal/session"
)

// Context keys set on guarded requests.
const (
	claimsKey = "claims"
	tokenKey  = "token"
)

// NextParam carries the originally requested path through the login page.
const NextParam = "next"

// RequireSession guards a page group. Requests the guard does not allow are
// redirected with 303 and never reach the handlers.
func RequireSession(store session.Store, g *guard.Guard, access guard.Access, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := store.Get(c.Request)
		d := g.Check(token, present, access)

		logger.Debug("Guard decision",
			zap.String("path", c.Request.URL.Path),
			zap.Stringer("access", access),
			zap.String("outcome", string(d.Outcome)))

		if d.ClearSession {
			store.Clear(c.Writer)
		}
		if !d.Allowed() {
			c.Redirect(http.StatusSeeOther, redirectTarget(d.Redirect, c.Request))
			c.Abort()
			return
		}

		c.Set(claimsKey, d.Claims)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// CatchAll sends unmatched routes to the landing page of the current session.
func CatchAll(store session.Store, g *guard.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present := store.Get(c.Request)
		d := g.Landing(token, present)
		if d.ClearSession {
			store.Clear(c.Writer)
		}
		c.Redirect(http.StatusSeeOther, d.Redirect)
	}
}

// ClaimsFrom returns the claims RequireSession stored on c.
func ClaimsFrom(c *gin.Context) *claims.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	cl, _ := v.(*claims.Claims)
	return cl
}

// TokenFrom returns the session token RequireSession stored on c.
func TokenFrom(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func redirectTarget(target string, r *http.Request) string {
	if target != guard.LoginPath || r.Method != http.MethodGet {
		return target
	}
	next := r.URL.RequestURI()
	if !SafeNext(next) {
		return target
	}
	return target + "?" + url.Values{NextParam: {next}}.Encode()
}

// SafeNext reports whether next is a local absolute path the login page may
// return to. Scheme-relative and backslash forms are refused.
func SafeNext(next string) bool {
	if next == "" || next[0] != '/' {
		return false
	}
	if strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return false
	}
	return u.Path != guard.LoginPath
}
