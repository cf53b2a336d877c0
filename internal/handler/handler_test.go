package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portal/internal/api_client"
	"portal/internal/claims"
	"portal/internal/guard"
	"portal/internal/middleware"
	"portal/internal/service"
	"portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend is a REST backend that records every request it receives.
type fakeBackend struct {
	t        *testing.T
	mu       sync.Mutex
	requests []string
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func (b *fakeBackend) on(method, path string, status int, body any) {
	b.routes[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			require.NoError(b.t, json.NewEncoder(w).Encode(body))
		}
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.requests = append(b.requests, key)
	b.mu.Unlock()
	if h, ok := b.routes[key]; ok {
		h(w, r)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (b *fakeBackend) seen(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.requests {
		if r == key {
			return true
		}
	}
	return false
}

type testPortal struct {
	engine  *gin.Engine
	backend *fakeBackend
}

func newTestPortal(t *testing.T, devLogin bool) *testPortal {
	t.Helper()
	backend := &fakeBackend{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return newTestPortalWithURL(t, srv.URL, backend, devLogin)
}

func newTestPortalWithURL(t *testing.T, baseURL string, backend *fakeBackend, devLogin bool) *testPortal {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	client := api_client.NewClient(api_client.Options{BaseURL: baseURL, PathPrefix: "/api", Timeout: 5 * time.Second}, zap.NewNop(), nil)
	store, err := session.NewCookieStore(session.Options{Name: "token", MaxAge: time.Hour})
	require.NoError(t, err)
	renderer, err := NewRenderer()
	require.NoError(t, err)
	g := guard.New(nil)

	auth := NewAuthHandler(service.NewAuthService(client, devLogin, zap.NewNop()), store, devLogin, log)
	portal := NewPortalHandler(client, log)
	admin := NewAdminHandler(client, log)

	r := gin.New()
	r.HTMLRender = renderer
	r.GET("/login", auth.LoginPage)
	r.POST("/login", auth.Login)
	r.POST("/login/dev", auth.DevLogin)
	r.GET("/register", auth.RegisterPage)
	r.POST("/register", auth.Register)
	r.GET("/reset-password", auth.ResetPasswordPage)
	r.POST("/reset-password/request", auth.RequestPasswordReset)
	r.POST("/reset-password/confirm", auth.ConfirmPasswordReset)
	r.POST("/logout", auth.Logout)

	member := r.Group("/", middleware.RequireSession(store, g, guard.Member, zap.NewNop()))
	member.GET("/dashboard", portal.Dashboard)
	member.GET("/courses", portal.Courses)
	member.GET("/course/:id", portal.Course)
	member.GET("/profile", portal.Profile)
	member.POST("/profile", portal.UpdateProfile)
	member.POST("/profile/password", portal.UpdatePassword)

	elevated := r.Group("/admin", middleware.RequireSession(store, g, guard.Elevated, zap.NewNop()))
	elevated.GET("", admin.Panel)
	elevated.POST("/users/:id/delete", admin.DeleteUser)
	elevated.POST("/courses", admin.CreateCourse)
	elevated.POST("/courses/:id/publish", admin.SetCoursePublished)
	elevated.POST("/courses/:id/delete", admin.DeleteCourse)
	elevated.POST("/modules", admin.CreateModule)
	elevated.POST("/modules/:id/delete", admin.DeleteModule)

	return &testPortal{engine: r, backend: backend}
}

func token(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	c := claims.New(role, ttl, time.Now())
	c.UserID = "u1"
	tok, err := claims.Mint(c)
	require.NoError(t, err)
	return tok
}

func (p *testPortal) do(method, path, tok string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if tok != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: tok})
	}
	rec := httptest.NewRecorder()
	p.engine.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestCreateCourseEmptyTitleSendsNoRequest(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodGet, "/api/courses", http.StatusOK, []map[string]any{{"id": "c1", "title": "Existing"}})

	rec := p.do(http.MethodPost, "/admin/courses", token(t, "admin", time.Hour), url.Values{"title": {""}, "category": {"ops"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required.")
	assert.Contains(t, rec.Body.String(), `value="ops"`)
	assert.False(t, p.backend.seen("POST /api/courses"))
}

func TestCreateCourseRedirects(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodPost, "/api/courses", http.StatusCreated, map[string]any{"id": "c9", "title": "Go"})

	rec := p.do(http.MethodPost, "/admin/courses", token(t, "admin", time.Hour), url.Values{"title": {"Go"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin?notice=course_created&tab=courses", rec.Header().Get("Location"))
}

func TestDeleteUserForbiddenKeepsRow(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodDelete, "/api/user/u2", http.StatusForbidden, map[string]string{"error": "forbidden"})
	p.backend.on(http.MethodGet, "/api/users", http.StatusOK, []map[string]any{
		{"id": "u1", "name": "Ann", "email": "ann@x.io", "role": "admin"},
		{"id": "u2", "name": "Bob", "email": "bob@x.io", "role": "user"},
	})

	rec := p.do(http.MethodPost, "/admin/users/u2/delete", token(t, "admin", time.Hour), url.Values{})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), ">forbidden<")
	assert.Contains(t, rec.Body.String(), `data-user="u2"`)
}

func TestDeleteUserFallbackMessage(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodDelete, "/api/user/u2", http.StatusInternalServerError, nil)
	p.backend.on(http.MethodGet, "/api/users", http.StatusOK, []map[string]any{})

	rec := p.do(http.MethodPost, "/admin/users/u2/delete", token(t, "admin", time.Hour), url.Values{})

	assert.Contains(t, rec.Body.String(), "Failed to delete user.")
}

func TestUserCannotOpenAdmin(t *testing.T) {
	p := newTestPortal(t, false)
	tok := token(t, "user", 24*time.Hour)

	rec := p.do(http.MethodGet, "/admin", tok, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = p.do(http.MethodGet, "/dashboard", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the Training Portal!")
	assert.NotContains(t, rec.Body.String(), `href="/admin"`)
}

func TestExpiredAdminIsLoggedOut(t *testing.T) {
	p := newTestPortal(t, false)
	tok := token(t, "admin", -10*time.Second)

	for _, path := range []string{"/dashboard", "/courses", "/profile", "/admin"} {
		rec := p.do(http.MethodGet, path, tok, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login"), path)
		cookie := sessionCookie(rec)
		require.NotNil(t, cookie, path)
		assert.Negative(t, cookie.MaxAge, path)
	}
	assert.Empty(t, p.backend.requests)
}

func TestLoginStoresTokenAndRedirects(t *testing.T) {
	adminToken := token(t, "admin", time.Hour)
	tests := []struct {
		name     string
		next     string
		location string
	}{
		{"landing", "", "/admin"},
		{"next", "/courses", "/courses"},
		{"foreign next", "//evil.example", "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortal(t, false)
			p.backend.on(http.MethodPost, "/api/login", http.StatusOK, map[string]string{"token": adminToken})

			rec := p.do(http.MethodPost, "/login", "", url.Values{"email": {"a@x.io"}, "password": {"pw"}, "next": {tt.next}})

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
			cookie := sessionCookie(rec)
			require.NotNil(t, cookie)
			assert.Equal(t, adminToken, cookie.Value)
			assert.True(t, cookie.HttpOnly)
		})
	}
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodPost, "/api/login", http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})

	rec := p.do(http.MethodPost, "/login", "", url.Values{"email": {"a@x.io"}, "password": {"bad"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
	assert.Nil(t, sessionCookie(rec))
}

func TestLoginMissingFieldsSendsNoRequest(t *testing.T) {
	p := newTestPortal(t, false)

	rec := p.do(http.MethodPost, "/login", "", url.Values{"email": {"a@x.io"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), msgAllRequired)
	assert.Empty(t, p.backend.requests)
}

func TestDevLogin(t *testing.T) {
	disabled := newTestPortal(t, false)
	rec := disabled.do(http.MethodPost, "/login/dev", "", url.Values{"role": {"admin"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	enabled := newTestPortal(t, true)
	rec = enabled.do(http.MethodGet, "/login", "", nil)
	assert.Contains(t, rec.Body.String(), "Log in as admin")

	rec = enabled.do(http.MethodPost, "/login/dev", "", url.Values{"role": {"user"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	c, err := claims.Decode(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user", c.Role)

	rec = enabled.do(http.MethodPost, "/login/dev", "", url.Values{"role": {"root"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestLogoutIsRepeatable(t *testing.T) {
	p := newTestPortal(t, false)
	tok := token(t, "user", time.Hour)

	for i := 0; i < 2; i++ {
		rec := p.do(http.MethodPost, "/logout", tok, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?notice=logged_out", rec.Header().Get("Location"))
		cookie := sessionCookie(rec)
		require.NotNil(t, cookie)
		assert.Negative(t, cookie.MaxAge)
		tok = ""
	}
}

func TestRegisterValidation(t *testing.T) {
	p := newTestPortal(t, false)

	rec := p.do(http.MethodPost, "/register", "", url.Values{
		"name": {"Ann"}, "email": {"ann@x.io"}, "password": {"one"}, "confirm": {"two"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), msgPasswordMismatch)
	assert.Contains(t, rec.Body.String(), `value="Ann"`)

	rec = p.do(http.MethodPost, "/register", "", url.Values{"name": {"Ann"}})
	assert.Contains(t, rec.Body.String(), msgAllRequired)
	assert.Empty(t, p.backend.requests)
}

func TestRegisterRedirectsToLogin(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodPost, "/api/register", http.StatusCreated, map[string]any{"id": "u7", "name": "Ann"})

	rec := p.do(http.MethodPost, "/register", "", url.Values{
		"name": {"Ann"}, "email": {"ann@x.io"}, "password": {"pw"}, "confirm": {"pw"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?notice=registered", rec.Header().Get("Location"))

	rec = p.do(http.MethodGet, "/login?notice=registered", "", nil)
	assert.Contains(t, rec.Body.String(), "Registration successful!")
}

func TestPasswordResetFlow(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodPost, "/api/password-reset/request", http.StatusOK, nil)
	p.backend.on(http.MethodPost, "/api/password-reset/confirm", http.StatusBadRequest, map[string]string{"error": "code expired"})

	rec := p.do(http.MethodPost, "/reset-password/request", "", url.Values{"email": {"ann@x.io"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "step=confirm")

	rec = p.do(http.MethodGet, location, "", nil)
	assert.Contains(t, rec.Body.String(), `name="token"`)
	assert.Contains(t, rec.Body.String(), "a reset link or code has been sent")

	rec = p.do(http.MethodPost, "/reset-password/confirm", "", url.Values{
		"email": {"ann@x.io"}, "token": {"123"}, "newPassword": {"a"}, "confirm": {"b"},
	})
	assert.Contains(t, rec.Body.String(), msgPasswordMismatch)
	assert.False(t, p.backend.seen("POST /api/password-reset/confirm"))

	rec = p.do(http.MethodPost, "/reset-password/confirm", "", url.Values{
		"email": {"ann@x.io"}, "token": {"123"}, "newPassword": {"a"}, "confirm": {"a"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "code expired")
}

func TestCoursesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()
	p := newTestPortalWithURL(t, deadURL, &fakeBackend{t: t}, false)

	rec := p.do(http.MethodGet, "/courses", token(t, "user", time.Hour), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load courses. Please try again.")
}

func TestCourseDetailOrdersModules(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodGet, "/api/course/c1", http.StatusOK, map[string]any{"id": "c1", "title": "Go Basics", "published": true})
	p.backend.on(http.MethodGet, "/api/course/c1/modules", http.StatusOK, []map[string]any{
		{"id": "m2", "title": "Second", "orderIndex": 2},
		{"id": "m1", "title": "First", "orderIndex": 1},
	})

	rec := p.do(http.MethodGet, "/course/c1", token(t, "user", time.Hour), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Go Basics")
	assert.Contains(t, body, "Published")
	assert.Less(t, strings.Index(body, "First"), strings.Index(body, "Second"))
}

func TestProfileUpdateUsesTokenUserID(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodPut, "/api/user/u1", http.StatusOK, nil)

	rec := p.do(http.MethodPost, "/profile", token(t, "user", time.Hour), url.Values{"name": {"Ann"}, "email": {"ann@x.io"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile?notice=profile_updated", rec.Header().Get("Location"))
	assert.True(t, p.backend.seen("PUT /api/user/u1"))
	assert.False(t, p.backend.seen("GET /api/user/me"))
}

func TestPasswordChangeMismatch(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodGet, "/api/user/me", http.StatusOK, map[string]any{"id": "u1", "name": "Ann"})

	rec := p.do(http.MethodPost, "/profile/password", token(t, "user", time.Hour), url.Values{
		"oldPassword": {"old"}, "newPassword": {"a"}, "confirm": {"b"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "New passwords do not match.")
	assert.False(t, p.backend.seen("PUT /api/user/u1/password"))
}

func TestCreateModuleRequiresCourse(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodGet, "/api/courses", http.StatusOK, []map[string]any{})
	p.backend.on(http.MethodGet, "/api/modules", http.StatusOK, []map[string]any{})

	rec := p.do(http.MethodPost, "/admin/modules", token(t, "admin", time.Hour), url.Values{"title": {"Intro"}, "contentType": {"video"}})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Select a course first.")
	assert.False(t, p.backend.seen("POST /api/modules"))
}

func TestAdminModulesTab(t *testing.T) {
	p := newTestPortal(t, false)
	p.backend.on(http.MethodGet, "/api/courses", http.StatusOK, []map[string]any{{"id": "c1", "title": "Go"}})
	p.backend.on(http.MethodGet, "/api/course/c1/modules", http.StatusOK, []map[string]any{{"id": "m1", "title": "Intro", "contentType": "video"}})
	p.backend.on(http.MethodPost, "/api/modules", http.StatusCreated, map[string]any{"id": "m2"})

	rec := p.do(http.MethodGet, "/admin?tab=modules&course=c1", token(t, "admin", time.Hour), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-module="m1"`)

	rec = p.do(http.MethodPost, "/admin/modules", token(t, "admin", time.Hour), url.Values{
		"course": {"c1"}, "title": {"Next"}, "contentType": {"pdf"}, "orderIndex": {"2"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin?course=c1&notice=module_created&tab=modules", rec.Header().Get("Location"))
}

func TestSubmitGuardSkipsCancelledForms(t *testing.T) {
	p := newTestPortal(t, false)

	rec := p.do(http.MethodGet, "/login", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	guard := strings.Index(body, "if (e.defaultPrevented) return;")
	disable := strings.Index(body, "b.disabled = true")
	require.NotEqual(t, -1, guard, "cancelled submissions must leave buttons enabled")
	require.NotEqual(t, -1, disable)
	assert.Less(t, guard, disable)
}
