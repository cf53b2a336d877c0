package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"portal/internal/guard"
	"portal/internal/middleware"
	"portal/internal/service"
	"portal/internal/session"
)

type AuthHandler interface {
	LoginPage(c *gin.Context)
	Login(c *gin.Context)
	DevLogin(c *gin.Context)
	RegisterPage(c *gin.Context)
	Register(c *gin.Context)
	ResetPasswordPage(c *gin.Context)
	RequestPasswordReset(c *gin.Context)
	ConfirmPasswordReset(c *gin.Context)
	Logout(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	store       session.Store
	devLogin    bool
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, store session.Store, devLogin bool, log *logrus.Logger) AuthHandler {
	return &authHandler{authService: authService, store: store, devLogin: devLogin, log: log}
}

func (h *authHandler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, "", c.Query(middleware.NextParam), "")
}

func (h *authHandler) renderLogin(c *gin.Context, status int, email, next, errMsg string) {
	if !middleware.SafeNext(next) {
		next = ""
	}
	renderPage(c, status, pageLogin, "Login", gin.H{
		"Email":    email,
		"Next":     next,
		"DevLogin": h.devLogin,
		"Error":    errMsg,
	})
}

func (h *authHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderLogin(c, formStatus, form.Email, form.Next, msgAllRequired)
		return
	}

	sess, err := h.authService.Login(c.Request.Context(), toCredentials(form))
	if err != nil {
		h.log.Warnf("Login failed for %s: %v", form.Email, err)
		h.renderLogin(c, formStatus, form.Email, form.Next, service.UserMessage(err))
		return
	}
	h.startSession(c, sess, form.Next)
}

func (h *authHandler) DevLogin(c *gin.Context) {
	if !h.devLogin {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	var form devLoginForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderLogin(c, formStatus, "", form.Next, "Unknown development role.")
		return
	}

	sess, err := h.authService.DevLogin(form.Role)
	if err != nil {
		h.log.Errorf("Development login failed: %v", err)
		h.renderLogin(c, http.StatusInternalServerError, "", form.Next, service.UserMessage(err))
		return
	}
	h.startSession(c, sess, form.Next)
}

func (h *authHandler) startSession(c *gin.Context, sess *service.Session, next string) {
	if err := h.store.Set(c.Writer, sess.Token); err != nil {
		h.log.Errorf("Failed to store session: %v", err)
		h.renderLogin(c, http.StatusInternalServerError, "", next, "Login failed. Please try again.")
		return
	}

	target := sess.Landing
	if middleware.SafeNext(next) {
		target = next
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *authHandler) RegisterPage(c *gin.Context) {
	renderPage(c, http.StatusOK, pageRegister, "Register", gin.H{"Form": registerForm{}})
}

func (h *authHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderRegister(c, form, validationMessage(err, passwordMessages, msgAllRequired))
		return
	}

	if err := h.authService.Register(c.Request.Context(), toRegistration(form)); err != nil {
		h.log.Warnf("Registration failed for %s: %v", form.Email, err)
		h.renderRegister(c, form, service.UserMessage(err))
		return
	}
	c.Redirect(http.StatusSeeOther, guard.LoginPath+"?notice=registered")
}

func (h *authHandler) renderRegister(c *gin.Context, form registerForm, errMsg string) {
	form.Password, form.Confirm = "", ""
	renderPage(c, formStatus, pageRegister, "Register", gin.H{"Form": form, "Error": errMsg})
}

func (h *authHandler) ResetPasswordPage(c *gin.Context) {
	step := "request"
	if c.Query("step") == "confirm" {
		step = "confirm"
	}
	renderPage(c, http.StatusOK, pageResetPassword, "Reset password", gin.H{
		"Step":  step,
		"Email": c.Query("email"),
	})
}

func (h *authHandler) RequestPasswordReset(c *gin.Context) {
	var form resetRequestForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderReset(c, "request", form.Email, "Email is required.")
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), form.Email); err != nil {
		h.log.Warnf("Password reset request failed: %v", err)
		h.renderReset(c, "request", form.Email, service.UserMessage(err))
		return
	}

	q := url.Values{"step": {"confirm"}, "email": {form.Email}, "notice": {"reset_requested"}}
	c.Redirect(http.StatusSeeOther, "/reset-password?"+q.Encode())
}

func (h *authHandler) ConfirmPasswordReset(c *gin.Context) {
	var form resetConfirmForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderReset(c, "confirm", form.Email, validationMessage(err, passwordMessages, msgAllRequired))
		return
	}

	if err := h.authService.ConfirmPasswordReset(c.Request.Context(), toResetConfirm(form)); err != nil {
		h.log.Warnf("Password reset confirmation failed: %v", err)
		h.renderReset(c, "confirm", form.Email, service.UserMessage(err))
		return
	}
	c.Redirect(http.StatusSeeOther, guard.LoginPath+"?notice=password_reset")
}

func (h *authHandler) renderReset(c *gin.Context, step, email, errMsg string) {
	renderPage(c, formStatus, pageResetPassword, "Reset password", gin.H{
		"Step":  step,
		"Email": email,
		"Error": errMsg,
	})
}

// Logout drops the session cookie. It works with or without a session.
func (h *authHandler) Logout(c *gin.Context) {
	h.store.Clear(c.Writer)
	c.Redirect(http.StatusSeeOther, guard.LoginPath+"?notice=logged_out")
}
