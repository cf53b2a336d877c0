package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"portal/internal/api_client"
	"portal/internal/middleware"
	"portal/internal/models"
)

// PortalHandler serves the pages every signed-in user can open.
type PortalHandler interface {
	Dashboard(c *gin.Context)
	Courses(c *gin.Context)
	Course(c *gin.Context)
	Profile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	UpdatePassword(c *gin.Context)
}

type portalHandler struct {
	backend Backend
	log     *logrus.Logger
}

func NewPortalHandler(backend Backend, log *logrus.Logger) PortalHandler {
	return &portalHandler{backend: backend, log: log}
}

func (h *portalHandler) Dashboard(c *gin.Context) {
	renderPage(c, http.StatusOK, pageDashboard, "Dashboard", gin.H{})
}

func (h *portalHandler) Courses(c *gin.Context) {
	data := gin.H{}
	courses, err := h.backend.ListCourses(c.Request.Context(), middleware.TokenFrom(c))
	if err != nil {
		h.log.Warnf("Failed to list courses: %v", err)
		data["Error"] = api_client.UserMessage(err)
	}
	data["Courses"] = courses
	renderPage(c, http.StatusOK, pageCourses, "Courses", data)
}

func (h *portalHandler) Course(c *gin.Context) {
	ctx := c.Request.Context()
	token := middleware.TokenFrom(c)
	id := c.Param("id")

	data := gin.H{}
	course, err := h.backend.GetCourse(ctx, token, id)
	if err != nil {
		h.log.Warnf("Failed to get course %s: %v", id, err)
		data["Error"] = api_client.UserMessage(err)
		renderPage(c, http.StatusOK, pageCourse, "Course", data)
		return
	}
	data["Course"] = course

	modules, err := h.backend.ListCourseModules(ctx, token, id)
	if err != nil {
		h.log.Warnf("Failed to list modules of course %s: %v", id, err)
		data["Error"] = api_client.UserMessage(err)
	}
	sortModules(modules)
	data["Modules"] = modules
	renderPage(c, http.StatusOK, pageCourse, course.Title, data)
}

func sortModules(modules []models.Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].OrderIndex < modules[j].OrderIndex
	})
}

func (h *portalHandler) Profile(c *gin.Context) {
	h.renderProfile(c, http.StatusOK, nil, "", "")
}

// renderProfile refetches the profile. form, when set, keeps the values the
// user submitted in the edit form.
func (h *portalHandler) renderProfile(c *gin.Context, status int, form *profileForm, errMsg, pwErrMsg string) {
	data := gin.H{"Error": errMsg, "PasswordError": pwErrMsg}

	me, err := h.backend.GetMe(c.Request.Context(), middleware.TokenFrom(c))
	if err != nil {
		h.log.Warnf("Failed to load profile: %v", err)
		if errMsg == "" {
			data["Error"] = api_client.UserMessage(err)
		}
		renderPage(c, status, pageProfile, "Profile", data)
		return
	}

	edit := form != nil || c.Query("edit") != ""
	if form == nil {
		form = &profileForm{Name: me.Name, Email: me.Email}
	}
	data["Profile"] = me
	data["Edit"] = edit
	data["Form"] = form
	renderPage(c, status, pageProfile, "Profile", data)
}

// accountID returns the id used in /user/{id} paths for the current session.
func (h *portalHandler) accountID(c *gin.Context) (string, error) {
	if cl := middleware.ClaimsFrom(c); cl != nil && cl.AccountID() != "" {
		return cl.AccountID(), nil
	}
	me, err := h.backend.GetMe(c.Request.Context(), middleware.TokenFrom(c))
	if err != nil {
		return "", err
	}
	return me.ID, nil
}

func (h *portalHandler) UpdateProfile(c *gin.Context) {
	var form profileForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.renderProfile(c, formStatus, &form, msgAllRequired, "")
		return
	}

	id, err := h.accountID(c)
	if err == nil {
		err = h.backend.UpdateUser(c.Request.Context(), middleware.TokenFrom(c), id, toUserUpdate(form))
	}
	if err != nil {
		h.log.Warnf("Failed to update profile: %v", err)
		h.renderProfile(c, formStatus, &form, api_client.UserMessage(err), "")
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile?notice=profile_updated")
}

func (h *portalHandler) UpdatePassword(c *gin.Context) {
	var form passwordForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		msg := validationMessage(err, formMessages{"required": msgAllRequired, "eqfield": "New passwords do not match."}, msgAllRequired)
		h.renderProfile(c, formStatus, nil, "", msg)
		return
	}

	id, err := h.accountID(c)
	if err == nil {
		err = h.backend.UpdatePassword(c.Request.Context(), middleware.TokenFrom(c), id, toPasswordChange(form))
	}
	if err != nil {
		h.log.Warnf("Failed to update password: %v", err)
		h.renderProfile(c, formStatus, nil, "", api_client.UserMessage(err))
		return
	}
	c.Redirect(http.StatusSeeOther, "/profile?notice=password_updated")
}
