package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"portal/internal/api_client"
	"portal/internal/middleware"
)

// Admin panel tabs.
const (
	tabUsers   = "users"
	tabCourses = "courses"
	tabModules = "modules"
)

type AdminHandler interface {
	Panel(c *gin.Context)
	DeleteUser(c *gin.Context)
	CreateCourse(c *gin.Context)
	SetCoursePublished(c *gin.Context)
	DeleteCourse(c *gin.Context)
	CreateModule(c *gin.Context)
	DeleteModule(c *gin.Context)
}

type adminHandler struct {
	backend Backend
	log     *logrus.Logger
}

func NewAdminHandler(backend Backend, log *logrus.Logger) AdminHandler {
	return &adminHandler{backend: backend, log: log}
}

// panelView is the state of one admin panel render.
type panelView struct {
	tab        string
	course     string
	status     int
	err        string
	courseForm courseForm
	moduleForm moduleForm
}

func (h *adminHandler) Panel(c *gin.Context) {
	tab := c.DefaultQuery("tab", tabUsers)
	switch tab {
	case tabUsers, tabCourses, tabModules:
	default:
		tab = tabUsers
	}
	h.render(c, panelView{tab: tab, course: c.Query("course"), status: http.StatusOK})
}

// render loads the data of the active tab and renders the panel. A failed
// load is shown inline unless an earlier error is already being shown.
func (h *adminHandler) render(c *gin.Context, v panelView) {
	ctx := c.Request.Context()
	token := middleware.TokenFrom(c)
	data := gin.H{
		"Tab":            v.tab,
		"SelectedCourse": v.course,
		"CourseForm":     v.courseForm,
		"ModuleForm":     v.moduleForm,
		"Error":          v.err,
	}
	fail := func(what string, err error) {
		h.log.Warnf("Failed to load %s for admin panel: %v", what, err)
		if v.err == "" {
			v.err = api_client.UserMessage(err)
			data["Error"] = v.err
		}
	}

	switch v.tab {
	case tabUsers:
		users, err := h.backend.ListUsers(ctx, token)
		if err != nil {
			fail("users", err)
		}
		data["Users"] = users
	case tabCourses, tabModules:
		courses, err := h.backend.ListCourses(ctx, token)
		if err != nil {
			fail("courses", err)
		}
		data["Courses"] = courses
	}

	if v.tab == tabModules {
		var err error
		if v.course != "" {
			modules, lerr := h.backend.ListCourseModules(ctx, token, v.course)
			err = lerr
			sortModules(modules)
			data["Modules"] = modules
		} else {
			modules, lerr := h.backend.ListModules(ctx, token)
			err = lerr
			data["Modules"] = modules
		}
		if err != nil {
			fail("modules", err)
		}
	}

	renderPage(c, v.status, pageAdmin, "Admin Panel", data)
}

func redirectToTab(c *gin.Context, tab, course, notice string) {
	q := url.Values{"tab": {tab}, "notice": {notice}}
	if course != "" {
		q.Set("course", course)
	}
	c.Redirect(http.StatusSeeOther, "/admin?"+q.Encode())
}

func (h *adminHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.backend.DeleteUser(c.Request.Context(), middleware.TokenFrom(c), id); err != nil {
		h.log.Warnf("Failed to delete user %s: %v", id, err)
		h.render(c, panelView{tab: tabUsers, status: formStatus, err: api_client.UserMessage(err)})
		return
	}
	h.log.Infof("User %s deleted", id)
	redirectToTab(c, tabUsers, "", "user_deleted")
}

func (h *adminHandler) CreateCourse(c *gin.Context) {
	var form courseForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.render(c, panelView{tab: tabCourses, status: formStatus, courseForm: form,
			err: validationMessage(err, courseMessages, "Title is required.")})
		return
	}

	created, err := h.backend.CreateCourse(c.Request.Context(), middleware.TokenFrom(c), toCourse(form))
	if err != nil {
		h.log.Warnf("Failed to create course: %v", err)
		h.render(c, panelView{tab: tabCourses, status: formStatus, courseForm: form, err: api_client.UserMessage(err)})
		return
	}
	h.log.Infof("Course %s created", created.ID)
	redirectToTab(c, tabCourses, "", "course_created")
}

// SetCoursePublished publishes or unpublishes a course, keeping its other fields.
func (h *adminHandler) SetCoursePublished(c *gin.Context) {
	ctx := c.Request.Context()
	token := middleware.TokenFrom(c)
	id := c.Param("id")

	var form publishForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.render(c, panelView{tab: tabCourses, status: formStatus, err: "Invalid publish state."})
		return
	}

	course, err := h.backend.GetCourse(ctx, token, id)
	if err == nil {
		course.Published = form.Published
		err = h.backend.UpdateCourse(ctx, token, *course)
	}
	if err != nil {
		h.log.Warnf("Failed to update course %s: %v", id, err)
		h.render(c, panelView{tab: tabCourses, status: formStatus, err: api_client.UserMessage(err)})
		return
	}
	redirectToTab(c, tabCourses, "", "course_updated")
}

func (h *adminHandler) DeleteCourse(c *gin.Context) {
	id := c.Param("id")
	if err := h.backend.DeleteCourse(c.Request.Context(), middleware.TokenFrom(c), id); err != nil {
		h.log.Warnf("Failed to delete course %s: %v", id, err)
		h.render(c, panelView{tab: tabCourses, status: formStatus, err: api_client.UserMessage(err)})
		return
	}
	h.log.Infof("Course %s deleted", id)
	redirectToTab(c, tabCourses, "", "course_deleted")
}

func (h *adminHandler) CreateModule(c *gin.Context) {
	var form moduleForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.render(c, panelView{tab: tabModules, course: form.CourseID, status: formStatus, moduleForm: form,
			err: validationMessage(err, moduleMessages, "Title and content type are required.")})
		return
	}

	created, err := h.backend.CreateModule(c.Request.Context(), middleware.TokenFrom(c), toModule(form))
	if err != nil {
		h.log.Warnf("Failed to create module: %v", err)
		h.render(c, panelView{tab: tabModules, course: form.CourseID, status: formStatus, moduleForm: form, err: api_client.UserMessage(err)})
		return
	}
	h.log.Infof("Module %s created in course %s", created.ID, form.CourseID)
	redirectToTab(c, tabModules, form.CourseID, "module_created")
}

func (h *adminHandler) DeleteModule(c *gin.Context) {
	id := c.Param("id")
	course := c.PostForm("course")
	if err := h.backend.DeleteModule(c.Request.Context(), middleware.TokenFrom(c), id); err != nil {
		h.log.Warnf("Failed to delete module %s: %v", id, err)
		h.render(c, panelView{tab: tabModules, course: course, status: formStatus, err: api_client.UserMessage(err)})
		return
	}
	h.log.Infof("Module %s deleted", id)
	redirectToTab(c, tabModules, course, "module_deleted")
}
