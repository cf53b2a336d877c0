package api_client

import (
	"context"
	"net/http"
	"net/url"

	"portal/internal/models"
)

func (c *Client) ListCourses(ctx context.Context, token string) ([]models.Course, error) {
	var courses []models.Course
	if err := c.do(ctx, OpListCourses, http.MethodGet, "/courses", token, nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) GetCourse(ctx context.Context, token, id string) (*models.Course, error) {
	var course models.Course
	if err := c.do(ctx, OpGetCourse, http.MethodGet, "/course/"+url.PathEscape(id), token, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse returns the course as stored by the backend.
func (c *Client) CreateCourse(ctx context.Context, token string, course models.Course) (*models.Course, error) {
	var created models.Course
	if err := c.do(ctx, OpCreateCourse, http.MethodPost, "/courses", token, course, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateCourse(ctx context.Context, token string, course models.Course) error {
	return c.do(ctx, OpUpdateCourse, http.MethodPut, "/course/"+url.PathEscape(course.ID), token, course, nil)
}

func (c *Client) DeleteCourse(ctx context.Context, token, id string) error {
	return c.do(ctx, OpDeleteCourse, http.MethodDelete, "/course/"+url.PathEscape(id), token, nil, nil)
}

// ListCourseModules returns the modules of one course in backend order.
func (c *Client) ListCourseModules(ctx context.Context, token, courseID string) ([]models.Module, error) {
	var modules []models.Module
	if err := c.do(ctx, OpListCourseModules, http.MethodGet, "/course/"+url.PathEscape(courseID)+"/modules", token, nil, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

func (c *Client) ListModules(ctx context.Context, token string) ([]models.Module, error) {
	var modules []models.Module
	if err := c.do(ctx, OpListModules, http.MethodGet, "/modules", token, nil, &modules); err != nil {
		return nil, err
	}
	return modules, nil
}

func (c *Client) CreateModule(ctx context.Context, token string, module models.Module) (*models.Module, error) {
	var created models.Module
	if err := c.do(ctx, OpCreateModule, http.MethodPost, "/modules", token, module, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteModule(ctx context.Context, token, id string) error {
	return c.do(ctx, OpDeleteModule, http.MethodDelete, "/module/"+url.PathEscape(id), token, nil, nil)
}
