package handler

import (
	"context"

	"portal/internal/models"
)

// Backend is the subset of the API client the pages call. Every method takes
// the session token of the current request.
type Backend interface {
	GetMe(ctx context.Context, token string) (*models.User, error)
	UpdateUser(ctx context.Context, token, id string, update models.UserUpdate) error
	UpdatePassword(ctx context.Context, token, id string, change models.PasswordChange) error
	ListUsers(ctx context.Context, token string) ([]models.User, error)
	DeleteUser(ctx context.Context, token, id string) error

	ListCourses(ctx context.Context, token string) ([]models.Course, error)
	GetCourse(ctx context.Context, token, id string) (*models.Course, error)
	CreateCourse(ctx context.Context, token string, course models.Course) (*models.Course, error)
	UpdateCourse(ctx context.Context, token string, course models.Course) error
	DeleteCourse(ctx context.Context, token, id string) error

	ListCourseModules(ctx context.Context, token, courseID string) ([]models.Module, error)
	ListModules(ctx context.Context, token string) ([]models.Module, error)
	CreateModule(ctx context.Context, token string, module models.Module) (*models.Module, error)
	DeleteModule(ctx context.Context, token, id string) error
}
