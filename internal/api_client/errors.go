package api_client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// NetworkFailure means the request never completed.
	NetworkFailure Kind = iota + 1
	// BackendError means the backend answered with a non-2xx status or an
	// unreadable body.
	BackendError
)

func (k Kind) String() string {
	switch k {
	case NetworkFailure:
		return "network_failure"
	case BackendError:
		return "backend_error"
	default:
		return "unknown"
	}
}

// Op names a backend operation.
type Op string

const (
	OpLogin                Op = "login"
	OpRegister             Op = "register"
	OpRequestPasswordReset Op = "request_password_reset"
	OpConfirmPasswordReset Op = "confirm_password_reset"
	OpListUsers            Op = "list_users"
	OpGetUser              Op = "get_user"
	OpGetMe                Op = "get_me"
	OpUpdateUser           Op = "update_user"
	OpUpdatePassword       Op = "update_password"
	OpDeleteUser           Op = "delete_user"
	OpListCourses          Op = "list_courses"
	OpGetCourse            Op = "get_course"
	OpCreateCourse         Op = "create_course"
	OpUpdateCourse         Op = "update_course"
	OpDeleteCourse         Op = "delete_course"
	OpListCourseModules    Op = "list_course_modules"
	OpListModules          Op = "list_modules"
	OpCreateModule         Op = "create_module"
	OpDeleteModule         Op = "delete_module"
)

// GenericMessage is shown when neither the backend nor the operation offer
// anything better.
const GenericMessage = "Something went wrong. Please try again."

var fallbackMessages = map[Op]string{
	OpLogin:                "Login failed. Please try again.",
	OpRegister:             "Registration failed. Please try again.",
	OpRequestPasswordReset: "Failed to request password reset. Please try again.",
	OpConfirmPasswordReset: "Failed to reset password. Please check your code and try again.",
	OpListUsers:            "Failed to load users. Please try again.",
	OpGetUser:              "Failed to load user. Please try again.",
	OpGetMe:                "Failed to load profile. Please try again.",
	OpUpdateUser:           "Failed to update profile. Please try again.",
	OpUpdatePassword:       "Failed to update password. Please try again.",
	OpDeleteUser:           "Failed to delete user.",
	OpListCourses:          "Failed to load courses. Please try again.",
	OpGetCourse:            "Failed to load course details. Please try again.",
	OpCreateCourse:         "Failed to create course.",
	OpUpdateCourse:         "Failed to update course.",
	OpDeleteCourse:         "Failed to delete course.",
	OpListCourseModules:    "Failed to load course details. Please try again.",
	OpListModules:          "Failed to load modules. Please try again.",
	OpCreateModule:         "Failed to create module.",
	OpDeleteModule:         "Failed to delete module.",
}

// Fallback returns the message shown for op when the backend gave none.
func (op Op) Fallback() string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return GenericMessage
}

// Error is returned by every Client method that fails.
type Error struct {
	Op   Op
	Kind Kind
	// Status is the HTTP status for BackendError, zero otherwise.
	Status int
	// Message is the backend's {"error": "..."} text, if it sent one.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == BackendError && e.Message != "":
		return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.Status, e.Message)
	case e.Kind == BackendError && e.Err != nil:
		return fmt.Sprintf("%s: backend returned status %d: %v", e.Op, e.Status, e.Err)
	case e.Kind == BackendError:
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the text to show inline: the backend's message when it
// provided one, else the operation's fallback.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Op.Fallback()
}

// UserMessage extracts the inline message from any error returned by the client.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return GenericMessage
}

// IsStatus reports whether err is a BackendError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == BackendError && apiErr.Status == status
}
