package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	msgAllRequired      = "All fields are required."
	msgPasswordMismatch = "Passwords do not match."
)

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type devLoginForm struct {
	Role string `form:"role" binding:"required,oneof=user admin"`
	Next string `form:"next"`
}

type registerForm struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Confirm  string `form:"confirm" binding:"required,eqfield=Password"`
}

type resetRequestForm struct {
	Email string `form:"email" binding:"required"`
}

type resetConfirmForm struct {
	Email       string `form:"email" binding:"required"`
	Token       string `form:"token" binding:"required"`
	NewPassword string `form:"newPassword" binding:"required"`
	Confirm     string `form:"confirm" binding:"required,eqfield=NewPassword"`
}

type profileForm struct {
	Name  string `form:"name" binding:"required"`
	Email string `form:"email" binding:"required"`
}

type passwordForm struct {
	OldPassword string `form:"oldPassword" binding:"required"`
	NewPassword string `form:"newPassword" binding:"required"`
	Confirm     string `form:"confirm" binding:"required,eqfield=NewPassword"`
}

type courseForm struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Published   bool   `form:"published"`
}

type publishForm struct {
	Published bool `form:"published"`
}

type moduleForm struct {
	CourseID    string `form:"course" binding:"required"`
	Title       string `form:"title" binding:"required"`
	ContentType string `form:"contentType" binding:"required"`
	ContentURL  string `form:"contentURL" binding:"omitempty,url"`
	OrderIndex  int    `form:"orderIndex" binding:"gte=0"`
}

// formMessages maps "Field.tag" or "tag" of the first failed rule to the
// inline message.
type formMessages map[string]string

// validationMessage turns a binding error into the text shown above a form.
// Errors that are not validation failures, such as a number field holding
// text, get fallback.
func validationMessage(err error, messages formMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}
	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	return fallback
}

var (
	passwordMessages = formMessages{"required": msgAllRequired, "eqfield": msgPasswordMismatch}
	courseMessages   = formMessages{"Title.required": "Title is required."}
	moduleMessages   = formMessages{
		"CourseID.required": "Select a course first.",
		"required":          "Title and content type are required.",
		"url":               "Content URL must be a valid URL.",
		"gte":               "Order must not be negative.",
	}
)
