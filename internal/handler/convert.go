package handler

import "portal/internal/models"

func toCredentials(f loginForm) models.Credentials {
	return models.Credentials{Email: f.Email, Password: f.Password}
}

func toRegistration(f registerForm) models.Registration {
	return models.Registration{Name: f.Name, Email: f.Email, Password: f.Password}
}

func toResetConfirm(f resetConfirmForm) models.PasswordResetConfirm {
	return models.PasswordResetConfirm{Email: f.Email, Token: f.Token, NewPassword: f.NewPassword}
}

func toUserUpdate(f profileForm) models.UserUpdate {
	return models.UserUpdate{Name: f.Name, Email: f.Email}
}

func toPasswordChange(f passwordForm) models.PasswordChange {
	return models.PasswordChange{OldPassword: f.OldPassword, NewPassword: f.NewPassword}
}

func toCourse(f courseForm) models.Course {
	return models.Course{Title: f.Title, Description: f.Description, Category: f.Category, Published: f.Published}
}

func toModule(f moduleForm) models.Module {
	return models.Module{
		CourseID:    f.CourseID,
		Title:       f.Title,
		ContentType: f.ContentType,
		ContentURL:  f.ContentURL,
		OrderIndex:  f.OrderIndex,
	}
}
