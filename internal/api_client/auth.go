package api_client

import (
	"context"
	"errors"
	"net/http"

	"portal/internal/models"
)

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	var response struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, OpLogin, http.MethodPost, "/login", "", creds, &response); err != nil {
		return "", err
	}
	if response.Token == "" {
		return "", &Error{Op: OpLogin, Kind: BackendError, Status: http.StatusOK, Err: errors.New("response carries no token")}
	}
	return response.Token, nil
}

// Register creates an account. The backend does not log the new user in.
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, OpRegister, http.MethodPost, "/register", "", reg, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RequestPasswordReset asks the backend to send a reset code to email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, OpRequestPasswordReset, http.MethodPost, "/password-reset/request", "", body, nil)
}

// ConfirmPasswordReset sets a new password using the emailed code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, confirm models.PasswordResetConfirm) error {
	return c.do(ctx, OpConfirmPasswordReset, http.MethodPost, "/password-reset/confirm", "", confirm, nil)
}
