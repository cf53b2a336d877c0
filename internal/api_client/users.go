package api_client

import (
	"context"
	"net/http"
	"net/url"

	"portal/internal/models"
)

func (c *Client) ListUsers(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, OpListUsers, http.MethodGet, "/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, token, id string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, OpGetUser, http.MethodGet, "/user/"+url.PathEscape(id), token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMe returns the account the token belongs to.
func (c *Client) GetMe(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, OpGetMe, http.MethodGet, "/user/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, token, id string, update models.UserUpdate) error {
	return c.do(ctx, OpUpdateUser, http.MethodPut, "/user/"+url.PathEscape(id), token, update, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, token, id string, change models.PasswordChange) error {
	return c.do(ctx, OpUpdatePassword, http.MethodPut, "/user/"+url.PathEscape(id)+"/password", token, change, nil)
}

func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	return c.do(ctx, OpDeleteUser, http.MethodDelete, "/user/"+url.PathEscape(id), token, nil, nil)
}
