package authclient

import (
	"context"
	"net/http"

	"clubhub/client/internal/httpclient"
	"clubhub/client/internal/models"
)

type APIError = httpclient.APIError

// Client talks to the /auth endpoints of the directory API.
type Client struct {
	api *httpclient.Client
}

func New(api *httpclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.api.Do(ctx, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, email, password, major string) (*models.SignupResponse, error) {
	var out models.SignupResponse
	err := c.api.Do(ctx, http.MethodPost, "/auth/signup", "", models.SignupRequest{
		Email:    email,
		Password: password,
		Major:    major,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, code, userID string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.api.Do(ctx, http.MethodPost, "/auth/verify", "", models.VerifyRequest{
		Code:   code,
		UserID: userID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	var out models.RefreshResponse
	err := c.api.Do(ctx, http.MethodPost, "/auth/refresh", "", models.RefreshRequest{
		RefreshToken: refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
