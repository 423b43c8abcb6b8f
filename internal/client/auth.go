package client

import (
	"context"
	"errors"
	"net/http"
)

var ErrNoToken = errors.New("client: backend returned no token")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	return c.tokenCall(ctx, "/api/auth/login", creds)
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	return c.tokenCall(ctx, "/api/auth/register", reg)
}

func (c *Client) tokenCall(ctx context.Context, path string, body any) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, path, path, nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", ErrNoToken
	}
	return resp.Token, nil
}
