package api

import (
	"context"

	"github.com/matshelf/matshelf/pkg/errors"
)

// LoginResponse carries the token and account details returned on login.
type LoginResponse struct {
	Token string `json:"access_token"`
	User  struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// Login exchanges credentials for a bearer token and installs it on the
// client.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.request(ctx, "POST", "/login", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.ErrNoToken
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Logout invalidates the token server-side and clears it locally. The local
// state is cleared even when the server call fails; a dead token is not
// worth keeping.
func (c *Client) Logout(ctx context.Context) error {
	err := c.request(ctx, "POST", "/logout", nil, nil)
	c.SetToken("")
	if err != nil && !errors.Is(err, errors.ErrNotAuthorized) {
		return errors.Wrap(err, "logout request failed")
	}
	return nil
}
