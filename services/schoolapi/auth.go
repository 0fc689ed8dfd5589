package schoolapi

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/siesnerul/resultdesk/core/session"
)

var _ session.Backend = (*Client)(nil)

// authFailed folds the backend's rejection statuses into the sentinel the
// session layer keys off. Other statuses and transport failures pass through.
func authFailed(err error) error {
	if apiErr, ok := IsAPIError(err); ok {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
			return session.ErrAuthFailed
		}
	}
	return err
}

func (c *Client) Login(ctx context.Context, userID, password, role string) (string, error) {
	in := map[string]string{"userid": userID, "password": password, "role": role}
	var out struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", nil, in, &out); err != nil {
		return "", authFailed(err)
	}
	return out.Token, nil
}

func (c *Client) Me(ctx context.Context, token string) (session.Identity, error) {
	var ident session.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, nil, &ident); err != nil {
		return session.Identity{}, authFailed(err)
	}
	return ident, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil, nil)
	return errors.Wrap(authFailed(err), "backend logout")
}
