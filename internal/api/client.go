// Package api is the typed client for the taskflow REST backend. Each
// operation is one request through the gateway; login and registration also
// store the returned bearer token, and logout clears it.
package api

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/marcus/taskflow/internal/credstore"
	"github.com/marcus/taskflow/internal/gateway"
	"github.com/marcus/taskflow/internal/models"
)

// Client exposes the backend operations.
type Client struct {
	gw    *gateway.Client
	store credstore.Store
}

// New creates a client that issues requests through gw and keeps the token
// in store.
func New(gw *gateway.Client, store credstore.Store) *Client {
	return &Client{gw: gw, store: store}
}

// --- Auth types ---

// Credentials is the body for POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordChange is the body for POST /auth/change-password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token   string      `json:"token"`
	User    models.User `json:"user"`
	Message string      `json:"message,omitempty"`
}

// UserResponse is returned by /auth/me and /auth/profile.
type UserResponse struct {
	User    models.User `json:"user"`
	Message string      `json:"message,omitempty"`
}

// MessageResponse carries only a status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response from GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// --- Auth methods ---

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.gw.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.storeToken(resp.Token)
	return &resp, nil
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.gw.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	c.storeToken(resp.Token)
	return &resp, nil
}

// Logout clears the stored token. It makes no backend call and succeeds
// unless local storage itself fails.
func (c *Client) Logout(ctx context.Context) (*MessageResponse, error) {
	if err := c.store.Clear(); err != nil {
		slog.Warn("api: clear token", "err", err)
		return nil, err
	}
	return &MessageResponse{Message: "Logged out successfully"}, nil
}

// CurrentUser fetches the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*UserResponse, error) {
	var resp UserResponse
	if err := c.gw.Get(ctx, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile sends profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, fields models.User) (*UserResponse, error) {
	var resp UserResponse
	if err := c.gw.Put(ctx, "/auth/profile", fields, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChangePassword changes the account password.
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.gw.Post(ctx, "/auth/change-password", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthCheck hits /health to verify the backend is reachable.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.gw.Get(ctx, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// storeToken persists a non-empty token. Storage failures are logged and do
// not fail the login.
func (c *Client) storeToken(token string) {
	if token == "" {
		return
	}
	if err := c.store.Set(token); err != nil {
		slog.Warn("api: store token", "err", err)
	}
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}
