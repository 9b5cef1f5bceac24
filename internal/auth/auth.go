// Package auth implements the account flows: login, registration, password
// change and the enumeration-safe password reset.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/session"
)

var (
	ErrMissingEmail    = errors.New("email is required")
	ErrMissingPassword = errors.New("password is required")
)

// Backend is the write slice of the REST client.
type Backend interface {
	Post(ctx context.Context, path string, body, out interface{}) error
}

// Client runs the account flows and installs successful logins into the
// session gate.
type Client struct {
	backend Backend
	gate    *session.Gate
	logger  zerolog.Logger
}

// NewClient creates an auth client.
func NewClient(backend Backend, gate *session.Gate, logger zerolog.Logger) *Client {
	return &Client{backend: backend, gate: gate, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	Client      session.Identity `json:"client"`
}

// Login signs in and persists the session.
func (c *Client) Login(ctx context.Context, email, password string) (session.Identity, error) {
	if email == "" {
		return session.Identity{}, ErrMissingEmail
	}
	if password == "" {
		return session.Identity{}, ErrMissingPassword
	}

	var res tokenResponse
	if err := c.backend.Post(ctx, "/auth/login", credentialsRequest{Email: email, Password: password}, &res); err != nil {
		return session.Identity{}, err
	}
	if err := c.installSession(res); err != nil {
		return session.Identity{}, err
	}
	return res.Client, nil
}

// Register creates an account and signs the new client in.
func (c *Client) Register(ctx context.Context, email, password, firstName, lastName string) (session.Identity, error) {
	if email == "" {
		return session.Identity{}, ErrMissingEmail
	}
	if password == "" {
		return session.Identity{}, ErrMissingPassword
	}

	var res tokenResponse
	req := registerRequest{Email: email, Password: password, FirstName: firstName, LastName: lastName}
	if err := c.backend.Post(ctx, "/auth/register", req, &res); err != nil {
		return session.Identity{}, err
	}
	if err := c.installSession(res); err != nil {
		return session.Identity{}, err
	}
	return res.Client, nil
}

func (c *Client) installSession(res tokenResponse) error {
	creds := session.Credentials{AccessToken: res.AccessToken, ClientUUID: res.Client.UUID}
	if err := c.gate.SignIn(creds, res.Client); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the signed-in client's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	if next == "" {
		return ErrMissingPassword
	}
	return c.backend.Post(ctx, "/auth/change-password", changePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, nil)
}

// ResetResult is the internal outcome of a password-reset request. It exists
// for operator logs and telemetry only; nothing derived from it may reach
// the user, or the endpoint would leak which emails have accounts.
type ResetResult struct {
	Err error
}

// Ok reports whether the backend accepted the reset request.
func (r ResetResult) Ok() bool {
	return r.Err == nil
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset asks the backend to send a reset link. The returned
// ResetResult is the internal channel; the user-visible outcome is always
// ResetMessage, selected independently of this result.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) ResetResult {
	err := c.backend.Post(ctx, "/auth/reset-password", resetRequest{Email: email}, nil)
	if err != nil {
		c.logger.Error().Err(err).Msg("password reset request failed")
	} else {
		c.logger.Info().Msg("password reset request accepted")
	}
	return ResetResult{Err: err}
}

// ResetMessage is the user-facing outcome of a reset request. It takes no
// result on purpose: the message cannot depend on whether the email exists
// or whether the backend call succeeded.
func ResetMessage() string {
	return "If an account exists for this address, a password reset link has been sent."
}
