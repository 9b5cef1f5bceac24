package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/session"
)

type mockBackend struct {
	mu       sync.Mutex
	posts    []string
	postFunc func(ctx context.Context, path string, body, out interface{}) error
}

func (m *mockBackend) Post(ctx context.Context, path string, body, out interface{}) error {
	m.mu.Lock()
	m.posts = append(m.posts, path)
	m.mu.Unlock()
	if m.postFunc == nil {
		return nil
	}
	return m.postFunc(ctx, path, body, out)
}

type nopGetter struct{}

func (nopGetter) Get(ctx context.Context, path string, out interface{}) error { return nil }

func newTestGate(t *testing.T) *session.Gate {
	t.Helper()
	creds := session.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	return session.NewGate(creds, nopGetter{}, zerolog.Nop())
}

// TestLogin_InstallsSession tests that a successful login persists the token
// and authenticates the gate.
func TestLogin_InstallsSession(t *testing.T) {
	backend := &mockBackend{
		postFunc: func(ctx context.Context, path string, body, out interface{}) error {
			if path != "/auth/login" {
				t.Errorf("Expected login endpoint, got '%s'", path)
			}
			*(out.(*tokenResponse)) = tokenResponse{
				AccessToken: "tok-abc",
				Client:      session.Identity{UUID: "client-1", Email: "pat@example.com"},
			}
			return nil
		},
	}
	gate := newTestGate(t)
	client := NewClient(backend, gate, zerolog.Nop())

	identity, err := client.Login(context.Background(), "pat@example.com", "secret")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if identity.UUID != "client-1" {
		t.Errorf("Expected identity returned, got %+v", identity)
	}
	if gate.Status() != session.StatusAuthenticated {
		t.Error("Expected gate authenticated after login")
	}
	if gate.Token() != "tok-abc" {
		t.Error("Expected token installed in gate")
	}
}

// TestLogin_FailurePropagatesWithoutSession tests that a rejected login
// leaves the gate signed out.
func TestLogin_FailurePropagatesWithoutSession(t *testing.T) {
	boom := errors.New("invalid credentials")
	backend := &mockBackend{
		postFunc: func(ctx context.Context, path string, body, out interface{}) error {
			return boom
		},
	}
	gate := newTestGate(t)
	client := NewClient(backend, gate, zerolog.Nop())

	if _, err := client.Login(context.Background(), "pat@example.com", "wrong"); !errors.Is(err, boom) {
		t.Fatalf("Expected backend error, got: %v", err)
	}
	if gate.Token() != "" {
		t.Error("Expected no token installed on failed login")
	}
}

// TestLogin_ValidatesInputLocally tests that empty fields never reach the
// network.
func TestLogin_ValidatesInputLocally(t *testing.T) {
	backend := &mockBackend{}
	client := NewClient(backend, newTestGate(t), zerolog.Nop())

	if _, err := client.Login(context.Background(), "", "x"); !errors.Is(err, ErrMissingEmail) {
		t.Errorf("Expected ErrMissingEmail, got: %v", err)
	}
	if _, err := client.Login(context.Background(), "a@b.c", ""); !errors.Is(err, ErrMissingPassword) {
		t.Errorf("Expected ErrMissingPassword, got: %v", err)
	}
	if len(backend.posts) != 0 {
		t.Errorf("Expected no network calls, got %d", len(backend.posts))
	}
}

// TestRequestPasswordReset_IdenticalUserMessageEitherWay tests the
// enumeration-safety property: the user-visible outcome is the same for an
// accepted and a failed reset request, while the internal result differs.
func TestRequestPasswordReset_IdenticalUserMessageEitherWay(t *testing.T) {
	ok := &mockBackend{}
	failing := &mockBackend{
		postFunc: func(ctx context.Context, path string, body, out interface{}) error {
			return errors.New("no such account")
		},
	}
	gate := newTestGate(t)

	okResult := NewClient(ok, gate, zerolog.Nop()).RequestPasswordReset(context.Background(), "exists@example.com")
	failResult := NewClient(failing, gate, zerolog.Nop()).RequestPasswordReset(context.Background(), "ghost@example.com")

	if !okResult.Ok() {
		t.Error("Expected internal success for accepted request")
	}
	if failResult.Ok() {
		t.Error("Expected internal failure recorded for operators")
	}

	// The user-facing message is selected independently of either result.
	msgExisting := ResetMessage()
	msgGhost := ResetMessage()
	if msgExisting == "" {
		t.Fatal("Expected a user-facing message")
	}
	if msgExisting != msgGhost {
		t.Errorf("Expected identical messages, got '%s' vs '%s'", msgExisting, msgGhost)
	}
}

// TestChangePassword_PostsToEndpoint tests the change-password call shape.
func TestChangePassword_PostsToEndpoint(t *testing.T) {
	backend := &mockBackend{}
	client := NewClient(backend, newTestGate(t), zerolog.Nop())

	if err := client.ChangePassword(context.Background(), "old", "new-password"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(backend.posts) != 1 || backend.posts[0] != "/auth/change-password" {
		t.Errorf("Expected one POST to change-password, got %v", backend.posts)
	}
}
