// Package session owns the process-wide authentication state: a three-state
// gate (checking, authenticated, unauthenticated) plus the persisted
// credential. It is the rest client's token source and its unauthorized
// hook, so any 401 anywhere in the application logs the whole process out.
package session

import (
	"context"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

// Status is the gate's state.
type Status int

const (
	StatusChecking Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Access is the outcome of gating a piece of content.
type Access int

const (
	// AccessChecking renders a neutral loading state.
	AccessChecking Access = iota
	// AccessGranted renders the gated content.
	AccessGranted
	// AccessRedirect triggers the login redirect and renders nothing.
	AccessRedirect
	// AccessDenied renders an explicit access-denied state: the user is
	// authenticated but lacks the admin flag.
	AccessDenied
)

// Identity is the backend's description of the signed-in client.
type Identity struct {
	UUID      string `json:"uuid"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Admin     bool   `json:"is_admin"`
}

// Getter is the read slice of the REST client used for the identity check.
type Getter interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// Gate is the authentication state machine. Single writer for session state;
// everything else reads Status/Identity or subscribes.
type Gate struct {
	creds   CredentialStore
	backend Getter
	logger  zerolog.Logger

	mu       sync.Mutex
	status   Status
	identity *Identity
	token    string
	subs     map[int]func(Status)
	nextSub  int
}

// NewGate creates a Gate in StatusChecking.
func NewGate(creds CredentialStore, backend Getter, logger zerolog.Logger) *Gate {
	return &Gate{
		creds:   creds,
		backend: backend,
		logger:  logger,
		status:  StatusChecking,
		subs:    make(map[int]func(Status)),
	}
}

// Token returns the current access token, empty when signed out. Implements
// the rest client's TokenSource: read at call time, so logout immediately
// invalidates subsequent requests.
func (g *Gate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Status returns the current gate state.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Identity returns the signed-in identity, nil unless authenticated.
func (g *Gate) Identity() *Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return nil
	}
	id := *g.identity
	return &id
}

// ClientUUID returns the signed-in client's uuid, empty when signed out.
func (g *Gate) ClientUUID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.identity == nil {
		return ""
	}
	return g.identity.UUID
}

// Subscribe registers fn for status transitions. Returns an unsubscribe
// function.
func (g *Gate) Subscribe(fn func(Status)) func() {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

// Check resolves the initial StatusChecking state: load the persisted
// credential, reject a locally-expired token without a network call, and
// otherwise validate it against the identity endpoint. An invalid credential
// is cleared as a side effect; there is no retry loop.
func (g *Gate) Check(ctx context.Context) Status {
	creds, err := g.creds.Load()
	if err != nil {
		return g.becomeUnauthenticated(false)
	}

	if tokenExpired(creds.AccessToken) {
		g.logger.Info().Msg("stored token expired, clearing credential")
		return g.becomeUnauthenticated(true)
	}

	g.mu.Lock()
	g.token = creds.AccessToken
	g.mu.Unlock()

	var identity Identity
	if err := g.backend.Get(ctx, "/auth/me", &identity); err != nil {
		g.logger.Warn().Err(err).Msg("stored credential rejected by identity endpoint")
		return g.becomeUnauthenticated(true)
	}

	g.mu.Lock()
	g.status = StatusAuthenticated
	g.identity = &identity
	g.mu.Unlock()
	g.notify(StatusAuthenticated)
	return StatusAuthenticated
}

// SignIn installs fresh credentials after a successful login or
// registration, persists them and transitions to authenticated.
func (g *Gate) SignIn(creds Credentials, identity Identity) error {
	if err := g.creds.Save(creds); err != nil {
		return err
	}
	g.mu.Lock()
	g.token = creds.AccessToken
	g.status = StatusAuthenticated
	g.identity = &identity
	g.mu.Unlock()
	g.notify(StatusAuthenticated)
	return nil
}

// Logout is the explicit sign-out action.
func (g *Gate) Logout() {
	g.becomeUnauthenticated(true)
}

// HandleUnauthorized is registered as the rest client's 401 hook. Whatever
// store triggered the call, the session ends here. Idempotent: a burst of
// 401s from parallel requests transitions once.
func (g *Gate) HandleUnauthorized() {
	g.mu.Lock()
	already := g.status == StatusUnauthenticated
	g.mu.Unlock()
	if already {
		return
	}
	g.logger.Info().Msg("received 401, ending session")
	g.becomeUnauthenticated(true)
}

// Authorize gates content. adminOnly additionally requires the identity's
// admin flag; failing that with a valid session is an explicit denial, not a
// redirect.
func (g *Gate) Authorize(adminOnly bool) Access {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.status {
	case StatusChecking:
		return AccessChecking
	case StatusUnauthenticated:
		return AccessRedirect
	}
	if adminOnly && (g.identity == nil || !g.identity.Admin) {
		return AccessDenied
	}
	return AccessGranted
}

func (g *Gate) becomeUnauthenticated(clearStored bool) Status {
	if clearStored {
		if err := g.creds.Clear(); err != nil {
			g.logger.Error().Err(err).Msg("failed to clear stored credentials")
		}
	}
	g.mu.Lock()
	g.token = ""
	g.identity = nil
	changed := g.status != StatusUnauthenticated
	g.status = StatusUnauthenticated
	g.mu.Unlock()
	if changed {
		g.notify(StatusUnauthenticated)
	}
	return StatusUnauthenticated
}

func (g *Gate) notify(status Status) {
	g.mu.Lock()
	fns := make([]func(Status), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(status)
	}
}

// tokenExpired reports whether the token is a JWT whose exp claim has
// passed. Tokens that do not parse are left for the server to judge; the
// pre-check only exists to skip a doomed network round trip.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), false)
}
