//go:build integration

package e2e

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/auth"
	"github.com/medvault-health/profile-client/internal/codesearch"
	"github.com/medvault-health/profile-client/internal/prediction"
	"github.com/medvault-health/profile-client/internal/profile"
	"github.com/medvault-health/profile-client/internal/rest"
	"github.com/medvault-health/profile-client/internal/session"
	"github.com/medvault-health/profile-client/internal/testutil"
)

func envLogger() zerolog.Logger { return zerolog.Nop() }

type staticLocale struct{}

func (staticLocale) Locale() string { return "en" }

// TestEnv wires the full client stack against the in-memory fake backend:
// REST client, session gate, auth flows and one store bundle, connected the
// same way the binary connects them.
type TestEnv struct {
	API        *testutil.FakeAPI
	Rest       *rest.Client
	Gate       *session.Gate
	Auth       *auth.Client
	Stores     *profile.Stores
	Codes      *codesearch.Client
	Prediction *prediction.Client
	CredPath   string
}

// SetupE2ETest builds a complete environment. Credentials live in a per-test
// temp dir so sessions never leak between tests.
func SetupE2ETest(t *testing.T) *TestEnv {
	t.Helper()

	api := testutil.NewFakeAPI(t)
	credPath := filepath.Join(t.TempDir(), "credentials.json")
	credStore := session.NewFileStore(credPath)
	logger := zerolog.Nop()

	client := rest.NewClient(rest.Config{
		BaseURL: api.Server.URL,
		Locale:  staticLocale{},
		Logger:  logger,
	})
	gate := session.NewGate(credStore, client, logger)
	// Complete the loop: requests authenticate with the gate's token and a
	// rejected token signs the whole client out.
	client.SetTokenSource(gate)
	client.SetUnauthorizedHook(gate.HandleUnauthorized)

	return &TestEnv{
		API:        api,
		Rest:       client,
		Gate:       gate,
		Auth:       auth.NewClient(client, gate, logger),
		Stores:     profile.NewStores(client, logger),
		Codes:      codesearch.NewClient(client, logger),
		Prediction: prediction.NewClient(client),
		CredPath:   credPath,
	}
}
