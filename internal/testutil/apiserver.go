package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// FakeAPI is an in-memory stand-in for the profile backend. It speaks the
// same routes and error shape as the real service so the e2e tests can drive
// the full client stack without a network.
type FakeAPI struct {
	Server *httptest.Server

	mu          sync.Mutex
	users       map[string]fakeUser // by email
	validTokens map[string]string   // token -> client uuid
	collections map[string][]map[string]interface{}
	signingKey  []byte
}

type fakeUser struct {
	UUID     string
	Email    string
	Password string
	Admin    bool
}

// Collections the fake API serves generic CRUD for.
var fakeCollections = []string{
	"allergies",
	"diseases",
	"medications",
	"vital-signs",
	"contacts",
	"pregnancies",
	"menstrual-cycles",
	"addictions",
	"psychiatric-conditions",
	"infectious-diseases",
}

// NewFakeAPI starts the fake backend. The server is shut down with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	api := &FakeAPI{
		users:       make(map[string]fakeUser),
		validTokens: make(map[string]string),
		collections: make(map[string][]map[string]interface{}),
		signingKey:  []byte("e2e-signing-key"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/auth/login", api.handleLogin).Methods(http.MethodPost)
	router.HandleFunc("/auth/register", api.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/auth/reset-password", api.handleResetPassword).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(api.requireToken)
	protected.HandleFunc("/auth/me", api.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/auth/change-password", api.handleChangePassword).Methods(http.MethodPost)
	protected.HandleFunc("/medical-codes/search/{vocabulary}", api.handleCodeSearch).Methods(http.MethodGet)
	protected.HandleFunc("/menstrual-cycles/prediction", api.handlePrediction).Methods(http.MethodGet)
	protected.HandleFunc("/alerts/panic", api.handlePanic).Methods(http.MethodPost)
	for _, name := range fakeCollections {
		base := "/" + name
		protected.HandleFunc(base+"/", api.handleList(name)).Methods(http.MethodGet)
		protected.HandleFunc(base+"/", api.handleCreate(name)).Methods(http.MethodPost)
		protected.HandleFunc(base+"/{uuid}", api.handleUpdate(name)).Methods(http.MethodPut)
		protected.HandleFunc(base+"/{uuid}", api.handleDelete(name)).Methods(http.MethodDelete)
		protected.HandleFunc(base+"/{uuid}/{sub}", api.handleSubCreate(name)).Methods(http.MethodPost)
	}

	api.Server = httptest.NewServer(router)
	t.Cleanup(api.Server.Close)
	return api
}

// RegisterUser seeds an account and returns its uuid.
func (a *FakeAPI) RegisterUser(email, password string, admin bool) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	u := fakeUser{UUID: uuid.NewString(), Email: email, Password: password, Admin: admin}
	a.users[email] = u
	return u.UUID
}

// RevokeAllTokens invalidates every issued token, so the next authenticated
// request gets a 401. Drives the forced-logout tests.
func (a *FakeAPI) RevokeAllTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.validTokens = make(map[string]string)
}

// Seed inserts a record directly into a collection, bypassing the API.
func (a *FakeAPI) Seed(collection string, record map[string]interface{}) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := uuid.NewString()
	record["uuid"] = id
	a.collections[collection] = append(a.collections[collection], record)
	return id
}

// Count reports how many records a collection holds.
func (a *FakeAPI) Count(collection string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.collections[collection])
}

func (a *FakeAPI) issueToken(clientUUID string) string {
	claims := jwt.MapClaims{
		"sub": clientUUID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	a.validTokens[signed] = clientUUID
	return signed
}

func (a *FakeAPI) identityBody(u fakeUser) map[string]interface{} {
	return map[string]interface{}{
		"uuid":       u.UUID,
		"email":      u.Email,
		"first_name": "Test",
		"last_name":  "Patient",
		"is_admin":   u.Admin,
	}
}

func (a *FakeAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		a.mu.Lock()
		_, ok := a.validTokens[token]
		a.mu.Unlock()
		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	u, ok := a.users[req.Email]
	if !ok || u.Password != req.Password {
		a.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
		return
	}
	token := a.issueToken(u.UUID)
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"client":       a.identityBody(u),
	})
}

func (a *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	if _, exists := a.users[req.Email]; exists {
		a.mu.Unlock()
		writeError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		return
	}
	u := fakeUser{UUID: uuid.NewString(), Email: req.Email, Password: req.Password}
	a.users[req.Email] = u
	token := a.issueToken(u.UUID)
	a.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"access_token": token,
		"client":       a.identityBody(u),
	})
}

// handleResetPassword answers 200 for known addresses and 404 for unknown
// ones. The client must hide that difference from the user.
func (a *FakeAPI) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	_, known := a.users[req.Email]
	a.mu.Unlock()
	if !known {
		writeError(w, http.StatusNotFound, "unknown_email", "No account with this email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (a *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	a.mu.Lock()
	clientUUID := a.validTokens[token]
	var found *fakeUser
	for _, u := range a.users {
		if u.UUID == clientUUID {
			u := u
			found = &u
			break
		}
	}
	a.mu.Unlock()
	if found == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unknown session")
		return
	}
	writeJSON(w, http.StatusOK, a.identityBody(*found))
}

func (a *FakeAPI) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

func (a *FakeAPI) handleCodeSearch(w http.ResponseWriter, r *http.Request) {
	vocabulary := mux.Vars(r)["vocabulary"]
	term := r.URL.Query().Get("term")
	writeJSON(w, http.StatusOK, []map[string]string{
		{"code": "419199007", "name": "Match for " + term, "source": vocabulary},
	})
}

func (a *FakeAPI) handlePrediction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"next_period":    "2026-10-01T00:00:00Z",
		"fertile_window": map[string]string{"start": "2026-09-17T00:00:00Z", "end": "2026-09-22T00:00:00Z"},
		"confidence":     "medium",
	})
}

func (a *FakeAPI) handlePanic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"uuid":      uuid.NewString(),
		"status":    "raised",
		"raised_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *FakeAPI) handleList(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		items := append([]map[string]interface{}{}, a.collections[name]...)
		a.mu.Unlock()
		writeJSON(w, http.StatusOK, items)
	}
}

func (a *FakeAPI) handleCreate(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var record map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Malformed JSON body")
			return
		}
		a.mu.Lock()
		record["uuid"] = uuid.NewString()
		a.collections[name] = append(a.collections[name], record)
		a.mu.Unlock()
		writeJSON(w, http.StatusCreated, record)
	}
}

func (a *FakeAPI) handleUpdate(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["uuid"]
		var patch map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Malformed JSON body")
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, record := range a.collections[name] {
			if record["uuid"] == id {
				for k, v := range patch {
					record[k] = v
				}
				record["uuid"] = id
				a.collections[name][i] = record
				writeJSON(w, http.StatusOK, record)
				return
			}
		}
		writeError(w, http.StatusNotFound, "not_found", "No such record")
	}
}

func (a *FakeAPI) handleDelete(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["uuid"]
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, record := range a.collections[name] {
			if record["uuid"] == id {
				a.collections[name] = append(a.collections[name][:i], a.collections[name][i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeError(w, http.StatusNotFound, "not_found", "No such record")
	}
}

// handleSubCreate appends to a list field on the parent record and returns
// the updated parent, the way the real service syncs nested creates.
func (a *FakeAPI) handleSubCreate(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		id, sub := vars["uuid"], vars["sub"]
		var child map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&child); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Malformed JSON body")
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, record := range a.collections[name] {
			if record["uuid"] == id {
				child["uuid"] = uuid.NewString()
				list, _ := record[sub].([]interface{})
				record[sub] = append(list, child)
				a.collections[name][i] = record
				writeJSON(w, http.StatusCreated, record)
				return
			}
		}
		writeError(w, http.StatusNotFound, "not_found", "No such record")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
