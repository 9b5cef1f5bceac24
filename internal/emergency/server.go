package emergency

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/medvault-health/profile-client/internal/messaging"
	"github.com/medvault-health/profile-client/internal/profile"
)

// Server serves the emergency profile. No authentication: the share token in
// the URL is the whole access control, which is exactly the break-glass
// property the printed QR code needs.
type Server struct {
	stores     *profile.Stores
	publisher  messaging.PublisherInterface
	shareToken string
	logger     zerolog.Logger
}

// NewServer creates a share server for the given token.
func NewServer(stores *profile.Stores, publisher messaging.PublisherInterface, shareToken string, logger zerolog.Logger) *Server {
	return &Server{
		stores:     stores,
		publisher:  publisher,
		shareToken: shareToken,
		logger:     logger,
	}
}

// corsMiddleware adds CORS headers so a browser can fetch the summary from
// the share link regardless of where the viewer page is hosted.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin || allowed == "*" {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router initializes all routes for the share server
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("emergency-share"))
	r.Use(corsMiddleware)

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"emergency-share"}`))
	}).Methods("GET")

	r.HandleFunc("/emergency/{token}", s.handleProfile).Methods("GET")

	return r
}

type summaryResponse struct {
	Success bool    `json:"success"`
	Entries []Entry `json:"entries"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if token != s.shareToken {
		respondError(w, http.StatusNotFound, "unknown_token", "No emergency profile for this link")
		return
	}

	entries := BuildSummary(s.stores)
	if err := ValidateSummary(entries); err != nil {
		s.logger.Error().Err(err).Msg("emergency summary failed validation")
		respondError(w, http.StatusInternalServerError, "invalid_summary", "Failed to assemble emergency profile")
		return
	}

	if s.publisher != nil {
		event := messaging.NewEmergencyAccessedEvent(messaging.EmergencyAccessedData{
			ShareToken: token,
			RemoteAddr: r.RemoteAddr,
			AccessedAt: time.Now().UTC(),
		})
		if err := s.publisher.Publish(r.Context(), messaging.EventEmergencyAccessed, event); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish emergency access event")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summaryResponse{Success: true, Entries: entries})
}

// ListenAndServe runs the share server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.logger.Info().Str("addr", addr).Msg("emergency share server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
