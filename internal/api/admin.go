// Package api exposes the operations surface: an HTTP admin API guarded by a
// bearer token, and an MCP server for agent access. Neither is reachable by
// chat users; chat traffic goes through the bot layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/thedevi-l/eng-coffee-bot/internal/dispatch"
	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
)

// Store defines the storage operations the admin API needs.
// Implemented by storage.Store.
type Store interface {
	GetProfile(userID int64) (storage.Profile, error)
	ListAllProfiles() ([]storage.Profile, error)
	DeleteProfile(userID int64) error
	CountProfiles() (int, error)
}

// Matcher resolves a match for one person. Implemented by dispatch.Dispatcher.
type Matcher interface {
	RequestMatch(userID int64) (dispatch.Outcome, error)
}

// Broadcaster runs the full-store broadcast. Implemented by dispatch.Dispatcher.
type Broadcaster interface {
	BroadcastAll(ctx context.Context) (dispatch.BroadcastStats, error)
}

// AdminDeps holds dependencies for the admin handler.
type AdminDeps struct {
	Store       Store
	Matcher     Matcher
	Broadcaster Broadcaster
	Token       string
}

// NewAdminHandler builds the admin router. Everything except /health requires
// the bearer token.
func NewAdminHandler(deps AdminDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/profiles", handleListProfiles(deps))
		r.Get("/profiles/{id}", handleGetProfile(deps))
		r.Delete("/profiles/{id}", handleDeleteProfile(deps))
		r.Post("/profiles/{id}/match", handleMatch(deps))
		r.Post("/broadcast", handleBroadcast(deps))
	})

	return r
}

type profileJSON struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Name      string `json:"name"`
	Level     string `json:"level"`
	Interests string `json:"interests"`
	Goal      string `json:"goal"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toProfileJSON(p storage.Profile) profileJSON {
	out := profileJSON{
		UserID:    p.UserID,
		Username:  p.Username,
		Name:      p.Name,
		Level:     p.Level,
		Interests: p.Interests,
		Goal:      p.Goal,
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func handleHealth(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Store.CountProfiles()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "counting profiles: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "profiles": n})
	}
}

func handleListProfiles(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit %q", raw)
				return
			}
			limit = n
		}

		profiles, err := deps.Store.ListAllProfiles()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing profiles: %v", err)
			return
		}
		if len(profiles) > limit {
			profiles = profiles[:limit]
		}

		out := make([]profileJSON, len(profiles))
		for i, p := range profiles {
			out[i] = toProfileJSON(p)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetProfile(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		p, err := deps.Store.GetProfile(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no profile for user %d", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileJSON(p))
	}
}

func handleDeleteProfile(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		err := deps.Store.DeleteProfile(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "no profile for user %d", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting profile: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleMatch resolves a match without messaging the user; the outcome comes
// back as JSON only.
func handleMatch(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		outcome, err := deps.Matcher.RequestMatch(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "matching user %d: %v", id, err)
			return
		}

		resp := map[string]any{"outcome": outcome.Kind.String()}
		if outcome.Match != nil {
			resp["match"] = toProfileJSON(*outcome.Match)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleBroadcast kicks off a broadcast in the background and returns
// immediately; the run outlives the request.
func handleBroadcast(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := uuid.New().String()
		go func() {
			if _, err := deps.Broadcaster.BroadcastAll(context.Background()); err != nil {
				slog.Error("admin-triggered broadcast failed", "run_id", runID, "error", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid user id %q", raw)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
