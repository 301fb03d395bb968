package site

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"hkulib-booker/scraper"
)

// Snapshot is the last fetched booking list of one user.
type Snapshot struct {
	User      string           `json:"user"`
	FetchedAt time.Time        `json:"fetched_at"`
	Records   []scraper.Record `json:"records"`
}

// Store keeps the latest snapshot per user.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

func NewStore() *Store {
	return &Store{snapshots: make(map[string]Snapshot)}
}

func (s *Store) Put(user string, records []scraper.Record, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[user] = Snapshot{User: user, FetchedAt: at, Records: records}
}

func (s *Store) Get(user string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[user]
	return snap, ok
}

func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.snapshots))
	for u := range s.snapshots {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// OAuth handles the Google consent round trip. Nil disables /auth.
type OAuth struct {
	AuthURL  func(state string) string
	Exchange func(ctx context.Context, code string) error
}

// NewRouter wires the status endpoints.
func NewRouter(store *Store, oauth *OAuth) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/bookings", usersHandler(store)).Methods(http.MethodGet)
	r.HandleFunc("/bookings/{user}", bookingsHandler(store)).Methods(http.MethodGet)
	if oauth != nil {
		r.HandleFunc("/auth", authHandler(oauth)).Methods(http.MethodGet)
		r.HandleFunc("/auth_callback", authCallbackHandler(oauth)).Methods(http.MethodGet)
	}
	return r
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func usersHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"users": store.Users()})
	}
}

func bookingsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := mux.Vars(r)["user"]
		snap, ok := store.Get(user)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no bookings fetched for user"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func authHandler(oauth *OAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, oauth.AuthURL("hkulib-booker"), http.StatusSeeOther)
	}
}

func authCallbackHandler(oauth *OAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		if err := oauth.Exchange(r.Context(), code); err != nil {
			log.Error().Err(err).Msg("Google authorization failed")
			http.Error(w, "Authorization failed. Please try again.", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, "Authorization completed. You can close this window.")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}
