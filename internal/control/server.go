// Package control implements the operator HTTP surface (C8): a thin
// boundary translating external commands into core mutations, grounded
// directly on the teacher's internal/ws server — same route/auth/origin
// shape, different payloads.
package control

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/planner"
	"github.com/coverdrift/coverdrift/internal/stats"
)

// Server is the control surface adapter. Every write path is gated by an
// opaque auth token; every read path is unauthenticated, matching the
// teacher's origin-checked-but-unauthenticated read posture adapted here
// to instead gate writes. The token is accepted from the
// X-Coverdrift-Token header, a "token" query parameter, or an
// "Authorization: Bearer" header (see authorize).
type Server struct {
	registry    *engine.Registry
	rate        *planner.RateModel
	counters    *stats.Counters
	broadcaster *Broadcaster
	log         *logrus.Logger

	authToken      string
	allowedOrigins map[string]bool

	viewportW, viewportH int
}

// NewServer builds a control Server. authToken may be empty, in which case
// every write path is open (intended for loopback-only deployments).
func NewServer(registry *engine.Registry, rate *planner.RateModel, counters *stats.Counters, broadcaster *Broadcaster, authToken string, allowedOrigins []string, log *logrus.Logger) *Server {
	s := &Server{
		registry:       registry,
		rate:           rate,
		counters:       counters,
		broadcaster:    broadcaster,
		log:            log,
		authToken:      authToken,
		allowedOrigins: make(map[string]bool),
	}
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			s.allowedOrigins[trimmed] = true
		}
	}
	return s
}

// SetupRoutes registers every endpoint named in §6 on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/activity", s.handleActivity)
	mux.HandleFunc("/api/engines", s.handleEngines)
	mux.HandleFunc("/api/activity-chart", s.handleActivityChart)
	mux.HandleFunc("/api/intensity", s.handleIntensity)
	mux.HandleFunc("/api/viewport", s.handleViewport)
	mux.HandleFunc("/api/engines/", s.handleEngineToggle)
	mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"running":   true,
		"intensity": s.rate.Intensity(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	count := 50
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}
	writeJSON(w, stats.MergedActivity(s.registry, count))
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	type engineView struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	var out []engineView
	for _, name := range s.registry.Names() {
		rec := s.registry.Record(name)
		if rec == nil {
			continue
		}
		out = append(out, engineView{Name: name, Enabled: rec.Enabled()})
	}
	writeJSON(w, out)
}

func (s *Server) handleActivityChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, stats.ActivityChart(s.registry))
}

// handleIntensity implements SetIntensity. GET returns the current value;
// POST with a writable body sets it (gated by auth).
func (s *Server) handleIntensity(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, map[string]string{"intensity": string(s.rate.Intensity())})
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	level := planner.Intensity(body.Level)
	if !level.Valid() {
		http.Error(w, fmt.Sprintf("invalid intensity %q", body.Level), http.StatusBadRequest)
		return
	}

	s.rate.SetIntensity(level)
	writeJSON(w, map[string]string{"intensity": string(level)})
}

// handleViewport implements the "set viewport hints" write operation. The
// core has no browser-automation producer of its own to size, so the hint
// is validated, stored on the Server, logged, and echoed back; it is not
// passed on to any producer.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Width <= 0 || body.Height <= 0 {
		http.Error(w, "invalid viewport", http.StatusBadRequest)
		return
	}

	s.viewportW, s.viewportH = body.Width, body.Height
	s.log.WithFields(logrus.Fields{"width": body.Width, "height": body.Height}).Info("viewport hint updated")
	writeJSON(w, body)
}

// handleEngineToggle implements ToggleEngine, routed as POST
// /api/engines/{name}/toggle.
func (s *Server) handleEngineToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/engines/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] != "toggle" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	name, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "invalid engine name", http.StatusBadRequest)
		return
	}

	enabled, ok := s.registry.Toggle(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown engine %q", name), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"name": name, "enabled": enabled})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("ws upgrade error")
		return
	}

	c := s.broadcaster.AddClient(conn)
	go func() {
		defer s.broadcaster.RemoveClient(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) snapshot() stats.Snapshot {
	return s.counters.Snapshot(s.registry, time.Now())
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	if r.Header.Get("X-Coverdrift-Token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}
	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.allowedOrigins) > 0 {
		return s.allowedOrigins[origin]
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	return strings.HasPrefix(host, "localhost:") || host == "localhost" ||
		strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe starts the HTTP server on host:port.
func ListenAndServe(host string, port int, mux *http.ServeMux, log *logrus.Logger) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.WithField("addr", addr).Info("control surface listening")
	return http.ListenAndServe(addr, mux)
}
