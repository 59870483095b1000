package localapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"nvimbridge/internal/binpath"
	"nvimbridge/internal/global"
	"nvimbridge/internal/history"
	"nvimbridge/internal/session"
)

type SettingsStore interface {
	LoadOrInit() (global.Settings, error)
}

type LaunchService interface {
	Launch(ctx context.Context, st global.Settings, overlay map[string]string) error
}

type FileOpener interface {
	OpenFile(st global.Settings, path string)
}

type Journal interface {
	Recent(limit int) ([]history.SessionEvent, error)
}

type Deps struct {
	SettingsStore SettingsStore
	Launcher      LaunchService
	Opener        FileOpener
	Session       *session.Session
	Journal       Journal
	Killer        session.MuxKiller
	// Binaries reports discovery state of the editor, terminal, and
	// multiplexer binaries for the status endpoint.
	Binaries func() []binpath.Descriptor
	// Overlay supplies the environment overlay for API-triggered launches.
	// Called per launch so refreshed runtime config takes effect.
	Overlay func() map[string]string
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub()}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/launch", s.handleLaunch)
	s.mux.HandleFunc("/open", s.handleOpen)
	s.mux.HandleFunc("/stop", s.handleStop)
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// SessionHook publishes every session transition to connected WS clients.
// Register it on the session at wiring time.
func (s *Server) SessionHook() session.Hook {
	return func(event string, snap session.Snapshot) {
		s.hub.Publish(event, snap)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

type binaryStatus struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	payload := map[string]any{
		"session": s.deps.Session.Snapshot(),
	}
	if rpc := s.deps.Session.RPCHandle(); rpc != nil {
		if names, err := rpc.Buffers(); err == nil {
			payload["open_buffers"] = len(names)
		}
	}
	if s.deps.Binaries != nil {
		bins := make([]binaryStatus, 0)
		for _, d := range s.deps.Binaries() {
			b := binaryStatus{Name: d.Name, Path: d.Path, Version: d.Version}
			if d.Err != nil {
				b.Error = d.Err.Error()
			}
			bins = append(bins, b)
		}
		payload["binaries"] = bins
	}
	respondOK(w, payload)
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	st, err := s.deps.SettingsStore.LoadOrInit()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}
	var overlay map[string]string
	if s.deps.Overlay != nil {
		overlay = s.deps.Overlay()
	}
	if err := s.deps.Launcher.Launch(r.Context(), st, overlay); err != nil {
		respondError(w, http.StatusConflict, "launch_failed", err.Error())
		return
	}
	respondOK(w, s.deps.Session.Snapshot())
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		respondError(w, http.StatusBadRequest, "bad_request", "body must be {\"path\": \"...\"}")
		return
	}
	st, err := s.deps.SettingsStore.LoadOrInit()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settings_unavailable", err.Error())
		return
	}
	// Fire and forget: refusals end up in the log, not the response.
	s.deps.Opener.OpenFile(st, req.Path)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	var req struct {
		All bool `json:"all"`
	}
	// An empty body means a plain stop.
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.deps.Session.Close(s.deps.Killer)
	if req.All && s.deps.Killer != nil {
		if st, err := s.deps.SettingsStore.LoadOrInit(); err == nil && st.TmuxSession != "" {
			_ = s.deps.Killer.KillSession(st.TmuxSession)
		}
	}
	respondOK(w, s.deps.Session.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}
	if s.deps.Journal == nil {
		respondError(w, http.StatusServiceUnavailable, "journal_disabled", "session journal is not enabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "limit must be an integer")
			return
		}
		limit = n
	}
	rows, err := s.deps.Journal.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal_error", err.Error())
		return
	}
	respondOK(w, rows)
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
