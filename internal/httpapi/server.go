package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mindhaven/livesession/internal/config"
	"github.com/mindhaven/livesession/internal/observability"
	"github.com/mindhaven/livesession/internal/rooms"
	"github.com/mindhaven/livesession/internal/session"
)

// Server exposes the session authority over REST plus a websocket
// channel that fans session state out to participants.
type Server struct {
	cfg      config.Config
	service  *session.Service
	metrics  *observability.Metrics
	log      zerolog.Logger
	hub      *stateHub
	upgrader websocket.Upgrader
}

func New(cfg config.Config, service *session.Service, metrics *observability.Metrics, log zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		metrics: metrics,
		log:     log,
		hub:     newStateHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions", s.handleListSessions)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Put("/v1/sessions/{id}", s.handleUpdateSession)
	r.Put("/v1/sessions/{id}/exerciseState", s.handleUpdateExerciseState)
	r.Delete("/v1/sessions/{id}", s.handleRemoveSession)
	r.Get("/v1/sessions/{id}/ws", s.handleSessionWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := s.service.CreateSession(r.Context(), userID, req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var u session.Update
	if err := decodeJSON(r, &u); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := s.service.UpdateSession(r.Context(), userID, id, u)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.metrics.SessionEvents.WithLabelValues("updated").Inc()
	s.publish(id, stateEnvelope{Session: sess})
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleUpdateExerciseState(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var u session.StateUpdate
	if err := decodeJSON(r, &u); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := s.service.UpdateExerciseState(r.Context(), userID, id, u)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.metrics.ExerciseStateUpdates.Inc()
	s.publish(id, stateEnvelope{Session: sess})
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := s.service.RemoveSession(r.Context(), userID, id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.metrics.SessionEvents.WithLabelValues("removed").Inc()
	s.hub.closeSession(id)
	s.metrics.StateSubscribers.Set(float64(s.hub.subscriberCount()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub, unsubscribe := s.hub.subscribe(id)
	defer unsubscribe()
	s.metrics.StateSubscribers.Set(float64(s.hub.subscriberCount()))
	defer func() {
		s.metrics.StateSubscribers.Set(float64(s.hub.subscriberCount()))
	}()

	// Initial snapshot so late joiners reconcile immediately.
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.StateWriteTimeout))
	if err := conn.WriteJSON(stateEnvelope{Session: sess}); err != nil {
		s.metrics.WSMessages.WithLabelValues("outbound", "write_error").Inc()
		return
	}
	s.metrics.WSMessages.WithLabelValues("outbound", "sent").Inc()

	readTimeout := s.cfg.StateReadTimeout
	if readTimeout <= 0 {
		readTimeout = 120 * time.Second
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(4 << 10)
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})
		// Subscribers never send application messages; the read loop
		// only notices pongs and closure.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(readTimeout / 3)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.StateWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case env, ok := <-sub.ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.StateWriteTimeout))
			if err := conn.WriteJSON(env); err != nil {
				s.metrics.WSMessages.WithLabelValues("outbound", "write_error").Inc()
				return
			}
			s.metrics.WSMessages.WithLabelValues("outbound", "sent").Inc()
			if env.Deleted {
				return
			}
		}
	}
}

func (s *Server) publish(id string, env stateEnvelope) {
	delivered, dropped := s.hub.publish(id, env)
	if dropped > 0 {
		s.log.Warn().Str("session_id", id).Int("dropped", dropped).Msg("slow state subscribers dropped a snapshot")
	}
	for i := 0; i < delivered; i++ {
		s.metrics.WSMessages.WithLabelValues("outbound", "queued").Inc()
	}
	for i := 0; i < dropped; i++ {
		s.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var provErr *rooms.ProvisioningError
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "user_unauthorized", err.Error())
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrEmptyUpdate), errors.Is(err, session.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &provErr):
		s.metrics.RoomProviderErrors.WithLabelValues(provErr.Op).Inc()
		respondError(w, http.StatusBadGateway, "room_provisioning_failed", err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return "", false
	}
	return userID, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
