package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chatsync/internal/chatdebug"
	"chatsync/internal/errors"
	"chatsync/internal/middleware"
	"chatsync/internal/models"
	"chatsync/internal/registry"
	"chatsync/internal/service"
	"chatsync/internal/tracing"
	"chatsync/internal/version"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router     *mux.Router
	logger     *logrus.Logger
	cfg        *models.Config
	msgService service.MessageService
	registry   *registry.Registry
	debug      *chatdebug.Store
	server     *http.Server
}

func NewServer(cfg *models.Config, msgService service.MessageService, reg *registry.Registry, debug *chatdebug.Store, logger *logrus.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		logger:     logger,
		cfg:        cfg,
		msgService: msgService,
		registry:   reg,
		debug:      debug,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/messages", s.handleSendMessage()).Methods(http.MethodPost)

	s.router.HandleFunc("/ws", s.handleWebSocket())

	// Debug endpoints answer 404 when CHAT_DEBUG is off, the same as any
	// unknown route.
	debug := s.router.PathPrefix("/debug/chat").Subrouter()
	debug.HandleFunc("/events", s.handleDebugEvents()).Methods(http.MethodGet)
	debug.HandleFunc("/metrics", s.handleDebugMetrics()).Methods(http.MethodGet)
	debug.HandleFunc("/sockets", s.handleDebugSockets()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
			s.logger.WithError(err).Error("Failed to encode version response")
		}
	}
}

// handleSendMessage is the send API: it acknowledges with the persisted
// message once the ingest pipeline has stored it; broadcast fan-out proceeds
// independently.
func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "malformed request payload"))
			return
		}

		msg, err := s.msgService.Send(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(msg); err != nil {
			s.logger.WithError(err).Error("Failed to encode send response")
		}
	}
}

// errorEnvelope mirrors the application-wide error response shape.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"requestId"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorBody{
			Code:      string(errors.GetCode(err)),
			Message:   errors.GetUserMessage(err),
			Status:    status,
			RequestID: tracing.GetRequestID(r.Context()),
		},
	})
}
