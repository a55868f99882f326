package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"roomcast/internal/middleware"
	"roomcast/internal/models"
	"roomcast/internal/realtime"
	"roomcast/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg      *models.Config
	router   *mux.Router
	logger   *logrus.Logger
	events   *service.EventRouter
	ingest   *service.IngestService
	realtime *realtime.Publisher
	server   *http.Server
}

func NewServer(cfg *models.Config, events *service.EventRouter, ingest *service.IngestService, rt *realtime.Publisher, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		logger:   logger,
		events:   events,
		ingest:   ingest,
		realtime: rt,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	s.router.HandleFunc("/webhook", s.handleWebhookVerification()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook", s.handleWebhook()).Methods(http.MethodPost)

	s.router.HandleFunc("/messages", s.handleSendMessage()).Methods(http.MethodPost)
	s.router.HandleFunc("/messages/{platformID}/media-url", s.handleMediaURL()).Methods(http.MethodGet)
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
		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if s.realtime != nil {
			if err := s.realtime.Ping(r.Context()); err != nil {
				status["status"] = "degraded"
				status["realtime"] = err.Error()
				code = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, status)
	}
}

// handleWebhookVerification answers the platform's endpoint handshake. The
// challenge is echoed back only when the verify token matches.
func (s *Server) handleWebhookVerification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mode := query.Get("mode")
		token := query.Get("verify_token")
		challenge := query.Get("challenge")

		if mode != "subscribe" || token == "" || token != s.cfg.Platform.VerifyToken {
			s.logger.WithField("mode", mode).Warn("Webhook verification rejected")
			http.Error(w, "verification failed", http.StatusForbidden)
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge)); err != nil {
			s.logger.WithError(err).Error("Failed to write verification challenge")
		}
	}
}

func (s *Server) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.Platform.WebhookSecret, s.cfg.IsProduction())
		if err != nil {
			s.logger.WithError(err).Warn("Webhook signature verification failed")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		var payload models.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			s.logger.WithError(err).Warn("Malformed webhook payload")
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		summary := s.events.Route(r.Context(), &payload)
		writeJSON(w, http.StatusOK, summary)
	}
}

type sendMessageRequest struct {
	To       string `json:"to"`
	SenderID int64  `json:"sender_id"`
	Body     string `json:"body"`
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request", http.StatusBadRequest)
			return
		}
		if req.To == "" || req.Body == "" {
			http.Error(w, "to and body are required", http.StatusBadRequest)
			return
		}

		msg, err := s.ingest.SendText(r.Context(), req.To, req.SenderID, req.Body)
		if err != nil {
			s.logger.WithError(err).Error("Failed to send message")
			http.Error(w, "send failed", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleMediaURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		platformID := mux.Vars(r)["platformID"]

		url, err := s.ingest.RefreshMediaURL(r.Context(), platformID)
		if err != nil {
			s.logger.WithError(err).WithField(service.LogFieldPlatformID, platformID).Warn("Media URL refresh failed")
			http.Error(w, "media not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent, nothing else to do.
		_ = err
	}
}
