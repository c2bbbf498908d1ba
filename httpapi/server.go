// Package httpapi exposes the backend operations over HTTP.
//
// Successful domain responses are wrapped as {"success": true, "data": ...}; failures
// are rendered as {"success": false, "statusCode", "error", "message"} using the
// status carried by apperr. The /auth routes return their DTOs unwrapped.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CalHacks12USF/fregister-backend/auth"
	"github.com/CalHacks12USF/fregister-backend/conversation"
	"github.com/CalHacks12USF/fregister-backend/inventory"
	"github.com/CalHacks12USF/fregister-backend/mlconnector"
)

// Pagination defaults and ceilings per collection.
const (
	DefaultInventoryLimit = 10
	MaxInventoryLimit     = 100
	DefaultThreadLimit    = 20
	MaxThreadLimit        = 100
	DefaultMessageLimit   = 100
	MaxMessageLimit       = 500
)

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the handlers' dependencies.
type Services struct {
	Inventory    *inventory.Service
	Ingestion    *mlconnector.Service
	Conversation *conversation.Service
	Auth         *auth.Service
	Health       Pinger
}

// Options tunes the middleware chain.
type Options struct {
	CORSOrigin string
}

// Server routes requests to the services.
type Server struct {
	services Services
	logger   *slog.Logger
	handler  http.Handler
}

// NewServer builds the router and its middleware chain.
func NewServer(services Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		services: services,
		logger:   logger.With("component", "http"),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = withRecover(s.logger, h)
	h = withLogging(s.logger, h)
	h = withCORS(opts.CORSOrigin, h)
	h = withTracing(h)
	s.handler = h
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /ml-connector/inventory", s.saveInventory)
	mux.HandleFunc("GET /inventory/latest", s.latestInventory)
	mux.HandleFunc("GET /inventory/history", s.inventoryHistory)

	mux.HandleFunc("POST /message/threads", s.createThread)
	mux.HandleFunc("GET /message/threads", s.listThreads)
	mux.HandleFunc("GET /message/threads/{threadId}", s.getThread)
	mux.HandleFunc("DELETE /message/threads/{threadId}", s.deleteThread)
	mux.HandleFunc("GET /message/threads/{threadId}/messages", s.listMessages)
	mux.HandleFunc("POST /message/start", s.startConversation)
	mux.HandleFunc("POST /message/messages", s.createMessage)
	mux.HandleFunc("GET /message/messages/{messageId}", s.getMessage)
	mux.HandleFunc("PUT /message/messages/{messageId}", s.updateMessage)
	mux.HandleFunc("DELETE /message/messages/{messageId}", s.deleteMessage)

	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/signout", s.signOut)
	mux.HandleFunc("POST /auth/refresh", s.refresh)
	mux.HandleFunc("GET /auth/me", s.me)
	mux.HandleFunc("PUT /auth/profile", s.updateProfile)
	mux.HandleFunc("GET /auth/profile/{userId}", s.getProfile)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type pagedEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.services.Health != nil {
		if err := s.services.Health.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
