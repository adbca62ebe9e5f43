package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/room4-2/OpenOrder/config"
	"github.com/room4-2/OpenOrder/dialogue"
	"github.com/room4-2/OpenOrder/menu"
	"github.com/room4-2/OpenOrder/messages"
	"github.com/room4-2/OpenOrder/order"
	"github.com/room4-2/OpenOrder/session"
	"github.com/room4-2/OpenOrder/store"
)

const MaxBodyBytes = 10 << 20

// Tickets is the ticket side of the API.
type Tickets interface {
	TicketStatus(ctx context.Context, ticketID string) (*order.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, status order.TicketStatus) error
	ListTickets(ctx context.Context, view store.View) ([]*order.Ticket, error)
}

// MenuReloader refreshes the menu snapshot.
type MenuReloader interface {
	Reload(ctx context.Context) (*menu.Catalog, error)
}

// APIDeps are the collaborators of the HTTP API.
type APIDeps struct {
	Turns   session.TurnHandler
	Tickets Tickets
	Menu    MenuReloader
	// OnMenuReload runs after a successful reload, to tell other replicas.
	OnMenuReload func() error
}

// APIServer serves the JSON API: turns, the kitchen board and menu reloads.
type APIServer struct {
	httpServer *http.Server
	deps       APIDeps
	config     *config.Config
	logger     *slog.Logger
}

func NewAPIServer(cfg *config.Config, deps APIDeps, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &APIServer{deps: deps, config: cfg, logger: logger.With("server", "http")}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer, s.logRequests)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/turn", s.handleTurn)
		r.Get("/tickets", s.handleListTickets)
		r.Get("/tickets/{id}", s.handleGetTicket)
		r.Patch("/tickets/{id}/status", s.handleUpdateStatus)
		r.Get("/stats", s.handleStats)
		r.Post("/menu/reload", s.handleMenuReload)
	})

	// Standalone HTTP servers use the main port
	port := cfg.HTTPPort
	if cfg.ServerType == config.ServerHTTP {
		port = cfg.Port
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.TurnTimeout + 10*time.Second,
	}
	return s
}

// Handler exposes the routes for tests.
func (s *APIServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests
func (s *APIServer) Start() error {
	s.logger.Info("http api starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http api")
	return s.httpServer.Shutdown(ctx)
}

func (s *APIServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	messages.TurnPayload
}

type turnResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok", "server": "http"})
}

func (s *APIServer) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(0); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := dialogue.Message{Text: req.Text}
	for _, a := range req.Attachments {
		data, err := a.Bytes()
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		mime := a.MIMEType
		if mime == "" {
			mime = http.DetectContentType(data)
		}
		msg.Attachments = append(msg.Attachments, dialogue.Attachment{Name: a.Name, MIMEType: mime, Data: data})
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	reply := s.deps.Turns.HandleTurn(r.Context(), sessionID, msg)
	respond(w, http.StatusOK, turnResponse{SessionID: sessionID, Reply: reply})
}

func (s *APIServer) handleListTickets(w http.ResponseWriter, r *http.Request) {
	view := store.View(r.URL.Query().Get("view"))
	switch view {
	case "":
		view = store.ViewBoard
	case store.ViewBoard, store.ViewHistory:
	default:
		respondError(w, http.StatusBadRequest, "view must be 'board' or 'history'")
		return
	}

	tickets, err := s.deps.Tickets.ListTickets(r.Context(), view)
	if err != nil {
		s.logger.Error("cannot list tickets", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not list tickets")
		return
	}
	if tickets == nil {
		tickets = []*order.Ticket{}
	}
	respond(w, http.StatusOK, map[string]any{"tickets": tickets})
}

func (s *APIServer) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Tickets.TicketStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.ticketError(w, err)
		return
	}
	respond(w, http.StatusOK, t)
}

func (s *APIServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	status := order.TicketStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err := s.deps.Tickets.UpdateStatus(r.Context(), id, status); err != nil {
		s.ticketError(w, err)
		return
	}

	t, err := s.deps.Tickets.TicketStatus(r.Context(), id)
	if err != nil {
		s.ticketError(w, err)
		return
	}
	respond(w, http.StatusOK, t)
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	board, err := s.deps.Tickets.ListTickets(r.Context(), store.ViewBoard)
	if err != nil {
		s.logger.Error("cannot list tickets", "view", store.ViewBoard, "error", err)
		respondError(w, http.StatusInternalServerError, "Could not compute stats")
		return
	}
	respond(w, http.StatusOK, store.Summarize(board))
}

func (s *APIServer) handleMenuReload(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Menu.Reload(r.Context())
	if err != nil {
		s.logger.Error("menu reload failed", "error", err)
		respondError(w, http.StatusBadGateway, "Could not reload the menu")
		return
	}
	if s.deps.OnMenuReload != nil {
		if err := s.deps.OnMenuReload(); err != nil {
			s.logger.Warn("menu change not announced", "error", err)
		}
	}
	respond(w, http.StatusOK, map[string]any{"items": c.Len(), "names": c.Names()})
}

func (s *APIServer) ticketError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Ticket not found")
	case errors.Is(err, store.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("ticket request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Could not reach the ticket store")
	}
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("cannot read body: %w", err)
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func respond(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
