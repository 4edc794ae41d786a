// Package web serves the deck over a small JSON HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/conorfennell/flashdeck/internal/codec"
	"github.com/conorfennell/flashdeck/internal/deck"
)

// maxImportBytes bounds the size of an import request body.
const maxImportBytes = 10 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	deck    *deck.Deck
	router  *http.ServeMux
	handler http.Handler
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics in m and serves them on /metrics. A
// Metrics value can back only one server.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates and configures a new server.
func NewServer(d *deck.Deck, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deck:   d,
		router: http.NewServeMux(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()

	s.handler = s.router
	if s.metrics != nil {
		s.metrics.trackDeck(s)
		s.handler = s.metrics.instrument(s.router)
	}
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /cards/current", s.handleGetCurrent())
	s.router.HandleFunc("POST /cards/current/known", s.handleReview(true))
	s.router.HandleFunc("POST /cards/current/unknown", s.handleReview(false))

	s.router.HandleFunc("GET /cards", s.handleGetCards())
	s.router.HandleFunc("POST /cards", s.handlePostCard())
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard())

	s.router.HandleFunc("GET /due", s.handleGetDue())
	s.router.HandleFunc("GET /stats", s.handleGetStats())
	s.router.HandleFunc("GET /snapshot", s.handleGetSnapshot())
	s.router.HandleFunc("GET /export", s.handleGetExport())
	s.router.HandleFunc("POST /import", s.handlePostImport())
	s.router.HandleFunc("POST /import/validate", s.handleValidateImport())

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.handler())
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string        `json:"error"`
	Issues []codec.Issue `json:"issues,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

// handleGetCurrent returns the card to study next.
func (s *Server) handleGetCurrent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.deck.Current()
		if !ok {
			s.writeError(w, http.StatusNotFound, "deck is empty")
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

// handleReview records the outcome for the current card and returns it
// rescheduled.
func (s *Server) handleReview(known bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mark := s.deck.MarkNotKnown
		if known {
			mark = s.deck.MarkKnown
		}
		card, ok := mark(r.Context())
		if !ok {
			s.writeError(w, http.StatusNotFound, "deck is empty")
			return
		}
		if s.metrics != nil {
			s.metrics.review(known)
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleGetCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.deck.Cards())
	}
}

type newCard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// handlePostCard adds a card from a {question, answer} body.
func (s *Server) handlePostCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body newCard
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		card, err := s.deck.AddCard(r.Context(), body.Question, body.Answer)
		if errors.Is(err, deck.ErrInvalidCard) {
			s.writeError(w, http.StatusBadRequest, "question and answer are required")
			return
		}
		if err != nil {
			s.logger.Error("Failed to add card", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.writeJSON(w, http.StatusCreated, card)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.deck.RemoveCard(r.Context(), r.PathValue("id")) {
			s.writeError(w, http.StatusNotFound, "card not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.deck.DueCounts(s.now()))
	}
}

func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.deck.Stats(s.now()))
	}
}

func (s *Server) handleGetSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.deck.ExportSnapshot())
	}
}

// handleGetExport returns the export file as a download.
func (s *Server) handleGetExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := s.now()
		w.Header().Set("Content-Disposition", `attachment; filename="`+codec.FileName(now)+`"`)
		s.writeJSON(w, http.StatusOK, s.deck.Export(now))
	}
}

// handlePostImport replaces the deck with the posted snapshot or card list.
func (s *Server) handlePostImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := codec.Decode(http.MaxBytesReader(w, r.Body, maxImportBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if err := s.deck.Import(r.Context(), payload); err != nil {
			body := errorBody{Error: err.Error()}
			var verr *codec.ValidationError
			if errors.As(err, &verr) {
				body.Issues = verr.Issues
			}
			s.writeJSON(w, http.StatusUnprocessableEntity, body)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"cards": len(s.deck.Cards())})
	}
}

// handleValidateImport reports what an import would do without applying it.
func (s *Server) handleValidateImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := codec.Decode(http.MaxBytesReader(w, r.Body, maxImportBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		s.writeJSON(w, http.StatusOK, codec.ValidateImportedData(payload, s.now()))
	}
}
