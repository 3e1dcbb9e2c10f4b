package sponsor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"tooma/internal/chain"
)

// BuildFunc is the sponsorship primitive the server invokes per request. In
// production it closes over the chain client and the fee payer account;
// tests substitute fakes.
type BuildFunc func(ctx context.Context, sender string, intent chain.PaymentIntent) (*chain.SponsoredEnvelope, error)

// Options configures the sponsor HTTP server.
type Options struct {
	ListenAddr     string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server exposes the fee-payer signing endpoint. The sponsor private key
// never leaves this process; callers only ever see signed envelopes.
type Server struct {
	build  BuildFunc
	opts   Options
	logger zerolog.Logger
	srv    *http.Server
}

// NewServer builds the sponsor server around a signing func.
func NewServer(build BuildFunc, opts Options, logger zerolog.Logger) *Server {
	if opts.ListenAddr == "" {
		opts.ListenAddr = ":8090"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{
		build:  build,
		opts:   opts,
		logger: logger.With().Str("component", "sponsor").Logger(),
	}
	s.srv = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(s.requestLogger)
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/payment-transaction", s.handlePaymentTransaction)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePaymentTransaction(w http.ResponseWriter, r *http.Request) {
	var req chain.SponsorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Address == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("address is required"))
		return
	}
	if req.MetadataAddress == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("metadata_address is required"))
		return
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil || amount == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("amount must be a positive integer"))
		return
	}
	envelope, err := s.build(r.Context(), req.Address, chain.PaymentIntent{
		MetadataAddress: req.MetadataAddress,
		AmountBaseUnits: amount,
		SessionID:       req.PaymentSessionID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("sender", req.Address).Msg("sponsorship failed")
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("build sponsored transaction: %w", err))
		return
	}
	s.logger.Info().
		Str("sender", req.Address).
		Str("session", req.PaymentSessionID).
		Uint64("base_units", amount).
		Msg("payment sponsored")
	writeJSON(w, http.StatusOK, envelope)
}

// ListenAndServe runs the server until the listener fails or Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("sponsor server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("sponsor: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
