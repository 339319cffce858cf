// Package server exposes the key tuner over HTTP.
//
// POST /analyze takes a multipart "file" upload, analyses it and stores the
// clip under a session token. POST /key_switch retunes a stored clip to
// "desired_key" and replies with WAV audio.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-keytune/audioio"
	"github.com/cwbudde/algo-keytune/client"
	"github.com/cwbudde/algo-keytune/internal/config"
	"github.com/cwbudde/algo-keytune/internal/metrics"
	"github.com/cwbudde/algo-keytune/internal/session"
	"github.com/cwbudde/algo-keytune/keytune"
)

// Server holds the shared state of the HTTP service. Per-clip state lives
// in the session store only.
type Server struct {
	cfg       *config.Config
	tuner     *keytune.KeyTuner
	store     session.Store
	pool      *workerPool
	channels  audioio.ChannelMode
	maxUpload int64
	counter   *requestCounter
}

// New builds a server. The store is owned by the caller.
func New(cfg *config.Config, tuner *keytune.KeyTuner, store session.Store) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxUpload, err := cfg.MaxUploadBytes()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		tuner:     tuner,
		store:     store,
		pool:      newWorkerPool(cfg.Server.Workers),
		channels:  cfg.ChannelMode(),
		maxUpload: maxUpload,
		counter:   &requestCounter{},
	}, nil
}

// Handler returns the routed, optionally rate limited, HTTP handler.
func (s *Server) Handler() http.Handler {
	rtr := mux.NewRouter()

	optionsHandler := s.route(emptyHandler, "options_request", 0)
	analyzeHandler := s.route(s.analyze, "analyze", s.maxUpload)
	keySwitchHandler := s.route(s.keySwitch, "key_switch", multipartMemory)
	healthzHandler := s.route(healthHandler, "healthz", 0)

	routes := []struct {
		path    string
		method  string
		handler handler
	}{
		{"/analyze", http.MethodPost, analyzeHandler},
		{"/key_switch", http.MethodPost, keySwitchHandler},
		{"/healthz", http.MethodGet, healthzHandler},
	}
	for _, route := range routes {
		logrus.Debug("Registering route: " + route.method + " " + route.path)
		rtr.Handle(route.path, route.handler).Methods(route.method)
		rtr.Handle(route.path, optionsHandler).Methods(http.MethodOptions)
	}

	if s.cfg.Metrics.Enabled {
		rtr.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	rtr.NotFoundHandler = s.route(notFoundHandler, "not_found", 0)
	rtr.MethodNotAllowedHandler = s.route(methodNotAllowedHandler, "method_not_allowed", 0)

	var h http.Handler = rtr
	if s.cfg.RateLimit.Enabled {
		logrus.Info("Enabling rate limit")
		limiter := tollbooth.NewLimiter(0, nil)
		limiter.SetIPLookups([]string{"X-Forwarded-For", "X-Real-IP", "RemoteAddr"})
		limiter.SetTokenBucketExpirationTTL(time.Hour)
		limiter.SetBurst(s.cfg.RateLimit.Burst)
		limiter.SetMax(s.cfg.RateLimit.RequestsPerSecond)

		b, _ := json.Marshal(client.RateLimitReached())
		limiter.SetMessage(string(b))
		limiter.SetMessageContentType("application/json")

		h = tollbooth.LimitHandler(limiter, rtr)
	}
	return h
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("address", srv.Addr).Info("Started up. Listening at http://" + srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server: shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server: listen")
	}
	return nil
}

// Close stops the worker pool.
func (s *Server) Close() {
	s.pool.close()
}

func (s *Server) route(h func(*http.Request, *logrus.Entry) interface{}, action string, maxBody int64) handler {
	return handler{h: h, action: action, reqCounter: s.counter, maxBody: maxBody}
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.Server.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.Server.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}
