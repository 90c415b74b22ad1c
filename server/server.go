package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/birmacher/tutor-relay/common"
	"github.com/birmacher/tutor-relay/logger"
	"github.com/birmacher/tutor-relay/metrics"
	"github.com/birmacher/tutor-relay/relay"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// New constructs the HTTP handler exposing GET /chat.
func New(cfg common.Server, rl *relay.Relay) http.Handler {
	r := chi.NewRouter()
	if cfg.AllowedOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{cfg.AllowedOrigin},
			AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}))
	}
	for _, m := range middlewareChain() {
		r.Use(m)
	}

	r.Get("/chat", ChatHandler(rl))
	return r
}

func middlewareChain() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
		requestLogger,
		chiMiddleware.Recoverer,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Infow("request",
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// ChatHandler streams the relay's frames for the prompt query parameter.
//
// The upstream call is established before any header is written, so a
// failure to reach the provider is answered with 500 rather than an empty
// 200 stream. Once streaming has started every ending closes the response
// without an in-band error.
func ChatHandler(rl *relay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if !query.Has("prompt") {
			metrics.RecordChatRequest(rl.Model(), metrics.OutcomeBadRequest)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": "missing query parameter: prompt",
			})
			return
		}
		prompt := query.Get("prompt")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		frames, err := rl.Chat(ctx, prompt)
		if err != nil {
			logger.Errorw("Upstream call failed",
				"request_id", chiMiddleware.GetReqID(r.Context()),
				"model", rl.Model(),
				"error", err,
			)
			metrics.RecordChatRequest(rl.Model(), metrics.OutcomeUpstreamError)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		metrics.RecordChatRequest(rl.Model(), metrics.OutcomeStreamed)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for frame := range frames {
			if _, err := io.WriteString(w, frame); err != nil {
				logger.Debugw("Client went away", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newHTTPServer bounds how long a client may take to send request headers.
// No write timeout is set, so a response stream lasts as long as the upstream.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Run serves handler on cfg.Addr, and metricsHandler on cfg.MetricsAddr when
// both are set, until ctx is cancelled. In-flight streams get shutdownTimeout
// to finish before connections are closed.
func Run(ctx context.Context, cfg common.Server, handler, metricsHandler http.Handler) error {
	servers := []*http.Server{newHTTPServer(cfg.Addr, handler)}
	if cfg.MetricsAddr != "" && metricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		servers = append(servers, newHTTPServer(cfg.MetricsAddr, mux))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Infow("Listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case runErr = <-errCh:
		logger.Errorw("Server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("Forcing close", "addr", srv.Addr, "error", err)
			_ = srv.Close()
		}
	}
	return runErr
}
