// Package gateway is the HTTP transport boundary: REST endpoints for
// sessions, orchestration, and the individual tools, the webhook ingress,
// the orchestration event stream, and the mounted A2A surface.
package gateway

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NaveenPalisetti/meetingmcp/pkg/mcp"
	"github.com/NaveenPalisetti/meetingmcp/pkg/orchestrator"
	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// ephemeralAgentID tags the short-lived sessions the gateway opens around
// stateless REST calls.
const ephemeralAgentID = "http-client"

type Gateway struct {
	server    *http.Server
	router    *chi.Mux
	host      *mcp.Host
	orch      *orchestrator.Orchestrator
	logger    *slog.Logger
	webhooks  http.Handler
	a2a       http.Handler
	authToken string
}

type Config struct {
	Bind      string
	Port      int
	Host      *mcp.Host
	Orch      *orchestrator.Orchestrator
	Logger    *slog.Logger
	Webhooks  http.Handler
	A2A       http.Handler
	AuthToken string
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsMiddleware)

	g := &Gateway{
		router:    r,
		host:      cfg.Host,
		orch:      cfg.Orch,
		logger:    telemetry.Component(cfg.Logger, "gateway"),
		webhooks:  cfg.Webhooks,
		a2a:       cfg.A2A,
		authToken: cmp.Or(cfg.AuthToken, os.Getenv("MCP_API_KEY")),
	}

	g.registerRoutes()

	addr := resolveAddr(cfg.Bind, cfg.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return g
}

func (g *Gateway) registerRoutes() {
	g.router.Get("/health", g.handleHealth)
	g.router.Get("/readyz", g.handleReadyz)
	g.router.Handle("/metrics", promhttp.Handler())

	// The A2A handler runs its own auth; the agent card stays public.
	if g.a2a != nil {
		g.router.Handle("/.well-known/agentcard", g.a2a)
		g.router.Handle("/a2a", g.a2a)
		g.router.Handle("/a2a/*", g.a2a)
	}

	g.router.Group(func(r chi.Router) {
		if g.authToken != "" {
			r.Use(g.authMiddleware)
		}
		r.Get("/", g.handleIndex)

		r.Post("/session/create", g.handleSessionCreate)
		r.Post("/session/{id}/end", g.handleSessionEnd)

		r.Post("/mcp/orchestrate", g.handleOrchestrate)
		r.Get("/mcp/tools", g.handleTools)
		r.Post("/mcp/transcript", g.toolHandler("transcript"))
		r.Post("/mcp/summarize", g.toolHandler("summarization"))
		r.Post("/mcp/jira", g.toolHandler("jira"))
		r.Post("/mcp/risk", g.toolHandler("risk"))
		r.Post("/mcp/calendar", g.toolHandler("calendar"))
		r.Post("/mcp/notify", g.toolHandler("notification"))

		r.Get("/ws", g.handleEvents)
		if g.webhooks != nil {
			r.Post("/webhooks", g.webhooks.ServeHTTP)
		}
	})
}

func (g *Gateway) Start(ctx context.Context) error {
	g.logger.Info("gateway listening", slog.String("addr", g.server.Addr))

	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return g.shutdown()
	case err := <-errCh:
		return err
	}
}

func (g *Gateway) shutdown() error {
	g.logger.Info("gateway shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ready": g.host != nil})
}

func (g *Gateway) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ready"}`)
}

// authMiddleware accepts the configured key as either a bearer token or an
// X-Api-Key header.
func (g *Gateway) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
		if token == "" {
			token = r.Header.Get("X-Api-Key")
		}
		if token != g.authToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		telemetry.Metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		telemetry.Metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func resolveAddr(bind string, port int) string {
	var host string
	switch bind {
	case "lan", "all":
		host = "0.0.0.0"
	case "loopback", "":
		host = "127.0.0.1"
	default:
		host = bind
	}
	return fmt.Sprintf("%s:%d", host, port)
}
