package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/peqlink/internal/api/models"
	"github.com/smazurov/peqlink/internal/events"
	"github.com/smazurov/peqlink/internal/filterlist"
	"github.com/smazurov/peqlink/internal/logging"
	"github.com/smazurov/peqlink/internal/orchestrator"
	"github.com/smazurov/peqlink/internal/registry"
	"github.com/smazurov/peqlink/internal/version"
	"github.com/smazurov/peqlink/ui"
)

const authRealm = `Basic realm="peqlink API"`

// Server is the HTTP API in front of the orchestrator.
type Server struct {
	api          huma.API
	mux          *http.ServeMux
	httpServer   *http.Server
	orchestrator *orchestrator.Orchestrator
	filters      *filterlist.Store
	registry     *registry.Registry
	eventBus     *events.Bus
	options      *Options
	logger       *slog.Logger
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		credentials, err := requestCredentials(ctx)
		if err != nil {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, err.Error())
			return
		}
		if credentials == "" {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok || user != username || pass != password {
			ctx.SetHeader("WWW-Authenticate", authRealm)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

type authError string

func (e authError) Error() string { return string(e) }

// requestCredentials reads "user:pass" from the Authorization header or,
// for EventSource clients that cannot set headers, the auth query parameter.
func requestCredentials(ctx huma.Context) (string, error) {
	encoded := ""
	if header := ctx.Header("Authorization"); header != "" {
		const prefix = "Basic "
		if !strings.HasPrefix(header, prefix) {
			return "", authError("Invalid authentication type")
		}
		encoded = header[len(prefix):]
	} else {
		encoded = ctx.Query("auth")
	}
	if encoded == "" {
		return "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", authError("Invalid credentials format")
	}
	return string(decoded), nil
}

// Options configure the API server.
type Options struct {
	AuthUsername string
	AuthPassword string
	// CORSOrigin overrides the allowed origin, "*" when empty.
	CORSOrigin        string
	Orchestrator      *orchestrator.Orchestrator
	FilterList        *filterlist.Store
	Registry          *registry.Registry
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := newCORSPolicy(opts.CORSOrigin)
	cors.preflight(mux)

	config := huma.DefaultConfig("peqlink API", version.Get().Version)
	config.Info.Description = "Read and write parametric EQ on USB and network audio devices"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}

	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:          api,
		mux:          mux,
		orchestrator: opts.Orchestrator,
		filters:      opts.FilterList,
		registry:     opts.Registry,
		eventBus:     opts.EventBus,
		options:      opts,
		logger:       logging.GetLogger("api"),
	}

	// CORS, then request logging, then auth
	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(server.requestLogger(logging.GetLogger("http")))

	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus is scraped without auth
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	// The host page is served at the root; unknown /api paths stay 404
	if frontendHandler, err := ui.Handler(); err == nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api") {
				http.NotFound(w, r)
				return
			}
			frontendHandler.ServeHTTP(w, r)
		})
	}

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting peqlink API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and any open device session.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	if s.orchestrator != nil {
		s.orchestrator.Close()
	}

	// Force immediate shutdown - SSE streams never finish on their own
	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		body := models.HealthData{Status: "ok", Message: "API is healthy"}
		if s.orchestrator != nil {
			_, err := s.orchestrator.Session()
			body.Connected = err == nil
		}
		if s.eventBus != nil {
			body.DroppedEvents = s.eventBus.Dropped()
		}
		return &models.HealthResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		return &models.VersionResponse{Body: version.Get()}, nil
	})

	s.registerDeviceRoutes()
	s.registerSessionRoutes()
	s.registerFilterRoutes()
	s.registerRegistryRoutes()
	s.registerLogRoutes()
	s.registerSSERoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
