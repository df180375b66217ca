// Package gateway assembles the request-admission layer: token validation,
// revocation, identity propagation, circuit breaking and the fallback
// endpoints, served from a single gin engine.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/appigle/gateway/internal/auth"
	"github.com/appigle/gateway/internal/auth/blacklist"
	"github.com/appigle/gateway/internal/auth/jwt"
	"github.com/appigle/gateway/internal/config"
	"github.com/appigle/gateway/internal/fallback"
	"github.com/appigle/gateway/internal/middleware"
	"github.com/appigle/gateway/internal/observability"
	"github.com/appigle/gateway/internal/response"
	"github.com/appigle/gateway/internal/secrets"
)

// Gateway owns the HTTP server and every admission component.
type Gateway struct {
	cfg    *config.Config
	logger *zap.Logger
	tracer *observability.Tracer

	engine     *gin.Engine
	server     *http.Server
	store      blacklist.Store
	validator  jwt.Validator
	controller *fallback.Controller
	downstream http.Handler
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger instead of building one from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithDownstream sets the handler receiving admitted requests. Without it the
// gateway answers 404 for any route it does not serve itself.
func WithDownstream(handler http.Handler) Option {
	return func(g *Gateway) {
		g.downstream = handler
	}
}

// New creates a Gateway from the configuration, wiring every component.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	g := &Gateway{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		logger, err := observability.NewLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		g.logger = logger
	}

	tracer, err := observability.NewTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	g.tracer = tracer

	secret, err := secrets.ResolveJWTSecret(ctx, cfg, g.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve jwt secret: %w", err)
	}

	store, err := blacklist.New(cfg.Auth.Blacklist, g.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create blacklist store: %w", err)
	}
	g.store = store

	codec := jwt.NewCodec(jwt.CodecConfig{
		Secret:     []byte(secret),
		Issuer:     cfg.Auth.JWT.Issuer,
		Audience:   cfg.Auth.JWT.Audience,
		Algorithms: cfg.Auth.JWT.Algorithms,
	})

	g.validator = jwt.NewValidator(codec, store, jwt.ValidatorConfig{
		TokenTypes:   cfg.Auth.JWT.TokenTypes,
		ClockSkew:    cfg.Auth.JWT.ClockSkew.Duration(),
		CacheEnabled: cfg.Auth.Cache.Enabled,
		CacheTTL:     cfg.Auth.Cache.TTL.Duration(),
		FailClosed:   cfg.Auth.Blacklist.FailClosed,
	}, jwt.WithLogger(g.logger))

	g.controller = fallback.NewController(cfg.Fallback.RetryAfterBase.Duration(), g.logger)

	g.engine = g.buildEngine()
	g.server = &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      g.engine,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
	}

	return g, nil
}

func (g *Gateway) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	responses := response.NewBuilder(g.cfg.Errors)
	classifier := auth.NewClassifier(g.cfg.Auth.PublicPaths.Global, g.cfg.Auth.PublicPaths.ByMethod)
	rewriter := auth.NewHeaderRewriter(g.cfg.Auth.Propagation)

	engine.Use(
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    g.logger,
			SkipPaths: []string{"/health", "/metrics"},
		}),
		middleware.Recovery(g.logger, responses),
		auth.Middleware(auth.MiddlewareConfig{
			Validator:  g.validator,
			Classifier: classifier,
			Rewriter:   rewriter,
			Responses:  responses,
			Logger:     g.logger,
		}),
		middleware.CircuitBreaker(middleware.CircuitBreakerConfig{
			Fallback:  g.controller,
			Responses: responses,
			Logger:    g.logger,
			// Self-served routes answer for downstream outages; their 503s
			// must not trip a breaker of their own.
			SkipPaths: []string{"/health", "/metrics", "/fallback", "/admin"},
		}),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metricsHandler()))

	fallbackHandler := fallback.NewHandler(g.controller, responses)
	fallbackHandler.Register(engine)
	fallbackHandler.RegisterAdmin(engine)

	revokeHandler := blacklist.NewAdminHandler(g.store, g.cfg.Auth.Blacklist.DefaultTTL.Duration(), responses, g.logger)
	revokeHandler.Register(engine)

	engine.NoRoute(func(c *gin.Context) {
		if g.downstream != nil {
			g.downstream.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "no route"})
	})

	return engine
}

// metricsHandler serves every package registry from one endpoint.
func metricsHandler() http.Handler {
	registry := prometheus.NewRegistry()
	jwtMetrics := jwt.GetSharedMetrics()
	jwtMetrics.Init()
	jwtMetrics.MustRegister(registry)
	fallback.GetSharedMetrics().MustRegister(registry)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Engine returns the underlying gin engine.
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// Start begins serving. It blocks until the server stops.
func (g *Gateway) Start() error {
	g.logger.Info("gateway listening", zap.String("address", g.cfg.Server.ListenAddress))
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully and releases component resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("gateway shutting down")

	var firstErr error
	if err := g.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}
	if err := g.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("blacklist close: %w", err)
	}
	if err := g.tracer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("tracer shutdown: %w", err)
	}
	return firstErr
}
