package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/observability"
	obsmiddleware "github.com/smallbiznis/warranty/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/warranty/internal/observability/metrics"
	obstracing "github.com/smallbiznis/warranty/internal/observability/tracing"
	"github.com/smallbiznis/warranty/internal/providers/pdf"
	"github.com/smallbiznis/warranty/internal/ratelimit"
	"github.com/smallbiznis/warranty/internal/warranty"
	warrantydomain "github.com/smallbiznis/warranty/internal/warranty/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	warranty.Module,
	pdf.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// RunHTTP serves the registered routes for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	warrantySvc  warrantydomain.Service
	obsMetrics   *obsmetrics.Metrics
	issueLimiter *ratelimit.QuoteIssueLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	WarrantySvc  warrantydomain.Service
	ObsMetrics   *obsmetrics.Metrics          `optional:"true"`
	IssueLimiter *ratelimit.QuoteIssueLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		warrantySvc:  p.WarrantySvc,
		obsMetrics:   p.ObsMetrics,
		issueLimiter: p.IssueLimiter,
	}

	s.registerWarrantyRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWarrantyRoutes() {
	api := s.engine.Group("/api/warranty")

	api.GET("/tiers", s.ListTiers)
	api.GET("/quotes", s.ListQuotes)
	api.GET("/quotes/:tier_id", s.GetQuoteForTier)
	api.GET("/recommendation", s.GetRecommendation)
	api.GET("/format", s.FormatPrice)

	api.POST("/issued", s.QuoteIssueRateLimit(), s.IssueQuote)
	api.GET("/issued", s.ListIssuedQuotes)
	api.GET("/issued/:id", s.GetIssuedQuote)
	api.GET("/issued/:id/pdf", s.RenderIssuedQuote)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
