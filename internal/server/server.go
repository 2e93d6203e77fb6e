package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/podslice/podslice/internal/analytics"
	analyticsdomain "github.com/podslice/podslice/internal/analytics/domain"
	"github.com/podslice/podslice/internal/config"
	"github.com/podslice/podslice/internal/content"
	contentdomain "github.com/podslice/podslice/internal/content/domain"
	obstracing "github.com/podslice/podslice/internal/observability/tracing"
	"github.com/podslice/podslice/internal/organization"
	organizationdomain "github.com/podslice/podslice/internal/organization/domain"
	"github.com/podslice/podslice/internal/payout"
	payoutdomain "github.com/podslice/podslice/internal/payout/domain"
	payoutprovider "github.com/podslice/podslice/internal/providers/payout"
	"github.com/podslice/podslice/internal/royalty"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
	"github.com/podslice/podslice/internal/tracking"
	trackingdomain "github.com/podslice/podslice/internal/tracking/domain"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	organization.Module,
	content.Module,
	tracking.Module,
	analytics.Module,
	royalty.Module,
	payoutprovider.Module,
	payout.Module,
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the gin engine. The tracer provider parameter keeps the
// trace pipeline in the dependency graph; the middleware itself reads the
// registered global.
func NewEngine(cfg config.Config, log *zap.Logger, _ trace.TracerProvider) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obstracing.GinMiddleware())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	organizationSvc organizationdomain.Service
	contentSvc      contentdomain.Service
	trackingSvc     trackingdomain.Service
	analyticsSvc    analyticsdomain.Service
	royaltySvc      royaltydomain.Service
	payoutSvc       payoutdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	OrganizationSvc organizationdomain.Service
	ContentSvc      contentdomain.Service
	TrackingSvc     trackingdomain.Service
	AnalyticsSvc    analyticsdomain.Service
	RoyaltySvc      royaltydomain.Service
	PayoutSvc       payoutdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		organizationSvc: p.OrganizationSvc,
		contentSvc:      p.ContentSvc,
		trackingSvc:     p.TrackingSvc,
		analyticsSvc:    p.AnalyticsSvc,
		royaltySvc:      p.RoyaltySvc,
		payoutSvc:       p.PayoutSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/organizations", s.CreateOrganization)

	org := v1.Group("", s.OrgContext())

	org.GET("/organizations/current", s.GetCurrentOrganization)

	// -------- Podcasts & Content --------
	org.POST("/podcasts", s.CreatePodcast)
	org.POST("/contents", s.CreateContent)
	org.GET("/contents", s.ListContent)

	// -------- Tracking --------
	org.POST("/events", s.RecordEvent)
	org.GET("/events", s.ListEvents)

	// -------- Analytics --------
	org.POST("/analytics/aggregate", s.AdminRequired(), s.AggregateAnalytics)
	org.GET("/analytics/rollups", s.ListRollups)

	// -------- Royalties --------
	org.POST("/royalties/calculate", s.AdminRequired(), s.CalculateRoyalties)
	org.GET("/royalties/statements", s.ListStatements)
	org.GET("/royalties/statements/:id", s.GetStatement)
	org.POST("/royalties/statements/:id/payout", s.AdminRequired(), s.PayoutStatement)

	// -------- Payout Onboarding --------
	org.POST("/payouts/payee", s.AdminRequired(), s.RegisterPayee)
	org.POST("/payouts/tax-profile", s.AdminRequired(), s.SubmitTaxProfile)
	org.POST("/payouts/status/sync", s.AdminRequired(), s.SyncPayoutStatus)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
