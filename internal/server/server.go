package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/turuturu/turuturu/internal/config"
	creditdomain "github.com/turuturu/turuturu/internal/credit/domain"
	"github.com/turuturu/turuturu/internal/identity"
	musicdomain "github.com/turuturu/turuturu/internal/music/domain"
	obsmetrics "github.com/turuturu/turuturu/internal/observability/metrics"
	orderdomain "github.com/turuturu/turuturu/internal/order/domain"
	paymentdomain "github.com/turuturu/turuturu/internal/payment/domain"
	profiledomain "github.com/turuturu/turuturu/internal/profile/domain"
	"github.com/turuturu/turuturu/internal/ratelimit"
	webhookdomain "github.com/turuturu/turuturu/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Rate-limit buckets, requests per minute per client IP.
const (
	authRatePerMinute    = 5
	paymentRatePerMinute = 10
	apiRatePerMinute     = 100
)

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	verifier   identity.Verifier
	limiter    ratelimit.Limiter
	profileSvc profiledomain.Service
	orderSvc   orderdomain.Service
	creditSvc  creditdomain.Service
	musicSvc   musicdomain.Service
	webhookSvc webhookdomain.Service
	gateway    paymentdomain.Gateway
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Verifier   identity.Verifier
	Limiter    ratelimit.Limiter
	ProfileSvc profiledomain.Service
	OrderSvc   orderdomain.Service
	CreditSvc  creditdomain.Service
	MusicSvc   musicdomain.Service
	WebhookSvc webhookdomain.Service
	Gateway    paymentdomain.Gateway
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		verifier:   p.Verifier,
		limiter:    p.Limiter,
		profileSvc: p.ProfileSvc,
		orderSvc:   p.OrderSvc,
		creditSvc:  p.CreditSvc,
		musicSvc:   p.MusicSvc,
		webhookSvc: p.WebhookSvc,
		gateway:    p.Gateway,
		obsMetrics: p.ObsMetrics,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", s.cfg.UploadDir)

	auth := r.Group("/auth", s.RateLimit("auth", authRatePerMinute))
	{
		auth.POST("/profile", s.UpsertProfile)
		auth.GET("/profile", s.AuthRequired(), s.GetProfile)
	}

	api := r.Group("/", s.RateLimit("api", apiRatePerMinute), s.AuthRequired())
	{
		api.POST("/orders", s.SubmitOrder)
		api.GET("/orders", s.ListOrders)
		api.GET("/orders/:id", s.GetOrder)
		api.PUT("/orders/:id", s.AdminRequired(), s.UpdateOrderStatus)

		api.POST("/music/upload", s.AdminRequired(), s.UploadMusic)
		api.POST("/music/lyrics", s.AdminRequired(), s.UpdateLyrics)
		api.DELETE("/music/:id", s.AdminRequired(), s.DeleteMusic)
	}

	payment := r.Group("/", s.RateLimit("payment", paymentRatePerMinute))
	{
		payment.POST("/checkout/sessions", s.AuthRequired(), s.CreateCheckoutSession)
		payment.POST("/webhook", s.HandleWebhook)
	}
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(SecurityHeaders())
	r.Use(ErrorHandlingMiddleware(cfg.IsProduction()))
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.ListenAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)
