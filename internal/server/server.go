package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/ocelon/parking/internal/audit/domain"
	"github.com/ocelon/parking/internal/auth/token"
	"github.com/ocelon/parking/internal/config"
	dashboarddomain "github.com/ocelon/parking/internal/dashboard/domain"
	lotdomain "github.com/ocelon/parking/internal/lot/domain"
	"github.com/ocelon/parking/internal/observability/logger"
	"github.com/ocelon/parking/internal/observability/metrics"
	paymentdomain "github.com/ocelon/parking/internal/payment/domain"
	plandomain "github.com/ocelon/parking/internal/plan/domain"
	sessiondomain "github.com/ocelon/parking/internal/session/domain"
	supportdomain "github.com/ocelon/parking/internal/support/domain"
	userdomain "github.com/ocelon/parking/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Issuer       *token.Issuer
	LotSvc       lotdomain.Service
	SessionSvc   sessiondomain.Service
	PaymentSvc   paymentdomain.Service
	PlanSvc      plandomain.Service
	UserSvc      userdomain.Service
	SupportSvc   supportdomain.Service
	DashboardSvc dashboarddomain.Service
	AuditSvc     auditdomain.Service
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	issuer       *token.Issuer
	limiter      *rateLimiter
	lotSvc       lotdomain.Service
	sessionSvc   sessiondomain.Service
	paymentSvc   paymentdomain.Service
	planSvc      plandomain.Service
	userSvc      userdomain.Service
	supportSvc   supportdomain.Service
	dashboardSvc dashboarddomain.Service
	auditSvc     auditdomain.Service
}

func NewServer(p Params) *Server {
	limit := p.Cfg.RateLimit.AuthLimit
	if limit <= 0 {
		limit = 20
	}
	window := p.Cfg.RateLimit.AuthWindow
	if window <= 0 {
		window = time.Minute
	}
	return &Server{
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		issuer:       p.Issuer,
		limiter:      newRateLimiter(limit, window),
		lotSvc:       p.LotSvc,
		sessionSvc:   p.SessionSvc,
		paymentSvc:   p.PaymentSvc,
		planSvc:      p.PlanSvc,
		userSvc:      p.UserSvc,
		supportSvc:   p.SupportSvc,
		dashboardSvc: p.DashboardSvc,
		auditSvc:     p.AuditSvc,
	}
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger, m *metrics.HTTPMetrics, s *Server) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(metrics.GinMiddleware(m))
	s.registerRoutes(engine)
	return engine
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Health)

	api := engine.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.authRateLimit(), s.Register)
	auth.POST("/login", s.authRateLimit(), s.Login)
	auth.POST("/forgot-password", s.authRateLimit(), s.ForgotPassword)
	auth.GET("/verify-reset-token", s.VerifyResetToken)
	auth.POST("/reset-password", s.authRateLimit(), s.ResetPassword)
	auth.GET("/verify", s.AuthRequired(), s.Verify)
	auth.POST("/logout", s.AuthRequired(), s.Logout)

	public := api.Group("/parking")
	public.GET("/lots", s.ListLots)
	public.GET("/lots/:id", s.GetLot)
	api.GET("/parking-lots/nearby", s.NearbyLots)

	authed := api.Group("", s.AuthRequired())
	{
		authed.POST("/sessions", s.StartSession)
		authed.GET("/sessions", s.ListMySessions)
		authed.GET("/sessions/:id", s.GetSession)
		authed.POST("/sessions/:id/validate", s.ValidateExit)

		authed.POST("/payments/process", s.ProcessPayment)
		authed.GET("/payments", s.ListMyPayments)
		authed.GET("/payments/:id", s.GetPayment)
		authed.POST("/payments/:id/invoice", s.RequestInvoice)

		authed.GET("/plans", s.ListPlans)
		authed.POST("/users/plan", s.PurchasePlan)
		authed.GET("/users/:id", s.GetUser)
		authed.PUT("/users/:id", s.UpdateProfile)
		authed.GET("/users/:id/history", s.UserHistory)

		authed.GET("/support/tickets", s.ListMyTickets)
		authed.POST("/support/tickets", s.CreateTicket)
		authed.GET("/support/tickets/:id", s.GetTicket)
		authed.PUT("/support/tickets/:id", s.UpdateMyTicket)

		authed.GET("/dashboard/overview", s.UserOverview)
	}

	admin := api.Group("/admin", s.AuthRequired(), s.RequireAdmin())
	{
		admin.GET("/parking-lots", s.AdminListLots)
		admin.POST("/parking-lots", s.CreateLot)
		admin.PUT("/parking-lots/:id", s.UpdateLot)
		admin.DELETE("/parking-lots/:id", s.DeactivateLot)
		admin.PATCH("/parking-lots/:id/occupancy", s.SetOccupancy)

		admin.GET("/sessions", s.AdminListActiveSessions)
		admin.POST("/sessions/:id/cancel", s.CancelSession)

		admin.GET("/payments/report/summary", s.RevenueSummary)

		admin.GET("/users", s.AdminListUsers)
		admin.PATCH("/users/:id/role", s.SetUserRole)
		admin.PATCH("/users/:id/status", s.SetUserStatus)

		admin.GET("/support/tickets", s.AdminListTickets)
		admin.POST("/support/tickets/:id/reply", s.AdminReplyTicket)
		admin.PATCH("/support/tickets/:id/status", s.AdminSetTicketStatus)
		admin.GET("/support/stats", s.TicketStats)

		admin.GET("/analytics", s.AdminAnalytics)
		admin.GET("/audit-logs", s.AdminListAuditLogs)
	}
}

// Health answers liveness probes; it also pings the database.
func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Provide(NewEngine),
	fx.Invoke(RunHTTP),
)
