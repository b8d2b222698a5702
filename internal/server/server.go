package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/claimflow/internal/authorization"
	"github.com/fieldops/claimflow/internal/claim"
	claimdomain "github.com/fieldops/claimflow/internal/claim/domain"
	"github.com/fieldops/claimflow/internal/clock"
	"github.com/fieldops/claimflow/internal/config"
	"github.com/fieldops/claimflow/internal/employee"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	"github.com/fieldops/claimflow/internal/migration"
	"github.com/fieldops/claimflow/internal/observability"
	obsmiddleware "github.com/fieldops/claimflow/internal/observability/logger"
	obsmetrics "github.com/fieldops/claimflow/internal/observability/metrics"
	obstracing "github.com/fieldops/claimflow/internal/observability/tracing"
	"github.com/fieldops/claimflow/internal/policy"
	policydomain "github.com/fieldops/claimflow/internal/policy/domain"
	"github.com/fieldops/claimflow/internal/ratelimit"
	"github.com/fieldops/claimflow/internal/role"
	roledomain "github.com/fieldops/claimflow/internal/role/domain"
	"github.com/fieldops/claimflow/internal/travellimit"
	travellimitdomain "github.com/fieldops/claimflow/internal/travellimit/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	fx.Provide(registerGin),
	migration.Module,
	authorization.Module,
	policy.Module,
	employee.Module,
	role.Module,
	travellimit.Module,
	claim.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
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

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	genID         *snowflake.Node
	claimSvc      claimdomain.Service
	employeeSvc   employeedomain.Service
	roleSvc       roledomain.Service
	travelSvc     travellimitdomain.Service
	policySvc     policydomain.Service
	authzSvc      authorization.Service
	submitLimiter *ratelimit.ClaimSubmitLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	GenID         *snowflake.Node
	ClaimSvc      claimdomain.Service
	EmployeeSvc   employeedomain.Service
	RoleSvc       roledomain.Service
	TravelSvc     travellimitdomain.Service
	PolicySvc     policydomain.Service
	AuthzSvc      authorization.Service
	SubmitLimiter *ratelimit.ClaimSubmitLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		genID:         p.GenID,
		claimSvc:      p.ClaimSvc,
		employeeSvc:   p.EmployeeSvc,
		roleSvc:       p.RoleSvc,
		travelSvc:     p.TravelSvc,
		policySvc:     p.PolicySvc,
		authzSvc:      p.AuthzSvc,
		submitLimiter: p.SubmitLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.IdentityRequired())

	// -------- Claims --------
	api.POST("/claims",
		s.authorizeAction(authorization.ObjectClaim, authorization.ActionClaimCreate),
		s.claimSubmitRateLimit(),
		s.CreateClaim,
	)
	api.GET("/claims", s.ListClaims)
	api.GET("/claims/pending",
		s.authorizeAction(authorization.ObjectClaim, authorization.ActionClaimApprove),
		s.ListPendingClaims,
	)
	api.GET("/claims/:id", s.GetClaimByID)
	api.POST("/claims/:id/approve",
		s.authorizeAction(authorization.ObjectClaim, authorization.ActionClaimApprove),
		s.ApproveClaim,
	)
	api.POST("/claims/:id/reject",
		s.authorizeAction(authorization.ObjectClaim, authorization.ActionClaimApprove),
		s.RejectClaim,
	)
	api.GET("/claims/:id/replay",
		s.authorizeAction(authorization.ObjectClaim, authorization.ActionClaimApprove),
		s.ReplayClaim,
	)

	// -------- Travel ledger --------
	api.GET("/travel/summary", s.GetTravelSummary)
	api.GET("/travel/history", s.GetTravelHistory)
	api.POST("/travel/validate", s.ValidateTravelLimit)

	// -------- Roles and policy --------
	api.GET("/roles/me", s.GetMyRole)
	api.GET("/policy/grades",
		s.authorizeAction(authorization.ObjectPolicy, authorization.ActionPolicyView),
		s.ListPolicyGrades,
	)

	// -------- Employee directory --------
	api.GET("/employees",
		s.authorizeAction(authorization.ObjectEmployee, authorization.ActionEmployeeView),
		s.ListEmployees,
	)
	api.POST("/employees",
		s.authorizeAction(authorization.ObjectEmployee, authorization.ActionEmployeeManage),
		s.CreateEmployee,
	)
	api.GET("/employees/:id", s.GetEmployeeByID)
	api.PUT("/employees/:id/chain",
		s.authorizeAction(authorization.ObjectEmployee, authorization.ActionEmployeeManage),
		s.UpdateEmployeeChain,
	)
	api.DELETE("/employees/:id",
		s.authorizeAction(authorization.ObjectEmployee, authorization.ActionEmployeeManage),
		s.DeactivateEmployee,
	)
}
