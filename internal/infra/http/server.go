package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"certichain/internal/config"
	"certichain/internal/domain"
	"certichain/internal/infra/auth/rbac"
	"certichain/internal/infra/logging"
	"certichain/internal/usecase"
	"certichain/pkg/commitment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log *logrus.Entry

	verifyUC     *usecase.VerifyCertificate
	issueUC      *usecase.IssueCertificate
	revokeUC     *usecase.RevokeCertificate
	institutions *usecase.InstitutionDirectory
	history      *usecase.HistoryQuery
	issuances    usecase.IssuanceLog
	engine       *commitment.Engine
	metrics      http.Handler

	authenticator domain.Authenticator
	authorizer    *rbac.Authorizer

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool

	ledgerMode string
	storeMode  string
}

type ServerDeps struct {
	Verify        *usecase.VerifyCertificate
	Issue         *usecase.IssueCertificate
	Revoke        *usecase.RevokeCertificate
	Institutions  *usecase.InstitutionDirectory
	History       *usecase.HistoryQuery
	Issuances     usecase.IssuanceLog
	Engine        *commitment.Engine
	Metrics       http.Handler
	Authenticator domain.Authenticator
	Authorizer    *rbac.Authorizer
	RateLimiter   domain.RateLimiter
	Log           *logrus.Entry
	// StoreMode is reported by /healthz: "db" or "memory".
	StoreMode string
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), logging.GinLogger(log))

	s := &Server{
		cfg:           cfg,
		r:             r,
		log:           log,
		verifyUC:      deps.Verify,
		issueUC:       deps.Issue,
		revokeUC:      deps.Revoke,
		institutions:  deps.Institutions,
		history:       deps.History,
		issuances:     deps.Issuances,
		engine:        deps.Engine,
		metrics:       deps.Metrics,
		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,
		ledgerMode:    cfg.LedgerMode,
		storeMode:     deps.StoreMode,
	}
	if s.engine == nil {
		s.engine = commitment.Default()
	}
	if s.authorizer == nil {
		s.authorizer = rbac.NewAuthorizer()
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimiter = limiter
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		storeMode := s.storeMode
		if storeMode == "" {
			storeMode = "memory"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ledger": s.ledgerMode, "store": storeMode})
	})
	if s.metrics != nil {
		s.r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := s.r.Group("/v1")
	{
		v1.GET("/certificates/:id/verification", s.handleVerifyByID)
		v1.POST("/certificates/:id/revoke", s.handleRevoke)
		v1.POST("/commitments", s.handleCommitment)

		v1.GET("/institutions", s.handleListInstitutions)
		v1.GET("/institutions/:address", s.handleInstitutionStatus)
		v1.POST("/institutions", s.handleRegisterInstitution)
		v1.DELETE("/institutions/:address", s.handleRemoveInstitution)

		v1.GET("/history", s.handleHistory)
		v1.GET("/issuances", s.handleIssuances)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx ends, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.HTTPAddr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
