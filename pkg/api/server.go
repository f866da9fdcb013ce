// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the auction registry over HTTP
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/auction"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
	"github.com/luxfi/sealbid/pkg/metric"
)

const (
	// PrincipalHeader carries the caller's address. Authentication happens in
	// front of this server.
	PrincipalHeader = "X-Sealbid-Principal"
	RequestIDHeader = "X-Request-ID"
)

// Assets is the registry surface the API needs beyond asset.Registry
type Assets interface {
	asset.Registry
	Approve(ctx context.Context, owner ids.Address, id asset.ID, operator ids.Address) error
}

// Accounts reports free balances
type Accounts interface {
	Balance(who ids.Address) *uint256.Int
}

type Config struct {
	CORSOrigins []string
	Release     bool
}

// Server is the public JSON API
type Server struct {
	reg      *auction.Registry
	assets   Assets
	accounts Accounts
	custody  ids.Address
	log      log.Logger
	metrics  *metric.Metrics
	router   *gin.Engine
}

func NewServer(cfg Config, reg *auction.Registry, assets Assets, accounts Accounts, custodian ids.Address, logger log.Logger, metrics *metric.Metrics) *Server {
	s := &Server{
		reg:      reg,
		assets:   assets,
		accounts: accounts,
		custody:  custodian,
		log:      logger,
		metrics:  metrics,
	}
	s.router = s.setupRouter(cfg)
	return s
}

// Handler returns the http handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter(cfg Config) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// asset ids may contain an escaped slash
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(gin.Recovery(), s.requestID(), s.observe())

	// CORS configuration
	config := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.CORSOrigins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", PrincipalHeader}
	config.ExposeHeaders = []string{RequestIDHeader}
	router.Use(cors.New(config))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/info", s.info)
		api.POST("/commitments", s.generateCommitment)

		// Auctions
		api.GET("/auctions", s.listAuctions)
		api.POST("/auctions", s.requirePrincipal, s.createAuction)
		api.GET("/auctions/:id", s.getAuction)
		api.POST("/auctions/:id/commit", s.requirePrincipal, s.commitBid)
		api.POST("/auctions/:id/reveal", s.requirePrincipal, s.revealBid)
		api.POST("/auctions/:id/end", s.endAuction)
		api.POST("/auctions/:id/deliver", s.deliver)

		// Accounts
		api.GET("/accounts/:address", s.getAccount)
		api.POST("/accounts/:address/withdraw", s.requirePrincipal, s.withdraw)

		// Assets
		api.GET("/assets/:asset", s.getAsset)
		api.POST("/assets/:asset/approve", s.requirePrincipal, s.approveAsset)
	}
	return router
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		s.metrics.RequestsProcessed.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()
		s.log.Debug("request",
			log.String("method", c.Request.Method),
			log.String("path", c.FullPath()),
			log.Int("status", status),
			log.String("requestID", c.GetString("requestID")),
			log.Stringer("latency", time.Since(start)),
		)
	}
}

func (s *Server) requirePrincipal(c *gin.Context) {
	raw := c.GetHeader(PrincipalHeader)
	if raw == "" {
		s.abort(c, http.StatusUnauthorized, "MissingPrincipal", "missing "+PrincipalHeader+" header")
		return
	}
	who, err := ids.AddressFromString(raw)
	if err != nil || who.IsEmpty() {
		s.abort(c, http.StatusUnauthorized, "InvalidPrincipal", "invalid "+PrincipalHeader+" header")
		return
	}
	c.Set("principal", who)
	c.Next()
}

func principal(c *gin.Context) ids.Address {
	return c.MustGet("principal").(ids.Address)
}

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StatusOf maps an error kind to an HTTP status
func StatusOf(err error) int {
	switch auction.KindOf(err) {
	case auction.KindAuthorization:
		return http.StatusForbidden
	case auction.KindTiming, auction.KindProtocol:
		return http.StatusConflict
	case auction.KindValue, auction.KindInvalid:
		return http.StatusBadRequest
	case auction.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			log.String("path", c.FullPath()),
			log.String("requestID", c.GetString("requestID")),
			log.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Code:      auction.CodeOf(err),
		Kind:      auction.KindOf(err).String(),
		Message:   err.Error(),
		Retryable: auction.IsRetryable(err),
	}})
}

func (s *Server) abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{
		Code:    code,
		Kind:    auction.KindInvalid.String(),
		Message: msg,
	}})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.abort(c, http.StatusBadRequest, "BadRequest", err.Error())
}

func auctionID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid auction id")
	}
	return id, nil
}
