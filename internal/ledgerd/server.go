package ledgerd

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"pantrack/internal/auth"
	"pantrack/internal/ledger"
	"pantrack/internal/observability"
)

// Server exposes the scan-ledger HTTP contract over an in-memory Store.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	store     *Store
	validator auth.Validator
	router    *gin.Engine
}

// ServerConfig shapes one ledgerd instance.
type ServerConfig struct {
	ID          string
	Addr        string
	Token       string
	CorsOrigins []string
	Store       StoreConfig
}

func Appear(cfg ServerConfig, store *Store) *Server {
	observability.RegisterMetrics()
	logger := observability.InitLogger(cfg.ID)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", auth.HeaderDriverName},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if store == nil {
		store = NewStore(cfg.Store)
	}
	return &Server{
		ID:        cfg.ID,
		Addr:      cfg.Addr,
		Appeared:  time.Now(),
		store:     store,
		validator: auth.StaticToken{Token: cfg.Token},
		router:    r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": "0.0.1",
		})
	})

	slip := s.router.Group("/slip")
	slip.Use(auth.RequireBearer(s.validator))
	slip.POST("/scan-qr", s.handleScan)
	slip.GET("/driver-history/slip/:slip_id", s.handleHistory)
}

func (s *Server) Serve() error {
	s.RegisterRoutes()
	return s.router.Run(s.Addr)
}

func (s *Server) handleScan(c *gin.Context) {
	var req ledger.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "malformed scan request",
		})
		return
	}

	resp, err := s.store.RecordScan(req, auth.DriverName(c), time.Now().UTC())
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrSlipNotFound) {
			status = http.StatusNotFound
		}
		log.Warn().
			Err(err).
			Int("case_id", req.CaseID).
			Ints("slip_ids", req.SlipIDs).
			Msg("scan rejected")
		c.JSON(status, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	log.Info().
		Int("case_id", req.CaseID).
		Ints("slip_ids", req.SlipIDs).
		Str("session_key", resp.SessionKey).
		Int("scanned_cases", resp.ScannedCasesCount).
		Msg("scan recorded")
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	slipID, err := strconv.Atoi(c.Param("slip_id"))
	if err != nil || slipID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid slip id",
		})
		return
	}

	rec, err := s.store.SlipHistory(slipID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ledger.HistoryResponse{
		Success: true,
		Message: "ok",
		Data: ledger.HistoryData{
			Slip: ledger.SlipCore{
				ID:              rec.ID,
				SlipNumber:      rec.SlipNumber,
				CurrentLocation: rec.CurrentLocation,
			},
			DriverHistory: rec.History,
		},
	})
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
