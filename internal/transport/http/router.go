// Package http exposes the engine over a REST intake/read surface,
// grounded on the original matching-engine/src/api.rs route table
// (same paths and verbs) and on gin usage patterns from
// DimaJoyti-ai-agentic-crypto-browser/internal/auth/handlers.go and
// abdoElHodaky-tradSys's gateway middleware.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/latticefi/matching-engine/internal/engine"
	"github.com/latticefi/matching-engine/internal/validate"
)

// Server wraps a gin engine bound to the matching engine and validator.
type Server struct {
	router         *gin.Engine
	eng            *engine.Engine
	val            *validate.Validator
	submitTimeout  time.Duration
}

// New builds the router with all routes registered. submitTimeout bounds
// how long a single order submission may wait for its symbol's worker.
func New(eng *engine.Engine, val *validate.Validator, submitTimeout time.Duration) *Server {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery(), corsMiddleware())

	s := &Server{router: r, eng: eng, val: val, submitTimeout: submitTimeout}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.POST("/orders", s.submitOrder)
	s.router.DELETE("/orders/:id", s.cancelOrder)
	s.router.GET("/orderbook/:symbol", s.getOrderbook)
	s.router.GET("/symbols", s.getSymbols)
	s.router.GET("/health", s.getHealth)
	s.router.GET("/info", s.getInfo)
}

// Handler returns the underlying http.Handler, for use with http.Server
// or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
