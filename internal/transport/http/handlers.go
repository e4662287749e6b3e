package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/latticefi/matching-engine/internal/apperrors"
	"github.com/latticefi/matching-engine/internal/model"
	"github.com/latticefi/matching-engine/internal/validate"
)

func (s *Server) submitOrder(c *gin.Context) {
	var req validate.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.Wrap(apperrors.KindInvalidQuantity, "malformed request body", err))
		return
	}

	order, err := s.val.ToOrder(req)
	if err != nil {
		writeError(c, err)
		return
	}

	if !s.val.Allow(order.UserID) {
		writeError(c, apperrors.New(apperrors.KindRateLimitExceeded, "rate limit exceeded for user"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.submitTimeout)
	defer cancel()

	result, trades, err := s.eng.Submit(ctx, order)
	if err != nil {
		// ProcessOrder returning both a result and an error (e.g. a
		// rejected fill-or-kill order) is still useful to the caller.
		if result != nil {
			c.JSON(statusFor(err), gin.H{"order": result, "error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": result, "trades": trades})
}

func (s *Server) cancelOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, apperrors.New(apperrors.KindOrderNotFound, "id must be a valid uuid"))
		return
	}

	symbol := model.Symbol(c.Query("symbol"))
	if !symbol.Valid() {
		writeError(c, apperrors.New(apperrors.KindInvalidSymbol, "symbol query parameter is required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.submitTimeout)
	defer cancel()

	if err := s.eng.Cancel(ctx, symbol, orderID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getOrderbook(c *gin.Context) {
	symbol := model.Symbol(c.Param("symbol"))
	if !symbol.Valid() {
		writeError(c, apperrors.New(apperrors.KindInvalidSymbol, "symbol must be BASE-QUOTE"))
		return
	}

	depth := 20
	bids, asks, err := s.eng.Depth(symbol, depth)
	if err != nil {
		writeError(c, err)
		return
	}
	bestBid, bestAsk, _ := s.eng.BBO(symbol)

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"bids":     bids,
		"asks":     asks,
		"best_bid": bestBid,
		"best_ask": bestAsk,
	})
}

func (s *Server) getSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"symbols": s.eng.Symbols()})
}

func (s *Server) getHealth(c *gin.Context) {
	if s.eng.Degraded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbols":  s.eng.Symbols(),
		"degraded": s.eng.Degraded(),
	})
}

func statusFor(err error) int {
	if ee, ok := err.(*apperrors.EngineError); ok {
		return ee.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
