package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/snipe-engine/internal/orchestrator"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// Handler wires the Orchestrator and websocket Hub to HTTP routes.
type Handler struct {
	Orchestrator *orchestrator.Orchestrator
	Hub          *Hub
}

// SetupRouter builds the full gin router: public health/stream endpoints,
// a bearer-protected snipe endpoint, and CORS handling keyed off
// ALLOWED_ORIGINS, mirroring the teacher's router assembly.
func SetupRouter(orch *orchestrator.Orchestrator, hub *Hub, allowedOrigins, authToken string) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowedOrigins == "" || allowedOrigins == "*":
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		default:
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := &Handler{Orchestrator: orch, Hub: hub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", h.handleHealth)
		pub.GET("/stream", hub.Subscribe)
	}

	protected := r.Group("/api/v1")
	protected.Use(AuthMiddleware(authToken))
	{
		protected.POST("/snipe", h.handleSnipe)
		protected.GET("/orders/:id", h.handleGetOrder)
	}

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "operational", "engine": "snipe-engine"})
}

// handleSnipe runs one SnipeRequest end to end through the Orchestrator.
// POST /api/v1/snipe
func (h *Handler) handleSnipe(c *gin.Context) {
	var req models.SnipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.UserID == "" || req.TokenMint == "" || req.AmountIn == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, token_mint, and amount_in are required"})
		return
	}

	result := h.Orchestrator.Run(context.Background(), req)
	if result.Err != nil && result.Order == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Err.Error(), "breakdown": result.Breakdown})
		return
	}

	status := http.StatusOK
	if result.Err != nil {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"order":     result.Order,
		"position":  result.Position,
		"breakdown": result.Breakdown,
		"error":     errString(result.Err),
	})
}

// handleGetOrder replays a settled order, including the per-phase timing
// the Orchestrator attached on completion.
// GET /api/v1/orders/:id
func (h *Handler) handleGetOrder(c *gin.Context) {
	ord, err := h.Orchestrator.OrderStore.Get(context.Background(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": ord})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
