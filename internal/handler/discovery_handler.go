package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkfinder/service-parking/internal/application"
	"github.com/parkfinder/service-parking/internal/response"
)

// DiscoveryHandler handles HTTP requests for sessions, positions and nearby search.
type DiscoveryHandler struct {
	service *application.DiscoveryService
}

// NewDiscoveryHandler creates a new DiscoveryHandler.
func NewDiscoveryHandler(service *application.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{service: service}
}

// RegisterRoutes registers catalog, config and session routes.
func (h *DiscoveryHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/parking", h.ListCatalog)
	r.GET("/api/v1/config", h.ClientConfig)

	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.PUT("/:id/position", h.SetPosition)
		sessions.POST("/:id/position/search", h.SearchPosition)
		sessions.GET("/:id/nearby", h.Nearby)
	}
}

// ListCatalog handles GET /api/parking. It returns the bare catalog array
// so existing map frontends can consume it unchanged.
func (h *DiscoveryHandler) ListCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Catalog(c.Request.Context()))
}

// ClientConfig handles GET /api/v1/config.
func (h *DiscoveryHandler) ClientConfig(c *gin.Context) {
	response.Success(c, h.service.ClientConfig())
}

// CreateSession handles POST /api/v1/sessions.
func (h *DiscoveryHandler) CreateSession(c *gin.Context) {
	result, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *DiscoveryHandler) GetSession(c *gin.Context) {
	result, err := h.service.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SetPosition handles PUT /api/v1/sessions/:id/position.
func (h *DiscoveryHandler) SetPosition(c *gin.Context) {
	var req application.SetPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetPosition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SearchPosition handles POST /api/v1/sessions/:id/position/search.
func (h *DiscoveryHandler) SearchPosition(c *gin.Context) {
	var req application.SearchPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SearchPosition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Nearby handles GET /api/v1/sessions/:id/nearby?radius_km=&cap=.
func (h *DiscoveryHandler) Nearby(c *gin.Context) {
	var q application.NearbyQuery
	if raw := c.Query("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(c, "radius_km must be a number")
			return
		}
		q.RadiusKm = &v
	}
	if raw := c.Query("cap"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "cap must be an integer")
			return
		}
		q.Cap = &v
	}

	result, err := h.service.Nearby(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
