package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parkfinder/service-parking/internal/application"
	"github.com/parkfinder/service-parking/internal/response"
)

// AdminHandler handles operator HTTP requests.
type AdminHandler struct {
	service *application.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *application.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.POST("/catalog/reload", h.ReloadCatalog)
		admin.GET("/stats", h.Stats)
	}
}

// ReloadCatalog handles POST /api/v1/admin/catalog/reload.
func (h *AdminHandler) ReloadCatalog(c *gin.Context) {
	snap, err := h.service.ReloadCatalog(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snap)
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
