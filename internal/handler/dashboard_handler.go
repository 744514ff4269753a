package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/api/dashboard", middleware.RequireAuth())
	{
		dashboard.GET("", h.GetDashboard)
	}
}

// GetDashboard returns invoice counts by status, revenue and recent invoices
// @Summary      Dashboard summary
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.DashboardResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	summary, err := h.dashboardService.GetDashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
