package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/api/notifications", middleware.RequireAuth())
	{
		notifications.GET("", h.ListNotifications)
		notifications.PUT("/:id/read", h.MarkRead)
	}
}

// ListNotifications returns the authenticated user's notifications
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      401    {object}  response.Response
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID := c.GetString("userID")
	params := pagination.Parse(c)

	notifications, total, err := h.notificationService.ListForUser(c.Request.Context(), userID, params.Page, params.Limit)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
		"page":          params.Page,
		"limit":         params.Limit,
	}))
}

// MarkRead marks one of the user's notifications as read
// @Summary      Mark notification read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.notificationService.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"read": true}))
}
