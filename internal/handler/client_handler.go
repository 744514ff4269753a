package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientService service.ClientService
}

func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup) {
	clients := router.Group("/api/clients", middleware.RequireAuth())
	{
		clients.POST("", h.CreateClient)
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.PUT("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
	}
}

// CreateClient registers a new client
// @Summary      Create client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateClientRequest  true  "Create Client Payload"
// @Success      201      {object}  response.Response{data=service.ClientResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, client))
}

// ListClients returns a paginated list of clients
// @Summary      List clients
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by name or company"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	params := pagination.Parse(c)

	clients, total, err := h.clientService.ListClients(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"clients": clients,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// GetClient returns one client
// @Summary      Get client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=service.ClientResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clientService.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// UpdateClient updates client fields
// @Summary      Update client
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Client ID"
// @Param        payload  body      service.UpdateClientRequest  true  "Update Client Payload"
// @Success      200      {object}  response.Response{data=service.ClientResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/clients/{id} [put]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

// DeleteClient soft-deletes a client
// @Summary      Delete client
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	if err := h.clientService.DeleteClient(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
