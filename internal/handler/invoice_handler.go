package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	paymentService *service.PaymentService
}

func NewInvoiceHandler(invoiceService service.InvoiceService, paymentService *service.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices", middleware.RequireAuth())
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.DELETE("/:id", h.DeleteInvoice)
		invoices.POST("/:id/items", h.AddItem)
		invoices.POST("/:id/recalculate", h.RecalculateTotals)
		invoices.PUT("/:id/finalize", h.Finalize)
		invoices.PUT("/:id/pay", h.MarkAsPaid)
		invoices.PUT("/:id/cancel", h.Cancel)
		invoices.GET("/:id/payments", h.ListPayments)
	}
}

// CreateInvoice creates an invoice with its items in one transaction
// @Summary      Create invoice
// @Description  Creates a draft invoice with optional items; finalize=true also transitions it to sent
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req, actorID(c))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a paginated list of invoices
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status     query     string  false  "Filter by status (draft, sent, paid, overdue, cancelled)"
// @Param        client_id  query     string  false  "Filter by client ID"
// @Param        number     query     string  false  "Partial match on invoice number"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:        c.Query("status"),
		ClientID:      c.Query("client_id"),
		InvoiceNumber: c.Query("number"),
		Page:          params.Page,
		Limit:         params.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetInvoice returns one invoice with its items
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// DeleteInvoice soft-deletes an invoice
// @Summary      Delete invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// AddItem appends a line item to a draft invoice
// @Summary      Add invoice item
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Invoice ID"
// @Param        payload  body      service.InvoiceItemPayload   true  "Item Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/invoices/{id}/items [post]
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	var payload service.InvoiceItemPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.AddItem(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RecalculateTotals re-derives invoice totals from the current item set
// @Summary      Recalculate invoice totals
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id}/recalculate [post]
func (h *InvoiceHandler) RecalculateTotals(c *gin.Context) {
	invoice, err := h.invoiceService.RecalculateTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// Finalize transitions a draft invoice to sent
// @Summary      Finalize invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/invoices/{id}/finalize [put]
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	invoice, err := h.invoiceService.Finalize(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// MarkAsPaid transitions a sent or overdue invoice to paid
// @Summary      Mark invoice as paid
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/invoices/{id}/pay [put]
func (h *InvoiceHandler) MarkAsPaid(c *gin.Context) {
	invoice, err := h.invoiceService.MarkAsPaid(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// Cancel moves a non-terminal invoice to cancelled
// @Summary      Cancel invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/invoices/{id}/cancel [put]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoice, err := h.invoiceService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// ListPayments returns the payment records for an invoice
// @Summary      List invoice payments
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/invoices/{id}/payments [get]
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListByInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
