package handler

import (
	"net/http"

	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/service"
	"invoicing-backend/pkg/pagination"
	"invoicing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api/products", middleware.RequireAuth())
	{
		products.POST("", h.CreateProduct)
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
	}
}

// CreateProduct registers a product in the catalog
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// ListProducts returns a paginated product catalog
// @Summary      List products
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        search  query     string  false  "Search by name or SKU"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	params := pagination.Parse(c)

	products, total, err := h.productService.ListProducts(c.Request.Context(), params.Page, params.Limit, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetProduct returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// UpdateProduct updates product fields
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct soft-deletes a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
