package service

import (
	"context"
	"fmt"
	"time"

	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price" binding:"required"`
	TaxRate     string `json:"tax_rate"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	UnitPrice   *string `json:"unit_price"`
	TaxRate     *string `json:"tax_rate"`
	IsActive    *bool   `json:"is_active"`
}

type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnitPrice   string    `json:"unit_price"`
	TaxRate     string    `json:"tax_rate"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
}

type productService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error) {
	unitPrice, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid unit_price: %w", err)
	}
	if unitPrice.IsNegative() {
		return ProductResponse{}, ErrInvalidUnitPrice
	}

	taxRate := decimal.Zero
	if req.TaxRate != "" {
		taxRate, err = decimal.NewFromString(req.TaxRate)
		if err != nil {
			return ProductResponse{}, fmt.Errorf("invalid tax_rate: %w", err)
		}
		if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
			return ProductResponse{}, ErrInvalidTaxRate
		}
	}

	product := &model.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
		IsActive:    true,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	products, total, err := s.products.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	result := make([]ProductResponse, 0, len(products))
	for i := range products {
		result = append(result, toProductResponse(&products[i]))
	}
	return result, total, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.UnitPrice != nil {
		unitPrice, err := decimal.NewFromString(*req.UnitPrice)
		if err != nil {
			return ProductResponse{}, fmt.Errorf("invalid unit_price: %w", err)
		}
		if unitPrice.IsNegative() {
			return ProductResponse{}, ErrInvalidUnitPrice
		}
		product.UnitPrice = unitPrice
	}
	if req.TaxRate != nil {
		taxRate, err := decimal.NewFromString(*req.TaxRate)
		if err != nil {
			return ProductResponse{}, fmt.Errorf("invalid tax_rate: %w", err)
		}
		if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
			return ProductResponse{}, ErrInvalidTaxRate
		}
		product.TaxRate = taxRate
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.products.Update(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}
	return s.products.Delete(ctx, productID)
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice.StringFixed(2),
		TaxRate:     p.TaxRate.StringFixed(2),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
