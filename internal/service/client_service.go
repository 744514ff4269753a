package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"invoicing-backend/internal/model"
	"invoicing-backend/internal/repository"

	"github.com/google/uuid"
)

type CreateClientRequest struct {
	Name           string `json:"name" binding:"required"`
	CompanyName    string `json:"company_name"`
	TaxCode        string `json:"tax_code"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	BillingAddress string `json:"billing_address"`
}

type UpdateClientRequest struct {
	Name           *string `json:"name"`
	CompanyName    *string `json:"company_name"`
	TaxCode        *string `json:"tax_code"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	BillingAddress *string `json:"billing_address"`
	IsActive       *bool   `json:"is_active"`
}

type ClientResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CompanyName    string    `json:"company_name"`
	TaxCode        string    `json:"tax_code"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	BillingAddress string    `json:"billing_address"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest) (ClientResponse, error)
	GetClient(ctx context.Context, id string) (ClientResponse, error)
	ListClients(ctx context.Context, page, limit int, search string) ([]ClientResponse, int64, error)
	UpdateClient(ctx context.Context, id string, req UpdateClientRequest) (ClientResponse, error)
	DeleteClient(ctx context.Context, id string) error
}

type clientService struct {
	clients repository.ClientRepository
}

func NewClientService(clients repository.ClientRepository) ClientService {
	return &clientService{clients: clients}
}

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest) (ClientResponse, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return ClientResponse{}, fmt.Errorf("invalid email: %w", err)
		}
	}

	client := &model.Client{
		Name:           req.Name,
		CompanyName:    req.CompanyName,
		TaxCode:        req.TaxCode,
		Email:          req.Email,
		Phone:          req.Phone,
		BillingAddress: req.BillingAddress,
		IsActive:       true,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return ClientResponse{}, fmt.Errorf("failed to create client: %w", err)
	}
	return toClientResponse(client), nil
}

func (s *clientService) GetClient(ctx context.Context, id string) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client id: %w", err)
	}
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, err
	}
	return toClientResponse(client), nil
}

func (s *clientService) ListClients(ctx context.Context, page, limit int, search string) ([]ClientResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	clients, total, err := s.clients.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	result := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		result = append(result, toClientResponse(&clients[i]))
	}
	return result, total, nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req UpdateClientRequest) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client id: %w", err)
	}
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, err
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.CompanyName != nil {
		client.CompanyName = *req.CompanyName
	}
	if req.TaxCode != nil {
		client.TaxCode = *req.TaxCode
	}
	if req.Email != nil {
		if *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return ClientResponse{}, fmt.Errorf("invalid email: %w", err)
			}
		}
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.BillingAddress != nil {
		client.BillingAddress = *req.BillingAddress
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if err := s.clients.Update(ctx, client); err != nil {
		return ClientResponse{}, fmt.Errorf("failed to update client: %w", err)
	}
	return toClientResponse(client), nil
}

func (s *clientService) DeleteClient(ctx context.Context, id string) error {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid client id: %w", err)
	}
	return s.clients.Delete(ctx, clientID)
}

func toClientResponse(c *model.Client) ClientResponse {
	return ClientResponse{
		ID:             c.ID,
		Name:           c.Name,
		CompanyName:    c.CompanyName,
		TaxCode:        c.TaxCode,
		Email:          c.Email,
		Phone:          c.Phone,
		BillingAddress: c.BillingAddress,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
