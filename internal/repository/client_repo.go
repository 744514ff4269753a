package repository

import (
	"context"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Client, int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).Delete(&model.Client{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *clientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, page, limit int, search string) ([]model.Client, int64, error) {
	var clients []model.Client
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Client{})
	if search != "" {
		query = query.Where("name ILIKE ? OR company_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("name asc").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}

	return clients, total, nil
}
