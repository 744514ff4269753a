package repository

import (
	"context"
	"time"

	"invoicing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Notification, int64, error) {
	var notifications []model.Notification
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Notification{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	result := GetDB(ctx, r.db).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
