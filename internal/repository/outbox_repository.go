package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pablosanchi/consultation-backend/internal/domain"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event *domain.OutboxEvent) error {
	if event.Status == "" {
		event.Status = domain.OutboxStatusReady
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("inserting outbox event: %w", err)
	}
	return nil
}

// FetchReady returns the oldest ready events, up to limit.
func (r *OutboxRepository) FetchReady(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.OutboxStatusReady).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("fetching ready outbox events: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.OutboxStatusPublished,
			"published_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("marking outbox event published: %w", err)
	}
	return nil
}
