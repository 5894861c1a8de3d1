package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-notebook/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) Create(ctx context.Context, turn *model.Turn) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		return fmt.Errorf("create turn failed: %w", err)
	}
	return nil
}

// ListByNotebookID returns the archived turns of one notebook, oldest first.
func (r *TurnRepository) ListByNotebookID(ctx context.Context, notebookID string, limit int) ([]model.Turn, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var turns []model.Turn
	if err := r.db.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("asked_at ASC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list turns failed: %w", err)
	}
	return turns, nil
}

func (r *TurnRepository) DeleteByNotebookID(ctx context.Context, notebookID string) error {
	if err := r.db.WithContext(ctx).Where("notebook_id = ?", notebookID).Delete(&model.Turn{}).Error; err != nil {
		return fmt.Errorf("delete turns failed: %w", err)
	}
	return nil
}
