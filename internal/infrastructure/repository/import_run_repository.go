package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/mohammadpnp/profile-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
)

const maxReasonLength = 1000

type ImportRunRepository struct {
	db *gorm.DB
}

func NewImportRunRepository(db *gorm.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Start(ctx context.Context, run domain.ImportRun) (string, error) {
	row := models.ImportRun{
		ID:            uuid.NewString(),
		SessionID:     run.SessionID,
		Filename:      run.Filename,
		Status:        domain.RunStatusRunning,
		NewCount:      int64(run.NewCount),
		ExistingCount: int64(run.ExistingCount),
		InvalidCount:  int64(run.InvalidCount),
		TotalCount:    int64(run.NewCount + run.ExistingCount),
		StartedAt:     time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create import run: %w", err)
	}
	return row.ID, nil
}

func (r *ImportRunRepository) UpdateProgress(ctx context.Context, runID string, progress domain.BatchProgress) error {
	err := r.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"processed_count": progress.Processed,
			"total_count":     progress.Total,
		}).Error
	if err != nil {
		return fmt.Errorf("update import run progress: %w", err)
	}
	return nil
}

func (r *ImportRunRepository) Complete(ctx context.Context, runID string, summary domain.BatchSummary) error {
	status := domain.RunStatusSucceeded
	if summary.Cancelled {
		status = domain.RunStatusCancelled
	}
	err := r.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":          status,
			"processed_count": summary.Successful + summary.Failed,
			"total_count":     summary.Total,
			"success_count":   summary.Successful,
			"failed_count":    summary.Failed,
			"finished_at":     time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("complete import run: %w", err)
	}
	return nil
}

func (r *ImportRunRepository) Fail(ctx context.Context, runID string, reason string) error {
	if len(reason) > maxReasonLength {
		reason = reason[:maxReasonLength]
	}
	err := r.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":        domain.RunStatusFailed,
			"error_message": reason,
			"finished_at":   time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("fail import run: %w", err)
	}
	return nil
}
