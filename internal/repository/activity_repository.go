package repository

import (
	"context"
	"fmt"
	"time"

	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditFailureRecorder counts audit entries that could not be written
type AuditFailureRecorder interface {
	RecordAuditFailure(action string)
}

type ActivityRepository struct {
	db       *gorm.DB
	logger   *zap.Logger
	failures AuditFailureRecorder
}

type ActivityFilter struct {
	Limit  int
	UserID *uuid.UUID
	Since  *time.Time
}

// DefaultActivityLimit is used when ActivityFilter.Limit is not positive
const DefaultActivityLimit = 20

func NewActivityRepository(db *gorm.DB, logger *zap.Logger, failures AuditFailureRecorder) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger, failures: failures}
}

// logActivity appends one audit row using the caller's transaction
func logActivity(tx *gorm.DB, actor *uuid.UUID, action, entityType string, entityID uuid.UUID, details string) error {
	id := entityID
	entry := &model.ActivityLog{
		UserID:     actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		Details:    details,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write %s activity: %w", action, err)
	}
	return nil
}

// Record writes a stand-alone audit entry outside any mutation.
// Failures are logged and counted, never returned.
func (r *ActivityRepository) Record(ctx context.Context, entry *model.ActivityLog) bool {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.Warn("Failed to write activity",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		if r.failures != nil {
			r.failures.RecordAuditFailure(entry.Action)
		}
		return false
	}
	return true
}

// Recent returns activity entries newest first with the author's names attached
func (r *ActivityRepository) Recent(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	query := r.db.WithContext(ctx).Preload("User")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Since != nil {
		query = query.Where("timestamp >= ?", *filter.Since)
	}

	var entries []model.ActivityLog
	if err := query.Order("timestamp DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	for i := range entries {
		if u := entries[i].User; u != nil {
			entries[i].Username = u.Username
			entries[i].FullName = u.FullName
		}
	}
	return entries, nil
}
