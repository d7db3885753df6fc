package repository

import (
	"context"
	"fmt"

	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Add appends a comment and its COMMENT_ADDED entry
func (r *CommentRepository) Add(ctx context.Context, comment *model.TaskComment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return addComment(tx, comment)
	})
}

func addComment(tx *gorm.DB, comment *model.TaskComment) error {
	if err := tx.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	author := comment.UserID
	return logActivity(tx, &author, model.ActionCommentAdded, model.EntityTask, comment.TaskID, "")
}

// ListByTask returns comments newest first with author names attached
func (r *CommentRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TaskComment, error) {
	var comments []model.TaskComment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	for i := range comments {
		if u := comments[i].User; u != nil {
			comments[i].Username = u.Username
			comments[i].FullName = u.FullName
		}
	}
	return comments, nil
}
