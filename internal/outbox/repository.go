package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

const DefaultMaxRetries = 5

type Repository interface {
	NewTask(ctx context.Context, taskType TaskType, kind domain.Kind, accountID, reason string) (string, error)
	GetTask(ctx context.Context, taskID string) (*Task, error)
	GetPending(ctx context.Context, limit int) ([]Task, error)
	MarkProcessed(ctx context.Context, taskID string) error
	// RecordFailure bumps the retry counter. Once it reaches the retry limit
	// the task is parked as processed with its last error for manual review.
	RecordFailure(ctx context.Context, taskID string, cause error) error
}

type GormRepository struct {
	db         *gorm.DB
	maxRetries int
}

func NewGormRepository(db *gorm.DB, maxRetries int) *GormRepository {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &GormRepository{db: db, maxRetries: maxRetries}
}

func (r *GormRepository) NewTask(ctx context.Context, taskType TaskType, kind domain.Kind, accountID, reason string) (string, error) {
	task := Task{
		TaskID:     uuid.NewString(),
		Type:       taskType,
		EntityKind: kind,
		AccountID:  accountID,
		Reason:     reason,
	}

	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		return "", err
	}

	return task.TaskID, nil
}

func (r *GormRepository) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).First(&task, "task_id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *GormRepository) GetPending(ctx context.Context, limit int) ([]Task, error) {
	var tasks []Task
	q := r.db.WithContext(ctx).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormRepository) MarkProcessed(ctx context.Context, taskID string) error {
	res := r.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormRepository) RecordFailure(ctx context.Context, taskID string, cause error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.First(&task, "task_id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		lastError := ""
		if cause != nil {
			lastError = cause.Error()
		}

		// Updates writes the new values back into task
		next := task.Retry + 1
		err := tx.Model(&task).Updates(map[string]any{
			"retry":      next,
			"last_error": lastError,
		}).Error
		if err != nil {
			return err
		}

		if next < r.maxRetries {
			return nil
		}

		// needs a human from here on
		return tx.Delete(&task).Error
	})
}
