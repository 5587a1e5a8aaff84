// Package outbox records reconciliation work left behind by best-effort
// identity provider calls and replays it on a schedule until both systems
// agree again.
package outbox

import (
	"time"

	"gorm.io/gorm"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

type TaskType string

const (
	// TaskDeleteAccount removes a provider account that has no local row.
	TaskDeleteAccount TaskType = "delete_account"
	// TaskSyncAccount pushes the local row's state to the provider account.
	TaskSyncAccount TaskType = "sync_account"
)

type Task struct {
	ID         int         `gorm:"primaryKey;autoIncrement"`
	TaskID     string      `gorm:"uniqueIndex"`
	Type       TaskType    `gorm:"not null"`
	EntityKind domain.Kind `gorm:"not null"`
	AccountID  string      `gorm:"not null;index"`
	Reason     string
	Retry      int
	LastError  string
	// Processed tasks are soft deleted; parked ones keep LastError.
	ProcessedAt gorm.DeletedAt `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Task) TableName() string {
	return "outbox_tasks"
}
