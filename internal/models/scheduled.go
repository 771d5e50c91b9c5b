package models

import (
	"time"

	"famledger/internal/money"
	"famledger/internal/recurrence"
)

// ScheduleStatus represents the state of a scheduled transaction.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// ScheduledTransaction is a template materialized into transactions on the
// dates produced by its recurrence rule.
type ScheduledTransaction struct {
	Base
	OwnerID           string          `gorm:"type:uuid;not null;index" json:"owner_id"`
	AccountID         string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID        *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	WorkspaceID       *string         `gorm:"type:uuid" json:"workspace_id,omitempty"`
	Type              TransactionType `gorm:"not null" json:"type"`
	Amount            money.Money     `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description       string          `json:"description"`
	StartDate         time.Time       `gorm:"not null" json:"start_date"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	RecurrenceRule    recurrence.Rule `gorm:"type:text;serializer:json;not null" json:"recurrence_rule"`
	NextExecutionDate *time.Time      `gorm:"index" json:"next_execution_date,omitempty"`
	ExecutionCount    int             `gorm:"not null;default:0" json:"execution_count"`
	MaxExecutions     *int            `json:"max_executions,omitempty"`
	AutoExecute       bool            `gorm:"not null;default:false" json:"auto_execute"`
	Status            ScheduleStatus  `gorm:"not null;default:'active'" json:"status"`
}

// ScheduledExecution records one materialized occurrence. The pair
// (ScheduledID, ExecutionCount) is unique.
type ScheduledExecution struct {
	Base
	ScheduledID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_scheduled_executions_occurrence,priority:1" json:"scheduled_id"`
	ExecutionCount int       `gorm:"not null;uniqueIndex:idx_scheduled_executions_occurrence,priority:2" json:"execution_count"`
	OccurrenceDate time.Time `gorm:"not null" json:"occurrence_date"`
	TransactionID  string    `gorm:"type:uuid;not null" json:"transaction_id"`
}
