package models

import (
	"time"

	"famledger/internal/money"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Status is the lifecycle state shared by transactions and transfers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// TransactionSource records what created a transaction.
type TransactionSource string

const (
	SourceManual      TransactionSource = "manual"
	SourceScheduled   TransactionSource = "scheduled"
	SourceReceipt     TransactionSource = "receipt"
	SourceTransferLeg TransactionSource = "transfer-leg"
)

// Transaction represents a financial transaction in the system
type Transaction struct {
	Base
	OwnerID      string            `gorm:"type:uuid;not null;index:idx_transactions_owner_date,priority:1" json:"owner_id"`
	AccountID    string            `gorm:"type:uuid;not null;index:idx_transactions_account_date,priority:1" json:"account_id"`
	CategoryID   *string           `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Type         TransactionType   `gorm:"not null" json:"type"`
	Amount       money.Money       `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description  string            `json:"description"`
	Date         time.Time         `gorm:"not null;index:idx_transactions_owner_date,priority:2;index:idx_transactions_account_date,priority:2" json:"date"`
	Status       Status            `gorm:"not null;default:'completed'" json:"status"`
	WorkspaceID  *string           `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	LinkedBillID *string           `gorm:"type:uuid;index" json:"linked_bill_id,omitempty"`
	Source       TransactionSource `gorm:"not null;default:'manual'" json:"source"`
}
