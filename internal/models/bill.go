package models

import (
	"time"

	"famledger/internal/money"
	"famledger/internal/recurrence"
)

// BillType distinguishes money owed from money expected.
type BillType string

const (
	BillTypePayable    BillType = "payable"
	BillTypeReceivable BillType = "receivable"
)

// BillStatus represents the state of a bill.
type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"
	BillStatusPaid      BillStatus = "paid"
	BillStatusOverdue   BillStatus = "overdue"
	BillStatusCancelled BillStatus = "cancelled"
)

// Bill is a dated amount to pay or receive. A paid bill points at the
// transaction that settled it, and that transaction points back.
type Bill struct {
	Base
	OwnerID             string           `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name                string           `gorm:"not null" json:"name"`
	Description         string           `json:"description"`
	Type                BillType         `gorm:"not null" json:"type"`
	Amount              money.Money      `gorm:"type:numeric(14,2);not null" json:"amount"`
	DueDate             time.Time        `gorm:"not null;index:idx_bills_due_status,priority:1;uniqueIndex:idx_bills_recurrence_due,priority:2" json:"due_date"`
	Status              BillStatus       `gorm:"not null;default:'pending';index:idx_bills_due_status,priority:2" json:"status"`
	StatusBeforePayment *BillStatus      `json:"status_before_payment,omitempty"`
	PaymentDate         *time.Time       `json:"payment_date,omitempty"`
	IsRecurring         bool             `gorm:"not null;default:false" json:"is_recurring"`
	RecurrenceRule      *recurrence.Rule `gorm:"type:text;serializer:json" json:"recurrence_rule,omitempty"`
	RecurrenceParentID  *string          `gorm:"type:uuid;uniqueIndex:idx_bills_recurrence_due,priority:1" json:"recurrence_parent_id,omitempty"`
	CategoryID          *string          `gorm:"type:uuid" json:"category_id,omitempty"`
	TransactionID       *string          `gorm:"type:uuid;index" json:"transaction_id,omitempty"`
}
