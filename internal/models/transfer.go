package models

import (
	"time"

	"famledger/internal/money"
)

// Transfer moves money between two accounts of the same currency. It is
// stored as one row; its two legs are postings derived from it.
type Transfer struct {
	Base
	OwnerID       string      `gorm:"type:uuid;not null;index" json:"owner_id"`
	FromAccountID string      `gorm:"type:uuid;not null;index" json:"from_account_id"`
	ToAccountID   string      `gorm:"type:uuid;not null;index" json:"to_account_id"`
	Amount        money.Money `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date          time.Time   `gorm:"not null" json:"date"`
	Status        Status      `gorm:"not null;default:'completed'" json:"status"`
	ScheduledDate *time.Time  `gorm:"index" json:"scheduled_date,omitempty"`
	Description   string      `json:"description"`
}
