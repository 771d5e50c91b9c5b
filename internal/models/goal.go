package models

import (
	"time"

	"famledger/internal/money"

	"github.com/shopspring/decimal"
)

// GoalStatus represents the state of a savings goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// Goal is a savings target. CurrentAmount always equals the sum of its
// contributions.
type Goal struct {
	Base
	OwnerID                    string              `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name                       string              `gorm:"not null" json:"name"`
	Description                string              `json:"description"`
	TargetAmount               money.Money         `gorm:"type:numeric(14,2);not null" json:"target_amount"`
	CurrentAmount              money.Money         `gorm:"type:numeric(14,2);not null;default:0" json:"current_amount"`
	TargetDate                 *time.Time          `json:"target_date,omitempty"`
	Status                     GoalStatus          `gorm:"not null;default:'active'" json:"status"`
	SavingsCategoryID          *string             `gorm:"type:uuid;index" json:"savings_category_id,omitempty"`
	AutoContributionPercentage decimal.NullDecimal `gorm:"type:numeric(5,2)" json:"auto_contribution_percentage"`
}

// GoalContribution is an immutable amount added to a goal.
type GoalContribution struct {
	Base
	GoalID        string      `gorm:"type:uuid;not null;index" json:"goal_id"`
	Amount        money.Money `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date          time.Time   `gorm:"not null" json:"date"`
	TransactionID *string     `gorm:"type:uuid;index" json:"transaction_id,omitempty"`
	Note          string      `json:"note"`
}
