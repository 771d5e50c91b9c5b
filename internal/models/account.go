package models

import "famledger/internal/money"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account represents a financial account in the system. Balance is stored
// and kept equal to InitialBalance plus every completed posting on the account.
type Account struct {
	Base
	OwnerID        string      `gorm:"type:uuid;not null;index" json:"owner_id"`
	FamilyID       *string     `gorm:"type:uuid;index" json:"family_id,omitempty"`
	WorkspaceID    *string     `gorm:"type:uuid;index" json:"workspace_id,omitempty"`
	Name           string      `gorm:"not null" json:"name"`
	Type           AccountType `gorm:"not null" json:"type"`
	Description    string      `json:"description"`
	Currency       string      `gorm:"size:3;not null;default:'USD'" json:"currency"`
	InitialBalance money.Money `gorm:"type:numeric(14,2);not null;default:0" json:"initial_balance"`
	Balance        money.Money `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	IsActive       bool        `gorm:"not null;default:true" json:"is_active"`
}
