package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome   CategoryType = "income"
	CategoryTypeExpense  CategoryType = "expense"
	CategoryTypeTransfer CategoryType = "transfer"
	CategoryTypeSavings  CategoryType = "savings"
)

// BudgetGroup tags a category for the 50/30/20 rollup.
type BudgetGroup string

const (
	BudgetGroupNecessities BudgetGroup = "necessities"
	BudgetGroupWants       BudgetGroup = "wants"
	BudgetGroupSavings     BudgetGroup = "savings"
)

// Category represents a transaction category
type Category struct {
	Base
	OwnerID     string       `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`
	ParentID    *string      `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	BudgetGroup *BudgetGroup `json:"budget_group,omitempty"`
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`
}
