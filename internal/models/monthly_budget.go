package models

import "famledger/internal/money"

// MonthlyBudget holds the plan for one owner and calendar month.
type MonthlyBudget struct {
	Base
	OwnerID           string                `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_budgets_period,priority:1" json:"owner_id"`
	Month             int                   `gorm:"not null;uniqueIndex:idx_monthly_budgets_period,priority:2" json:"month"`
	Year              int                   `gorm:"not null;uniqueIndex:idx_monthly_budgets_period,priority:3" json:"year"`
	PlannedIncome     *money.Money          `gorm:"type:numeric(14,2)" json:"planned_income,omitempty"`
	Rule503020Enabled bool                  `gorm:"column:rule_50_30_20_enabled;not null;default:false" json:"rule_50_30_20_enabled"`
	Targets           []MonthlyBudgetTarget `gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE" json:"targets"`
}

// MonthlyBudgetTarget is the planned amount for one category in a budget.
type MonthlyBudgetTarget struct {
	Base
	BudgetID     string      `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_budget_targets_category,priority:1" json:"budget_id"`
	CategoryID   string      `gorm:"type:uuid;not null;uniqueIndex:idx_monthly_budget_targets_category,priority:2" json:"category_id"`
	TargetAmount money.Money `gorm:"type:numeric(14,2);not null" json:"target_amount"`
}
