package store

import (
	"famledger/internal/models"

	"gorm.io/gorm"
)

// BudgetRepository persists monthly budgets.
type BudgetRepository interface {
	// Find loads the budget for (owner, month, year) with its targets.
	Find(ownerID string, month, year int) (*models.MonthlyBudget, error)
	// Save creates or updates the budget row and replaces its targets.
	Save(b *models.MonthlyBudget) error
}

type budgetRepo struct {
	db *gorm.DB
}

func (r *budgetRepo) Find(ownerID string, month, year int) (*models.MonthlyBudget, error) {
	var b models.MonthlyBudget
	err := r.db.Preload("Targets").
		Where("owner_id = ? AND month = ? AND year = ?", ownerID, month, year).
		First(&b).Error
	if err != nil {
		return nil, translate("get monthly budget", err)
	}
	return &b, nil
}

func (r *budgetRepo) Save(b *models.MonthlyBudget) error {
	targets := b.Targets
	b.Targets = nil

	if err := r.db.Omit("Targets").Save(b).Error; err != nil {
		return translate("save monthly budget", err)
	}
	if err := r.db.Where("budget_id = ?", b.ID).Delete(&models.MonthlyBudgetTarget{}).Error; err != nil {
		return translate("clear budget targets", err)
	}
	for i := range targets {
		targets[i].ID = ""
		targets[i].BudgetID = b.ID
	}
	if len(targets) > 0 {
		if err := r.db.Create(&targets).Error; err != nil {
			return translate("create budget targets", err)
		}
	}
	b.Targets = targets
	return nil
}
