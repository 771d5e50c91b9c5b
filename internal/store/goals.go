package store

import (
	"famledger/internal/models"
	"famledger/internal/money"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalRepository persists goals and their contributions.
type GoalRepository interface {
	Create(g *models.Goal) error
	Get(id string) (*models.Goal, error)
	GetForUpdate(id string) (*models.Goal, error)
	Update(g *models.Goal) error
	Delete(id string) error
	List(ownerID string, status *models.GoalStatus) ([]models.Goal, error)
	// ListAutoAllocating returns the active goals of ownerID that take a
	// share of transactions in the savings category, in creation order.
	ListAutoAllocating(ownerID, categoryID string) ([]models.Goal, error)
	// AllocatedPercentage sums auto-contribution percentages on the savings
	// category, leaving out excludeGoalID.
	AllocatedPercentage(categoryID, excludeGoalID string) (decimal.Decimal, error)

	AddContribution(c *models.GoalContribution) error
	GetContribution(id string) (*models.GoalContribution, error)
	DeleteContribution(id string) error
	ListContributions(goalID string) ([]models.GoalContribution, error)
	ListContributionsByTransaction(transactionID string) ([]models.GoalContribution, error)
	ContributionTotal(goalID string) (money.Money, error)
}

type goalRepo struct {
	db *gorm.DB
}

func (r *goalRepo) Create(g *models.Goal) error {
	return translate("create goal", r.db.Create(g).Error)
}

func (r *goalRepo) Get(id string) (*models.Goal, error) {
	var g models.Goal
	if err := first(r.db, "get goal", &g, "id = ?", id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *goalRepo) GetForUpdate(id string) (*models.Goal, error) {
	var g models.Goal
	if err := first(forUpdate(r.db), "lock goal", &g, "id = ?", id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *goalRepo) Update(g *models.Goal) error {
	return translate("update goal", r.db.Save(g).Error)
}

func (r *goalRepo) Delete(id string) error {
	if err := r.db.Where("goal_id = ?", id).Delete(&models.GoalContribution{}).Error; err != nil {
		return translate("delete goal contributions", err)
	}
	return deleteByID(r.db, "delete goal", &models.Goal{}, id)
}

func (r *goalRepo) List(ownerID string, status *models.GoalStatus) ([]models.Goal, error) {
	q := r.db.Where("owner_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var goals []models.Goal
	if err := q.Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, translate("list goals", err)
	}
	return goals, nil
}

func (r *goalRepo) ListAutoAllocating(ownerID, categoryID string) ([]models.Goal, error) {
	var goals []models.Goal
	err := forUpdate(r.db).
		Where("owner_id = ? AND savings_category_id = ? AND status = ?", ownerID, categoryID, models.GoalStatusActive).
		Where("auto_contribution_percentage IS NOT NULL AND auto_contribution_percentage > 0").
		Order("created_at ASC").
		Find(&goals).Error
	if err != nil {
		return nil, translate("list allocating goals", err)
	}
	return goals, nil
}

func (r *goalRepo) AllocatedPercentage(categoryID, excludeGoalID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.Raw(`
		SELECT SUM(auto_contribution_percentage) FROM goals
		WHERE savings_category_id = ? AND id <> ? AND status <> ?`,
		categoryID, excludeGoalID, models.GoalStatusCancelled,
	).Row().Scan(&total)
	if err != nil {
		return decimal.Zero, translate("sum allocation", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *goalRepo) AddContribution(c *models.GoalContribution) error {
	return translate("create contribution", r.db.Create(c).Error)
}

func (r *goalRepo) GetContribution(id string) (*models.GoalContribution, error) {
	var c models.GoalContribution
	if err := first(r.db, "get contribution", &c, "id = ?", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *goalRepo) DeleteContribution(id string) error {
	return deleteByID(r.db, "delete contribution", &models.GoalContribution{}, id)
}

func (r *goalRepo) ListContributions(goalID string) ([]models.GoalContribution, error) {
	var contributions []models.GoalContribution
	if err := r.db.Where("goal_id = ?", goalID).Order("date DESC").Find(&contributions).Error; err != nil {
		return nil, translate("list contributions", err)
	}
	return contributions, nil
}

func (r *goalRepo) ListContributionsByTransaction(transactionID string) ([]models.GoalContribution, error) {
	var contributions []models.GoalContribution
	if err := r.db.Where("transaction_id = ?", transactionID).Find(&contributions).Error; err != nil {
		return nil, translate("list transaction contributions", err)
	}
	return contributions, nil
}

func (r *goalRepo) ContributionTotal(goalID string) (money.Money, error) {
	var total money.Money
	err := r.db.Raw(`SELECT COALESCE(SUM(amount), 0) FROM goal_contributions WHERE goal_id = ?`, goalID).
		Row().Scan(&total)
	if err != nil {
		return money.Zero, translate("sum contributions", err)
	}
	return total, nil
}
