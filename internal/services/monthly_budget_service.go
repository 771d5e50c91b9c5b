package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/calendar"
	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/store"
)

var (
	maxBudgetPercentage = decimal.NewFromInt(10000)

	groupShares = []struct {
		group models.BudgetGroup
		share decimal.Decimal
	}{
		{models.BudgetGroupNecessities, decimal.RequireFromString("0.5")},
		{models.BudgetGroupWants, decimal.RequireFromString("0.3")},
		{models.BudgetGroupSavings, decimal.RequireFromString("0.2")},
	}
)

// monthlyBudgetService compares planned category amounts with actual
// spending for one calendar month.
type monthlyBudgetService struct {
	uow store.UnitOfWork
}

// NewMonthlyBudgetService creates a new MonthlyBudgetServicer.
func NewMonthlyBudgetService(uow store.UnitOfWork) MonthlyBudgetServicer {
	return &monthlyBudgetService{uow: uow}
}

// GetMonthlyBudget returns the planned-vs-actual report for a month. A
// month without a saved plan yields an empty report.
func (s *monthlyBudgetService) GetMonthlyBudget(ctx context.Context, userID string, month, year int) (*MonthlyBudgetReport, error) {
	if !calendar.ValidMonth(month) || year < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be within 1..12 and year positive")
	}

	var report *MonthlyBudgetReport
	err := s.uow.View(ctx, func(r *store.Repos) error {
		budget, err := r.Budgets.Find(userID, month, year)
		if errors.Is(err, store.ErrNotFound) {
			budget = &models.MonthlyBudget{OwnerID: userID, Month: month, Year: year}
		} else if err != nil {
			return internalErr(err)
		}
		report, err = buildReport(r, budget)
		return err
	})
	return report, err
}

// SaveMonthlyBudget upserts the plan for a month and returns its report.
func (s *monthlyBudgetService) SaveMonthlyBudget(ctx context.Context, userID string, in MonthlyBudgetInput) (*MonthlyBudgetReport, error) {
	if !calendar.ValidMonth(in.Month) || in.Year < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be within 1..12 and year positive")
	}
	if in.PlannedIncome != nil && in.PlannedIncome.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "planned income must not be negative")
	}
	seen := make(map[string]bool, len(in.Targets))
	for _, t := range in.Targets {
		if t.CategoryID == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target category is required")
		}
		if seen[t.CategoryID] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category appears twice in targets")
		}
		if t.Amount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must not be negative")
		}
		seen[t.CategoryID] = true
	}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		budget, err := r.Budgets.Find(userID, in.Month, in.Year)
		if errors.Is(err, store.ErrNotFound) {
			budget = &models.MonthlyBudget{OwnerID: userID, Month: in.Month, Year: in.Year}
		} else if err != nil {
			return internalErr(err)
		}

		targets := make([]models.MonthlyBudgetTarget, 0, len(in.Targets))
		for _, t := range in.Targets {
			if _, err := loadCategory(r, userID, t.CategoryID); err != nil {
				return err
			}
			targets = append(targets, models.MonthlyBudgetTarget{CategoryID: t.CategoryID, TargetAmount: t.Amount})
		}
		budget.PlannedIncome = in.PlannedIncome
		budget.Rule503020Enabled = in.Rule503020Enabled
		budget.Targets = targets
		return internalErr(r.Budgets.Save(budget))
	})
	if err != nil {
		return nil, err
	}
	return s.GetMonthlyBudget(ctx, userID, in.Month, in.Year)
}

// buildReport derives the actuals of budget from completed transactions in
// its month. Income categories sum income; every other category sums
// expenses.
func buildReport(r *store.Repos, budget *models.MonthlyBudget) (*MonthlyBudgetReport, error) {
	start, end := calendar.MonthRange(budget.Year, time.Month(budget.Month))
	totals, err := r.Transactions.CategoryTotals(budget.OwnerID, start, end)
	if err != nil {
		return nil, internalErr(err)
	}
	actuals := make(map[string]map[models.TransactionType]money.Money)
	for _, t := range totals {
		if actuals[t.CategoryID] == nil {
			actuals[t.CategoryID] = make(map[models.TransactionType]money.Money)
		}
		actuals[t.CategoryID][t.Type] = t.Total
	}

	report := &MonthlyBudgetReport{
		Month:             budget.Month,
		Year:              budget.Year,
		PlannedIncome:     budget.PlannedIncome,
		Rule503020Enabled: budget.Rule503020Enabled,
		Categories:        make([]CategoryActual, 0, len(budget.Targets)),
	}
	for _, target := range budget.Targets {
		row := CategoryActual{CategoryID: target.CategoryID, Target: target.TargetAmount}
		category, err := r.Categories.Get(target.CategoryID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, internalErr(err)
		}
		txType := models.TransactionTypeExpense
		if category != nil {
			row.CategoryName = category.Name
			row.CategoryType = category.Type
			if category.Type == models.CategoryTypeIncome {
				txType = models.TransactionTypeIncome
			}
		}
		row.Actual = actuals[target.CategoryID][txType]
		row.Remaining = row.Target.Sub(row.Actual)
		row.Percentage = budgetPercentage(row.Actual, row.Target)

		report.Categories = append(report.Categories, row)
		report.TotalTarget = report.TotalTarget.Add(row.Target)
		report.TotalActual = report.TotalActual.Add(row.Actual)
	}

	if budget.Rule503020Enabled {
		groups, err := r.Transactions.GroupTotals(budget.OwnerID, start, end)
		if err != nil {
			return nil, internalErr(err)
		}
		var income money.Money
		if budget.PlannedIncome != nil {
			income = *budget.PlannedIncome
		}
		for _, g := range groupShares {
			planned := income.MulRatio(g.share)
			actual := groups[g.group]
			report.Groups = append(report.Groups, GroupActual{
				Group:     g.group,
				Share:     g.share,
				Planned:   planned,
				Actual:    actual,
				Remaining: planned.Sub(actual),
			})
		}
	}
	return report, nil
}

// budgetPercentage is actual/target*100 bounded to [0, 10000]. Spending
// against a zero target reports the upper bound.
func budgetPercentage(actual, target money.Money) decimal.Decimal {
	if !target.IsPositive() {
		if actual.IsPositive() {
			return maxBudgetPercentage
		}
		return decimal.Zero
	}
	pct := actual.Ratio(target).Mul(decimal.NewFromInt(100)).Round(2)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(maxBudgetPercentage) {
		return maxBudgetPercentage
	}
	return pct
}
