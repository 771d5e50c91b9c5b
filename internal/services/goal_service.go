package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"famledger/internal/access"
	apperrors "famledger/internal/errors"
	"famledger/internal/events"
	"famledger/internal/models"
	"famledger/internal/store"
)

var maxPercentage = decimal.NewFromInt(100)

// goalService handles savings goals and their contributions.
type goalService struct {
	uow       store.UnitOfWork
	publisher events.Publisher
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(uow store.UnitOfWork, publisher events.Publisher) GoalServicer {
	return &goalService{uow: uow, publisher: publisher}
}

// CreateGoal creates an active goal with no contributions.
func (s *goalService) CreateGoal(ctx context.Context, userID string, in GoalInput) (*models.Goal, error) {
	goal := &models.Goal{OwnerID: userID, Status: models.GoalStatusActive}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if err := applyGoalInput(r, userID, goal, in); err != nil {
			return err
		}
		return internalErr(r.Goals.Create(goal))
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// applyGoalInput validates in and copies it onto goal. The sum of
// auto-contribution percentages on one savings category stays within 100.
func applyGoalInput(r *store.Repos, userID string, goal *models.Goal, in GoalInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "goal name is required")
	}
	if !in.TargetAmount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}

	categoryID := nonEmpty(in.SavingsCategoryID)
	if categoryID != nil {
		if _, err := loadCategory(r, userID, *categoryID); err != nil {
			return err
		}
	}

	pct := decimal.NullDecimal{}
	if in.AutoContributionPercentage != nil {
		p := *in.AutoContributionPercentage
		if p.IsNegative() || p.GreaterThan(maxPercentage) {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "auto contribution percentage must be within 0..100")
		}
		if p.IsPositive() && categoryID == nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "auto contribution requires a savings category")
		}
		pct = decimal.NewNullDecimal(p)
	}

	status := goal.Status
	if in.Status != nil {
		switch *in.Status {
		case models.GoalStatusActive, models.GoalStatusCancelled:
			status = *in.Status
		default:
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active or cancelled")
		}
	}

	if categoryID != nil && pct.Valid && pct.Decimal.IsPositive() && status != models.GoalStatusCancelled {
		allocated, err := r.Goals.AllocatedPercentage(*categoryID, goal.ID)
		if err != nil {
			return internalErr(err)
		}
		if allocated.Add(pct.Decimal).GreaterThan(maxPercentage) {
			return apperrors.ErrAllocationExceeded
		}
	}

	goal.Name = name
	goal.Description = in.Description
	goal.TargetAmount = in.TargetAmount
	goal.TargetDate = in.TargetDate
	goal.SavingsCategoryID = categoryID
	goal.AutoContributionPercentage = pct
	goal.Status = status
	if status != models.GoalStatusCancelled {
		goal.Status = goalStatusFor(goal)
	}
	return nil
}

func goalStatusFor(g *models.Goal) models.GoalStatus {
	if g.CurrentAmount.Cmp(g.TargetAmount) >= 0 {
		return models.GoalStatusCompleted
	}
	return models.GoalStatusActive
}

func loadGoal(r *store.Repos, userID, goalID string, action access.Action, lock bool) (*models.Goal, error) {
	get := r.Goals.Get
	if lock {
		get = r.Goals.GetForUpdate
	}
	goal, err := get(goalID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrGoalNotFound)
	}
	if err := access.Check(r.Members, userID, ownedBy(goal.OwnerID, access.ModuleGoals), action); err != nil {
		return nil, err
	}
	return goal, nil
}

// GetGoalByID retrieves a goal.
func (s *goalService) GetGoalByID(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	var goal *models.Goal
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		goal, err = loadGoal(r, userID, goalID, access.View, false)
		return err
	})
	return goal, err
}

// GetUserGoals lists the user's goals, optionally by status.
func (s *goalService) GetUserGoals(ctx context.Context, userID string, status *models.GoalStatus) ([]models.Goal, error) {
	var goals []models.Goal
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		goals, err = r.Goals.List(userID, status)
		return internalErr(err)
	})
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	return goals, nil
}

// UpdateGoal replaces the writable fields of a goal.
func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID string, in GoalInput) (*models.Goal, error) {
	var goal *models.Goal
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		goal, err = loadGoal(r, userID, goalID, access.Edit, true)
		if err != nil {
			return err
		}
		if err := applyGoalInput(r, userID, goal, in); err != nil {
			return err
		}
		return internalErr(r.Goals.Update(goal))
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes a goal with its contributions.
func (s *goalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		if _, err := loadGoal(r, userID, goalID, access.Delete, true); err != nil {
			return err
		}
		return internalErr(r.Goals.Delete(goalID))
	})
}

// Contribute adds a manual contribution to a goal.
func (s *goalService) Contribute(ctx context.Context, userID, goalID string, in ContributionInput) (*models.GoalContribution, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	var (
		contribution *models.GoalContribution
		goal         *models.Goal
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		goal, err = loadGoal(r, userID, goalID, access.Edit, true)
		if err != nil {
			return err
		}
		if goal.Status == models.GoalStatusCancelled {
			return apperrors.ErrGoalNotActive
		}
		transactionID := nonEmpty(in.TransactionID)
		if transactionID != nil {
			if _, err := loadTransaction(r, userID, *transactionID, access.View, false); err != nil {
				return err
			}
		}
		contribution = &models.GoalContribution{
			GoalID:        goal.ID,
			Amount:        in.Amount,
			Date:          dateOrNow(in.Date),
			TransactionID: transactionID,
			Note:          in.Note,
		}
		return addContribution(r, goal, contribution)
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, contributionEvent(goal.OwnerID, contribution))
	return contribution, nil
}

// GetContributions lists a goal's contributions.
func (s *goalService) GetContributions(ctx context.Context, userID, goalID string) ([]models.GoalContribution, error) {
	var contributions []models.GoalContribution
	err := s.uow.View(ctx, func(r *store.Repos) error {
		if _, err := loadGoal(r, userID, goalID, access.View, false); err != nil {
			return err
		}
		var err error
		contributions, err = r.Goals.ListContributions(goalID)
		return internalErr(err)
	})
	if err != nil {
		return nil, err
	}
	if contributions == nil {
		contributions = []models.GoalContribution{}
	}
	return contributions, nil
}

// DeleteContribution removes a contribution and lowers the goal's amount.
func (s *goalService) DeleteContribution(ctx context.Context, userID, goalID, contributionID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		if _, err := loadGoal(r, userID, goalID, access.Edit, false); err != nil {
			return err
		}
		c, err := r.Goals.GetContribution(contributionID)
		if err != nil {
			return lookupErr(err, apperrors.ErrContributionNotFound)
		}
		if c.GoalID != goalID {
			return apperrors.ErrContributionNotFound
		}
		return removeContribution(r, c)
	})
}

// addContribution stores c and raises the locked goal's current amount.
func addContribution(r *store.Repos, goal *models.Goal, c *models.GoalContribution) error {
	if err := r.Goals.AddContribution(c); err != nil {
		return internalErr(err)
	}
	goal.CurrentAmount = goal.CurrentAmount.Add(c.Amount)
	if goal.Status != models.GoalStatusCancelled {
		goal.Status = goalStatusFor(goal)
	}
	return internalErr(r.Goals.Update(goal))
}

// removeContribution deletes c and lowers its goal's current amount; a
// completed goal that falls below target becomes active again.
func removeContribution(r *store.Repos, c *models.GoalContribution) error {
	goal, err := r.Goals.GetForUpdate(c.GoalID)
	if err != nil {
		return lookupErr(err, apperrors.ErrGoalNotFound)
	}
	if err := r.Goals.DeleteContribution(c.ID); err != nil {
		return lookupErr(err, apperrors.ErrContributionNotFound)
	}
	goal.CurrentAmount = goal.CurrentAmount.Sub(c.Amount)
	if goal.Status != models.GoalStatusCancelled {
		goal.Status = goalStatusFor(goal)
	}
	return internalErr(r.Goals.Update(goal))
}

// allocateToGoals gives every auto-allocating goal on tx's category its
// percentage of tx, rounded half-even.
func allocateToGoals(r *store.Repos, tx *models.Transaction) ([]models.GoalContribution, error) {
	if tx.CategoryID == nil {
		return nil, nil
	}
	goals, err := r.Goals.ListAutoAllocating(tx.OwnerID, *tx.CategoryID)
	if err != nil {
		return nil, internalErr(err)
	}

	var created []models.GoalContribution
	for i := range goals {
		goal := &goals[i]
		amount := tx.Amount.Percent(goal.AutoContributionPercentage.Decimal)
		if !amount.IsPositive() {
			continue
		}
		c := models.GoalContribution{
			GoalID:        goal.ID,
			Amount:        amount,
			Date:          tx.Date,
			TransactionID: &tx.ID,
			Note:          "auto-allocation",
		}
		if err := addContribution(r, goal, &c); err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func contributionEvent(ownerID string, c *models.GoalContribution) events.Event {
	attrs := map[string]string{"goal_id": c.GoalID, "amount": c.Amount.String()}
	if c.TransactionID != nil {
		attrs["transaction_id"] = *c.TransactionID
	}
	return events.New(events.GoalContribution, ownerID, c.ID, attrs)
}

