package services

import (
	"context"
	"time"

	"famledger/internal/access"
	apperrors "famledger/internal/errors"
	"famledger/internal/events"
	"famledger/internal/ledger"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/store"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	uow       store.UnitOfWork
	engine    *ledger.Engine
	publisher events.Publisher
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(uow store.UnitOfWork, engine *ledger.Engine, publisher events.Publisher) TransactionServicer {
	return &transactionService{uow: uow, engine: engine, publisher: publisher}
}

func validTransactionType(t models.TransactionType) bool {
	return t == models.TransactionTypeIncome || t == models.TransactionTypeExpense
}

func validStatus(s models.Status) bool {
	switch s {
	case models.StatusPending, models.StatusCompleted, models.StatusCancelled:
		return true
	}
	return false
}

// CreateTransaction records a transaction and posts it when completed.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*models.Transaction, error) {
	switch in.Source {
	case "":
		in.Source = models.SourceManual
	case models.SourceManual, models.SourceReceipt:
	case models.SourceTransferLeg:
		return nil, apperrors.ErrTransferLeg
	default:
		return nil, apperrors.WithMessage(apperrors.ErrForbiddenOperation, "transactions with this source are created by the ledger")
	}

	var (
		tx  *models.Transaction
		evs []events.Event
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		tx, evs, err = createTransaction(r, s.engine, userID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, evs...)
	return tx, nil
}

// createTransaction validates and stores a transaction inside a unit of
// work, posts it and runs goal auto-allocation.
func createTransaction(r *store.Repos, engine *ledger.Engine, userID string, in CreateTransactionInput) (*models.Transaction, []events.Event, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !validTransactionType(in.Type) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}
	status := models.StatusCompleted
	if in.Status != nil {
		status = *in.Status
	}
	if !validStatus(status) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown transaction status")
	}

	account, err := loadAccount(r, userID, in.AccountID, access.Edit)
	if err != nil {
		return nil, nil, err
	}
	if !account.IsActive {
		return nil, nil, apperrors.ErrInactiveAccount
	}
	categoryID := nonEmpty(in.CategoryID)
	if categoryID != nil {
		category, err := loadCategory(r, userID, *categoryID)
		if err != nil {
			return nil, nil, err
		}
		if !category.IsActive {
			return nil, nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "category is inactive")
		}
	}
	workspaceID := in.WorkspaceID
	if workspaceID == nil {
		workspaceID = account.WorkspaceID
	}

	tx := &models.Transaction{
		OwnerID:      userID,
		AccountID:    account.ID,
		CategoryID:   categoryID,
		Type:         in.Type,
		Amount:       in.Amount,
		Description:  in.Description,
		Date:         dateOrNow(in.Date),
		Status:       status,
		WorkspaceID:  workspaceID,
		LinkedBillID: in.linkedBillID,
		Source:       in.Source,
	}
	if err := r.Transactions.Create(tx); err != nil {
		return nil, nil, internalErr(err)
	}
	if err := engine.Apply(r.Accounts, ledger.ForTransaction(tx)...); err != nil {
		return nil, nil, err
	}

	evs := []events.Event{transactionEvent(events.TransactionCreated, tx)}
	if tx.Status == models.StatusCompleted {
		contributions, err := allocateToGoals(r, tx)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range contributions {
			evs = append(evs, contributionEvent(tx.OwnerID, &c))
		}
	}
	return tx, evs, nil
}

// GetTransactionByID retrieves a transaction the user may view.
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var tx *models.Transaction
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		tx, err = loadTransaction(r, userID, transactionID, access.View, false)
		return err
	})
	return tx, err
}

func loadTransaction(r *store.Repos, userID, transactionID string, action access.Action, lock bool) (*models.Transaction, error) {
	get := r.Transactions.Get
	if lock {
		get = r.Transactions.GetForUpdate
	}
	tx, err := get(transactionID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrTransactionNotFound)
	}
	account, err := r.Accounts.Get(tx.AccountID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrAccountNotFound)
	}
	if err := access.Check(r.Members, userID, access.ForTransaction(tx, account), action); err != nil {
		return nil, err
	}
	return tx, nil
}

// UpdateTransaction applies a patch. When the posting changes, the old one
// is reversed and the new one applied in the same unit of work.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, in UpdateTransactionInput) (*models.Transaction, error) {
	var (
		tx  *models.Transaction
		evs []events.Event
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		tx, err = loadTransaction(r, userID, transactionID, access.Edit, true)
		if err != nil {
			return err
		}
		if tx.Source == models.SourceTransferLeg {
			return apperrors.ErrTransferLeg
		}
		before := ledger.ForTransaction(tx)
		prev := *tx

		if in.Amount != nil {
			if !in.Amount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
			}
			tx.Amount = *in.Amount
		}
		if in.Type != nil {
			if !validTransactionType(*in.Type) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
			}
			tx.Type = *in.Type
		}
		if in.Status != nil {
			if !validStatus(*in.Status) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown transaction status")
			}
			if tx.LinkedBillID != nil && *in.Status != models.StatusCompleted {
				return apperrors.ErrBillLinked
			}
			tx.Status = *in.Status
		}
		if in.AccountID != nil && *in.AccountID != tx.AccountID {
			account, err := loadAccount(r, userID, *in.AccountID, access.Edit)
			if err != nil {
				return err
			}
			tx.AccountID = account.ID
		}
		if in.CategoryID != nil {
			categoryID := nonEmpty(in.CategoryID)
			if categoryID != nil {
				if _, err := loadCategory(r, userID, *categoryID); err != nil {
					return err
				}
			}
			tx.CategoryID = categoryID
		}
		if in.Description != nil {
			tx.Description = *in.Description
		}
		if in.Date != nil {
			tx.Date = dateOrNow(in.Date)
		}

		if err := s.engine.Replace(r.Accounts, before, ledger.ForTransaction(tx)); err != nil {
			return err
		}
		if err := r.Transactions.Update(tx); err != nil {
			return internalErr(err)
		}
		if !allocationChanged(&prev, tx) {
			return nil
		}
		contributions, err := reallocate(r, tx)
		if err != nil {
			return err
		}
		for i := range contributions {
			evs = append(evs, contributionEvent(tx.OwnerID, &contributions[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, evs...)
	return tx, nil
}

// allocationChanged reports whether an edit affects the goal contributions
// a transaction produces.
func allocationChanged(prev, next *models.Transaction) bool {
	if prev.Status != next.Status {
		return prev.Status == models.StatusCompleted || next.Status == models.StatusCompleted
	}
	if next.Status != models.StatusCompleted {
		return false
	}
	return !prev.Amount.Equal(next.Amount) || !sameID(prev.CategoryID, next.CategoryID)
}

// reallocate drops the contributions tx produced and, when tx posts,
// allocates again from its current amount and category.
func reallocate(r *store.Repos, tx *models.Transaction) ([]models.GoalContribution, error) {
	existing, err := r.Goals.ListContributionsByTransaction(tx.ID)
	if err != nil {
		return nil, internalErr(err)
	}
	for i := range existing {
		if err := removeContribution(r, &existing[i]); err != nil {
			return nil, err
		}
	}
	if tx.Status != models.StatusCompleted {
		return nil, nil
	}
	return allocateToGoals(r, tx)
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeleteTransaction removes a transaction, reversing its posting and
// releasing any bill it paid.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	var tx *models.Transaction
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		tx, err = loadTransaction(r, userID, transactionID, access.Delete, true)
		if err != nil {
			return err
		}
		if tx.Source == models.SourceTransferLeg {
			return apperrors.ErrTransferLeg
		}
		return deleteTransaction(r, s.engine, tx)
	})
	if err != nil {
		return err
	}
	events.Emit(ctx, s.publisher, transactionEvent(events.TransactionDeleted, tx))
	return nil
}

// deleteTransaction reverses the posting of tx, removes the goal
// contributions it produced, unlinks its bill and deletes it.
func deleteTransaction(r *store.Repos, engine *ledger.Engine, tx *models.Transaction) error {
	if err := engine.Reverse(r.Accounts, ledger.ForTransaction(tx)...); err != nil {
		return err
	}

	contributions, err := r.Goals.ListContributionsByTransaction(tx.ID)
	if err != nil {
		return internalErr(err)
	}
	for i := range contributions {
		if err := removeContribution(r, &contributions[i]); err != nil {
			return err
		}
	}

	if tx.LinkedBillID != nil {
		if err := unlinkBill(r, *tx.LinkedBillID, tx.ID); err != nil {
			return err
		}
	}
	return internalErr(r.Transactions.Delete(tx.ID))
}

// SearchTransactions returns a filtered page of the user's transactions, or
// of a workspace's transactions when the filter names one.
func (s *transactionService) SearchTransactions(ctx context.Context, userID string, filter store.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()
	filter.OwnerID = userID
	if filter.OrderBy != "" && !store.ValidOrderColumn(filter.OrderBy) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "order_by is not a sortable column")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_date must not be before start_date")
	}

	var result pagination.PageResponse[models.Transaction]
	err := s.uow.View(ctx, func(r *store.Repos) error {
		if filter.WorkspaceID != nil {
			if err := checkWorkspace(r, userID, *filter.WorkspaceID, access.ModuleTransactions); err != nil {
				return err
			}
		}
		transactions, total, err := r.Transactions.Search(filter, page)
		if err != nil {
			return internalErr(err)
		}
		result = pagination.NewPageResponse(transactions, page.Page, page.PageSize, total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func transactionEvent(eventType string, tx *models.Transaction) events.Event {
	return events.New(eventType, tx.OwnerID, tx.ID, map[string]string{
		"account_id": tx.AccountID,
		"type":       string(tx.Type),
		"amount":     tx.Amount.String(),
		"status":     string(tx.Status),
		"source":     string(tx.Source),
		"date":       tx.Date.Format(time.RFC3339),
	})
}
