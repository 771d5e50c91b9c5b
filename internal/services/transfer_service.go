package services

import (
	"context"
	"errors"
	"time"

	"famledger/internal/access"
	"famledger/internal/calendar"
	apperrors "famledger/internal/errors"
	"famledger/internal/events"
	"famledger/internal/ledger"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/store"
)

// pendingBatch bounds how many pending transfers one scheduler tick completes.
const pendingBatch = 100

// transferService moves money between two accounts.
type transferService struct {
	uow           store.UnitOfWork
	engine        *ledger.Engine
	publisher     events.Publisher
	allowNegative bool
}

// NewTransferService creates a new TransferServicer. With allowNegative set,
// non-credit accounts may be overdrawn by a transfer.
func NewTransferService(uow store.UnitOfWork, engine *ledger.Engine, publisher events.Publisher, allowNegative bool) TransferServicer {
	return &transferService{uow: uow, engine: engine, publisher: publisher, allowNegative: allowNegative}
}

// CreateTransfer validates both accounts and posts both legs. A transfer
// scheduled in the future is stored pending without postings.
func (s *transferService) CreateTransfer(ctx context.Context, userID string, in CreateTransferInput) (*models.Transfer, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "both accounts are required")
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, apperrors.ErrSameAccount
	}

	now := calendar.Now()
	transfer := &models.Transfer{
		OwnerID:       userID,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Amount:        in.Amount,
		Date:          dateOrNow(in.Date),
		Status:        models.StatusCompleted,
		Description:   in.Description,
	}
	if in.ScheduledDate != nil {
		scheduled := calendar.Instant(*in.ScheduledDate)
		transfer.ScheduledDate = &scheduled
		if scheduled.After(now) {
			transfer.Status = models.StatusPending
			transfer.Date = scheduled
		}
	}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		for _, id := range []string{in.FromAccountID, in.ToAccountID} {
			if _, err := loadAccount(r, userID, id, access.Edit); err != nil {
				return err
			}
		}
		if err := s.checkAccounts(r, transfer); err != nil {
			return err
		}
		if err := r.Transfers.Create(transfer); err != nil {
			return internalErr(err)
		}
		return s.engine.Apply(r.Accounts, ledger.ForTransfer(transfer)...)
	})
	if err != nil {
		return nil, err
	}
	if transfer.Status == models.StatusCompleted {
		events.Emit(ctx, s.publisher, transferEvent(events.TransferCompleted, transfer))
	}
	return transfer, nil
}

// checkAccounts locks both accounts and enforces the activity, currency
// and funds rules. Funds are only checked for transfers about to post.
func (s *transferService) checkAccounts(r *store.Repos, t *models.Transfer) error {
	locked, err := s.engine.Lock(r.Accounts, t.FromAccountID, t.ToAccountID)
	if err != nil {
		return err
	}
	from, to := locked[t.FromAccountID], locked[t.ToAccountID]
	if !from.IsActive || !to.IsActive {
		return apperrors.ErrInactiveAccount
	}
	if from.Currency != to.Currency {
		return apperrors.ErrCurrencyMismatch
	}
	if t.Status == models.StatusCompleted && !s.allowNegative && from.Type != models.AccountTypeCredit &&
		from.Balance.Sub(t.Amount).IsNegative() {
		return apperrors.ErrInsufficientFunds
	}
	return nil
}

func loadTransfer(r *store.Repos, userID, transferID string, action access.Action, lock bool) (*models.Transfer, error) {
	get := r.Transfers.Get
	if lock {
		get = r.Transfers.GetForUpdate
	}
	t, err := get(transferID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrTransferNotFound)
	}
	if err := access.Check(r.Members, userID, ownedBy(t.OwnerID, access.ModuleTransfers), action); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransferByID retrieves a transfer.
func (s *transferService) GetTransferByID(ctx context.Context, userID, transferID string) (*models.Transfer, error) {
	var t *models.Transfer
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		t, err = loadTransfer(r, userID, transferID, access.View, false)
		return err
	})
	return t, err
}

// GetUserTransfers lists the user's transfers, newest first.
func (s *transferService) GetUserTransfers(ctx context.Context, userID string, status *models.Status, page pagination.PageRequest) (*pagination.PageResponse[models.Transfer], error) {
	page.Defaults()

	var result pagination.PageResponse[models.Transfer]
	err := s.uow.View(ctx, func(r *store.Repos) error {
		transfers, total, err := r.Transfers.List(userID, status, page)
		if err != nil {
			return internalErr(err)
		}
		result = pagination.NewPageResponse(transfers, page.Page, page.PageSize, total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelTransfer reverses both legs of a completed transfer. Cancelling a
// cancelled transfer is a no-op.
func (s *transferService) CancelTransfer(ctx context.Context, userID, transferID string) (*models.Transfer, error) {
	var (
		t        *models.Transfer
		reversed bool
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		t, err = loadTransfer(r, userID, transferID, access.Edit, true)
		if err != nil {
			return err
		}
		if t.Status == models.StatusCancelled {
			return nil
		}
		if t.Status == models.StatusCompleted {
			if err := s.engine.Reverse(r.Accounts, ledger.ForTransfer(t)...); err != nil {
				return err
			}
			reversed = true
		}
		t.Status = models.StatusCancelled
		return internalErr(r.Transfers.Update(t))
	})
	if err != nil {
		return nil, err
	}
	if reversed {
		events.Emit(ctx, s.publisher, transferEvent(events.TransferCancelled, t))
	}
	return t, nil
}

// DeleteTransfer removes a pending or cancelled transfer.
func (s *transferService) DeleteTransfer(ctx context.Context, userID, transferID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		t, err := loadTransfer(r, userID, transferID, access.Delete, true)
		if err != nil {
			return err
		}
		if t.Status == models.StatusCompleted {
			return apperrors.ErrTransferNotPending
		}
		return internalErr(r.Transfers.Delete(t.ID))
	})
}

// CompleteDuePending posts every pending transfer whose scheduled date is
// at or before now. Each transfer commits on its own; one that fails the
// funds rule stays pending and is retried on the next run.
func (s *transferService) CompleteDuePending(ctx context.Context, now time.Time) (int, error) {
	var due []models.Transfer
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		due, err = r.Transfers.ListDuePending(now, pendingBatch)
		return internalErr(err)
	})
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, candidate := range due {
		var t *models.Transfer
		err := s.uow.Do(ctx, func(r *store.Repos) error {
			var err error
			t, err = r.Transfers.GetForUpdate(candidate.ID)
			if err != nil {
				return lookupErr(err, apperrors.ErrTransferNotFound)
			}
			if t.Status != models.StatusPending {
				return errSkip
			}
			t.Status = models.StatusCompleted
			if err := s.checkAccounts(r, t); err != nil {
				return err
			}
			if err := s.engine.Apply(r.Accounts, ledger.ForTransfer(t)...); err != nil {
				return err
			}
			return internalErr(r.Transfers.Update(t))
		})
		switch {
		case errors.Is(err, errSkip):
			continue
		case err != nil:
			logger.Get().Warnw("Pending transfer not completed",
				"transfer_id", candidate.ID,
				"error", err,
			)
			continue
		}
		completed++
		events.Emit(ctx, s.publisher, transferEvent(events.TransferCompleted, t))
	}
	return completed, nil
}

func transferEvent(eventType string, t *models.Transfer) events.Event {
	return events.New(eventType, t.OwnerID, t.ID, map[string]string{
		"from_account_id": t.FromAccountID,
		"to_account_id":   t.ToAccountID,
		"amount":          t.Amount.String(),
	})
}
