package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"famledger/internal/access"
	"famledger/internal/calendar"
	apperrors "famledger/internal/errors"
	"famledger/internal/events"
	"famledger/internal/ledger"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/recurrence"
	"famledger/internal/store"
)

const (
	// sweepBatch bounds how many recurring chains one sweep round inspects.
	sweepBatch = 100
	// maxSweepRounds bounds how far one sweep catches up a lagging chain.
	maxSweepRounds = 12
)

// billService handles bills and their coupling to transactions.
type billService struct {
	uow       store.UnitOfWork
	engine    *ledger.Engine
	publisher events.Publisher
}

// NewBillService creates a new BillServicer.
func NewBillService(uow store.UnitOfWork, engine *ledger.Engine, publisher events.Publisher) BillServicer {
	return &billService{uow: uow, engine: engine, publisher: publisher}
}

// CreateBill creates a pending bill.
func (s *billService) CreateBill(ctx context.Context, userID string, in BillInput) (*models.Bill, error) {
	bill := &models.Bill{OwnerID: userID, Status: models.BillStatusPending}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if err := applyBillInput(r, userID, bill, in); err != nil {
			return err
		}
		return internalErr(r.Bills.Create(bill))
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func applyBillInput(r *store.Repos, userID string, bill *models.Bill, in BillInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "bill name is required")
	}
	if in.Type != models.BillTypePayable && in.Type != models.BillTypeReceivable {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be payable or receivable")
	}
	if !in.Amount.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if in.DueDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}
	if in.IsRecurring {
		if in.RecurrenceRule == nil || in.RecurrenceRule.Type == recurrence.None {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "recurring bills need a recurrence rule")
		}
		if err := in.RecurrenceRule.Validate(); err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
		}
	}
	categoryID := nonEmpty(in.CategoryID)
	if categoryID != nil {
		if _, err := loadCategory(r, userID, *categoryID); err != nil {
			return err
		}
	}
	if in.Status != nil {
		switch *in.Status {
		case models.BillStatusPending, models.BillStatusCancelled:
			bill.Status = *in.Status
		default:
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be pending or cancelled")
		}
	}

	bill.Name = name
	bill.Description = in.Description
	bill.Type = in.Type
	bill.Amount = in.Amount
	bill.DueDate = calendar.Instant(in.DueDate)
	bill.IsRecurring = in.IsRecurring
	bill.RecurrenceRule = nil
	if in.IsRecurring {
		bill.RecurrenceRule = in.RecurrenceRule
	}
	bill.CategoryID = categoryID
	return nil
}

func loadBill(r *store.Repos, userID, billID string, action access.Action, lock bool) (*models.Bill, error) {
	get := r.Bills.Get
	if lock {
		get = r.Bills.GetForUpdate
	}
	bill, err := get(billID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrBillNotFound)
	}
	if err := access.Check(r.Members, userID, ownedBy(bill.OwnerID, access.ModuleBills), action); err != nil {
		return nil, err
	}
	return bill, nil
}

// GetBillByID retrieves a bill.
func (s *billService) GetBillByID(ctx context.Context, userID, billID string) (*models.Bill, error) {
	var bill *models.Bill
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		bill, err = loadBill(r, userID, billID, access.View, false)
		return err
	})
	return bill, err
}

// GetUserBills lists the user's bills by due date.
func (s *billService) GetUserBills(ctx context.Context, userID string, status *models.BillStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Bill], error) {
	page.Defaults()

	var result pagination.PageResponse[models.Bill]
	err := s.uow.View(ctx, func(r *store.Repos) error {
		bills, total, err := r.Bills.List(userID, status, page)
		if err != nil {
			return internalErr(err)
		}
		result = pagination.NewPageResponse(bills, page.Page, page.PageSize, total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateBill replaces the writable fields of an unpaid bill.
func (s *billService) UpdateBill(ctx context.Context, userID, billID string, in BillInput) (*models.Bill, error) {
	var bill *models.Bill
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		bill, err = loadBill(r, userID, billID, access.Edit, true)
		if err != nil {
			return err
		}
		if bill.Status == models.BillStatusPaid {
			return apperrors.WithMessage(apperrors.ErrAlreadyPaid, "paid bills cannot be changed; unpay first")
		}
		if err := applyBillInput(r, bill.OwnerID, bill, in); err != nil {
			return err
		}
		return internalErr(r.Bills.Update(bill))
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// DeleteBill removes an unpaid bill.
func (s *billService) DeleteBill(ctx context.Context, userID, billID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		bill, err := loadBill(r, userID, billID, access.Delete, true)
		if err != nil {
			return err
		}
		if bill.Status == models.BillStatusPaid {
			return apperrors.WithMessage(apperrors.ErrAlreadyPaid, "paid bills cannot be deleted; unpay first")
		}
		return internalErr(r.Bills.Delete(bill.ID))
	})
}

// PayBill settles a bill with a completed transaction on the given account
// and links the two. Paying a recurring bill spawns its successor.
func (s *billService) PayBill(ctx context.Context, userID, billID string, in PayBillInput) (*models.Bill, error) {
	var (
		bill *models.Bill
		evs  []events.Event
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		bill, err = loadBill(r, userID, billID, access.Edit, true)
		if err != nil {
			return err
		}
		switch bill.Status {
		case models.BillStatusPaid:
			return apperrors.ErrAlreadyPaid
		case models.BillStatusCancelled:
			return apperrors.ErrBillCancelled
		}

		txType := models.TransactionTypeExpense
		if bill.Type == models.BillTypeReceivable {
			txType = models.TransactionTypeIncome
		}
		tx, txEvents, err := createTransaction(r, s.engine, userID, CreateTransactionInput{
			AccountID:    in.AccountID,
			CategoryID:   bill.CategoryID,
			Type:         txType,
			Amount:       bill.Amount,
			Description:  bill.Name,
			Date:         in.Date,
			Source:       models.SourceManual,
			linkedBillID: &bill.ID,
		})
		if err != nil {
			return err
		}

		previous := bill.Status
		bill.StatusBeforePayment = &previous
		bill.Status = models.BillStatusPaid
		bill.PaymentDate = &tx.Date
		bill.TransactionID = &tx.ID
		if err := r.Bills.Update(bill); err != nil {
			return internalErr(err)
		}
		if _, err := spawnSuccessor(r, bill); err != nil {
			return err
		}

		evs = append(txEvents, billEvent(events.BillPaid, bill))
		return nil
	})
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, evs...)
	return bill, nil
}

// UnpayBill deletes the payment transaction, which reverses its posting and
// restores the bill to its status before payment.
func (s *billService) UnpayBill(ctx context.Context, userID, billID string) (*models.Bill, error) {
	var (
		bill *models.Bill
		txID string
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		current, err := loadBill(r, userID, billID, access.Edit, true)
		if err != nil {
			return err
		}
		if current.Status != models.BillStatusPaid {
			return apperrors.ErrBillNotPaid
		}

		if current.TransactionID != nil {
			txID = *current.TransactionID
			tx, err := r.Transactions.GetForUpdate(txID)
			switch {
			case err == nil:
				if err := deleteTransaction(r, s.engine, tx); err != nil {
					return err
				}
			case errors.Is(err, store.ErrNotFound):
				if err := unlinkBill(r, current.ID, txID); err != nil {
					return err
				}
			default:
				return internalErr(err)
			}
		} else {
			restoreUnpaid(current)
			if err := r.Bills.Update(current); err != nil {
				return internalErr(err)
			}
		}

		if err := retractSuccessor(r, current); err != nil {
			return err
		}

		bill, err = r.Bills.Get(billID)
		return lookupErr(err, apperrors.ErrBillNotFound)
	})
	if err != nil {
		return nil, err
	}
	ev := billEvent(events.BillUnpaid, bill)
	if txID != "" {
		ev.Attributes["transaction_id"] = txID
	}
	events.Emit(ctx, s.publisher, ev)
	return bill, nil
}

// unlinkBill clears the payment link of billID if it still points at txID.
func unlinkBill(r *store.Repos, billID, txID string) error {
	bill, err := r.Bills.GetForUpdate(billID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalErr(err)
	}
	if bill.TransactionID == nil || *bill.TransactionID != txID {
		return nil
	}
	restoreUnpaid(bill)
	return internalErr(r.Bills.Update(bill))
}

func restoreUnpaid(bill *models.Bill) {
	status := models.BillStatusPending
	if bill.StatusBeforePayment != nil {
		status = *bill.StatusBeforePayment
	}
	bill.Status = status
	bill.StatusBeforePayment = nil
	bill.PaymentDate = nil
	bill.TransactionID = nil
}

// retractSuccessor deletes the successor that paying bill spawned, as long
// as it is still the untouched head of the chain.
func retractSuccessor(r *store.Repos, bill *models.Bill) error {
	expected, ok, err := nextInChain(r, bill)
	if err != nil || !ok {
		return err
	}
	chain, err := r.Bills.ListChain(*expected.RecurrenceParentID)
	if err != nil {
		return internalErr(err)
	}
	for i, b := range chain {
		if !b.DueDate.Equal(expected.DueDate) {
			continue
		}
		if b.Status != models.BillStatusPending || b.TransactionID != nil || i != len(chain)-1 {
			return nil
		}
		return lookupErr(r.Bills.Delete(b.ID), apperrors.ErrBillNotFound)
	}
	return nil
}

// spawnSuccessor creates the next bill of a recurring chain unless it
// already exists.
func spawnSuccessor(r *store.Repos, bill *models.Bill) (bool, error) {
	successor, ok, err := nextInChain(r, bill)
	if err != nil || !ok {
		return false, err
	}
	created, err := r.Bills.CreateIfAbsent(successor)
	return created, internalErr(err)
}

// nextInChain builds the successor of bill. Dates are produced from the
// chain root's due date so a clamped month does not drift the rest of the
// chain. It reports false once the rule is exhausted.
func nextInChain(r *store.Repos, bill *models.Bill) (*models.Bill, bool, error) {
	if !bill.IsRecurring || bill.RecurrenceRule == nil {
		return nil, false, nil
	}

	rootID, base := bill.ID, bill.DueDate
	if bill.RecurrenceParentID != nil {
		rootID = *bill.RecurrenceParentID
		root, err := r.Bills.Get(rootID)
		switch {
		case err == nil:
			base = root.DueDate
		case !errors.Is(err, store.ErrNotFound):
			return nil, false, internalErr(err)
		}
	}

	next, _, ok := bill.RecurrenceRule.After(base, bill.DueDate, 1)
	if !ok {
		return nil, false, nil
	}
	return &models.Bill{
		OwnerID:            bill.OwnerID,
		Name:               bill.Name,
		Description:        bill.Description,
		Type:               bill.Type,
		Amount:             bill.Amount,
		DueDate:            next,
		Status:             models.BillStatusPending,
		IsRecurring:        true,
		RecurrenceRule:     bill.RecurrenceRule,
		RecurrenceParentID: &rootID,
		CategoryID:         bill.CategoryID,
	}, true, nil
}

// Sweep spawns the successors of recurring bills that have come due, then
// flips pending bills past their due date to overdue. A chain whose rule is
// exhausted stops recurring.
func (s *billService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	now = calendar.Instant(now)

	for round := 0; round < maxSweepRounds; round++ {
		var heads []models.Bill
		err := s.uow.View(ctx, func(r *store.Repos) error {
			var err error
			heads, err = r.Bills.ListChainHeads(now, sweepBatch)
			return internalErr(err)
		})
		if err != nil {
			return result, err
		}
		if len(heads) == 0 {
			break
		}

		progressed := false
		for _, head := range heads {
			var created bool
			err := s.uow.Do(ctx, func(r *store.Repos) error {
				bill, err := r.Bills.GetForUpdate(head.ID)
				if err != nil {
					return lookupErr(err, apperrors.ErrBillNotFound)
				}
				successor, ok, err := nextInChain(r, bill)
				if err != nil {
					return err
				}
				if !ok {
					bill.IsRecurring = false
					return internalErr(r.Bills.Update(bill))
				}
				created, err = r.Bills.CreateIfAbsent(successor)
				return internalErr(err)
			})
			if err != nil {
				logger.Get().Warnw("Recurring bill not advanced",
					"bill_id", head.ID,
					"error", err,
				)
				continue
			}
			progressed = true
			if created {
				result.Spawned++
			}
		}
		if !progressed {
			break
		}
	}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		result.MarkedOverdue, err = r.Bills.MarkOverdue(now)
		return internalErr(err)
	})
	return result, err
}

func billEvent(eventType string, bill *models.Bill) events.Event {
	attrs := map[string]string{
		"type":   string(bill.Type),
		"amount": bill.Amount.String(),
		"status": string(bill.Status),
	}
	if bill.TransactionID != nil {
		attrs["transaction_id"] = *bill.TransactionID
	}
	return events.New(eventType, bill.OwnerID, bill.ID, attrs)
}
