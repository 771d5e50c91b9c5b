package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"famledger/internal/access"
	"famledger/internal/calendar"
	apperrors "famledger/internal/errors"
	"famledger/internal/events"
	"famledger/internal/ledger"
	"famledger/internal/logger"
	"famledger/internal/models"
	"famledger/internal/recurrence"
	"famledger/internal/store"
)

const (
	// materializeBatch bounds how many schedules one driver run picks up.
	materializeBatch = 100
	// maxCatchUp bounds how many missed occurrences of one schedule a run
	// materializes.
	maxCatchUp = 100
	// maxDueOccurrences bounds the occurrences listed per schedule.
	maxDueOccurrences = 50

	defaultDueDays = 7
	maxDueDays     = 366
)

// errNotDue stops the catch-up loop of a schedule.
var errNotDue = errors.New("not due")

// scheduledService handles scheduled transactions and their materialization.
type scheduledService struct {
	uow       store.UnitOfWork
	engine    *ledger.Engine
	publisher events.Publisher
}

// NewScheduledService creates a new ScheduledServicer.
func NewScheduledService(uow store.UnitOfWork, engine *ledger.Engine, publisher events.Publisher) ScheduledServicer {
	return &scheduledService{uow: uow, engine: engine, publisher: publisher}
}

// CreateScheduled stores an active schedule whose next execution is its
// first occurrence.
func (s *scheduledService) CreateScheduled(ctx context.Context, userID string, in CreateScheduledInput) (*models.ScheduledTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if !validTransactionType(in.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be income or expense")
	}
	if in.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}

	rule := in.RecurrenceRule
	if in.EndDate != nil {
		end := calendar.Instant(*in.EndDate)
		rule.EndDate = &end
	}
	if in.MaxExecutions != nil {
		rule.MaxExecutions = in.MaxExecutions
	}
	if err := rule.Validate(); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	start := calendar.Instant(in.StartDate)
	if rule.EndDate != nil && rule.EndDate.Before(start) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date must not be before start date")
	}
	first, ok := rule.NextDate(start, 1)
	if !ok || !rule.Within(first, 1) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurrence rule produces no occurrence")
	}

	sched := &models.ScheduledTransaction{
		OwnerID:           userID,
		AccountID:         in.AccountID,
		Type:              in.Type,
		Amount:            in.Amount,
		Description:       in.Description,
		StartDate:         start,
		EndDate:           rule.EndDate,
		RecurrenceRule:    rule,
		NextExecutionDate: &first,
		MaxExecutions:     rule.MaxExecutions,
		AutoExecute:       in.AutoExecute,
		Status:            models.ScheduleStatusActive,
	}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		account, err := loadAccount(r, userID, in.AccountID, access.Edit)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return apperrors.ErrInactiveAccount
		}
		sched.CategoryID = nonEmpty(in.CategoryID)
		if sched.CategoryID != nil {
			if _, err := loadCategory(r, userID, *sched.CategoryID); err != nil {
				return err
			}
		}
		sched.WorkspaceID = in.WorkspaceID
		if sched.WorkspaceID == nil {
			sched.WorkspaceID = account.WorkspaceID
		}
		return internalErr(r.Scheduled.Create(sched))
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func loadScheduled(r *store.Repos, userID, scheduledID string, action access.Action, lock bool) (*models.ScheduledTransaction, error) {
	get := r.Scheduled.Get
	if lock {
		get = r.Scheduled.GetForUpdate
	}
	sched, err := get(scheduledID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrScheduledNotFound)
	}
	res := access.Resource{Module: access.ModuleScheduled, OwnerID: sched.OwnerID, WorkspaceID: sched.WorkspaceID}
	if err := access.Check(r.Members, userID, res, action); err != nil {
		return nil, err
	}
	return sched, nil
}

// GetScheduledByID retrieves a scheduled transaction.
func (s *scheduledService) GetScheduledByID(ctx context.Context, userID, scheduledID string) (*models.ScheduledTransaction, error) {
	var sched *models.ScheduledTransaction
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		sched, err = loadScheduled(r, userID, scheduledID, access.View, false)
		return err
	})
	return sched, err
}

// GetUserScheduled lists the user's schedules by next execution date.
func (s *scheduledService) GetUserScheduled(ctx context.Context, userID string, status *models.ScheduleStatus) ([]models.ScheduledTransaction, error) {
	var schedules []models.ScheduledTransaction
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		schedules, err = r.Scheduled.List(userID, status)
		return internalErr(err)
	})
	if err != nil {
		return nil, err
	}
	if schedules == nil {
		schedules = []models.ScheduledTransaction{}
	}
	return schedules, nil
}

// UpdateScheduled changes the template fields or pauses, resumes or
// cancels a schedule. Completed and cancelled schedules keep their status.
func (s *scheduledService) UpdateScheduled(ctx context.Context, userID, scheduledID string, in UpdateScheduledInput) (*models.ScheduledTransaction, error) {
	var sched *models.ScheduledTransaction
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		sched, err = loadScheduled(r, userID, scheduledID, access.Edit, true)
		if err != nil {
			return err
		}

		if in.Amount != nil {
			if !in.Amount.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
			}
			sched.Amount = *in.Amount
		}
		if in.CategoryID != nil {
			categoryID := nonEmpty(in.CategoryID)
			if categoryID != nil {
				if _, err := loadCategory(r, sched.OwnerID, *categoryID); err != nil {
					return err
				}
			}
			sched.CategoryID = categoryID
		}
		if in.Description != nil {
			sched.Description = *in.Description
		}
		if in.AutoExecute != nil {
			sched.AutoExecute = *in.AutoExecute
		}
		if in.Status != nil && *in.Status != sched.Status {
			if err := transitionSchedule(sched, *in.Status); err != nil {
				return err
			}
		}
		return internalErr(r.Scheduled.Update(sched))
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func transitionSchedule(sched *models.ScheduledTransaction, to models.ScheduleStatus) error {
	switch sched.Status {
	case models.ScheduleStatusCompleted, models.ScheduleStatusCancelled:
		return apperrors.ErrScheduledInactive
	}
	switch to {
	case models.ScheduleStatusActive, models.ScheduleStatusPaused:
	case models.ScheduleStatusCancelled:
		sched.NextExecutionDate = nil
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active, paused or cancelled")
	}
	sched.Status = to
	return nil
}

// DeleteScheduled removes a schedule and its execution records. The
// transactions it produced stay.
func (s *scheduledService) DeleteScheduled(ctx context.Context, userID, scheduledID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		if _, err := loadScheduled(r, userID, scheduledID, access.Delete, true); err != nil {
			return err
		}
		return internalErr(r.Scheduled.Delete(scheduledID))
	})
}

// ExecuteNow materializes the next occurrence of an active schedule on demand.
func (s *scheduledService) ExecuteNow(ctx context.Context, userID, scheduledID string) (*models.Transaction, error) {
	var (
		tx  *models.Transaction
		evs []events.Event
	)
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		sched, err := loadScheduled(r, userID, scheduledID, access.Edit, true)
		if err != nil {
			return err
		}
		if sched.Status != models.ScheduleStatusActive || sched.NextExecutionDate == nil {
			return apperrors.ErrScheduledInactive
		}
		tx, evs, _, err = s.materialize(r, sched)
		if errors.Is(err, errSkip) {
			return apperrors.WithMessage(apperrors.ErrConflict, "occurrence was already materialized")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, apperrors.ErrScheduledInactive
	}
	events.Emit(ctx, s.publisher, evs...)
	return tx, nil
}

// MaterializeDue creates a transaction for every occurrence of an active
// auto-executing schedule due at or before now. Each occurrence commits in
// its own unit of work, so a failure leaves earlier occurrences in place.
func (s *scheduledService) MaterializeDue(ctx context.Context, now time.Time) (MaterializeResult, error) {
	var result MaterializeResult
	now = calendar.Instant(now)

	var due []models.ScheduledTransaction
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		due, err = r.Scheduled.ListDue(now, materializeBatch)
		return internalErr(err)
	})
	if err != nil {
		return result, err
	}

	for _, candidate := range due {
		for i := 0; i < maxCatchUp; i++ {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			var (
				tx        *models.Transaction
				evs       []events.Event
				completed bool
			)
			err := s.uow.Do(ctx, func(r *store.Repos) error {
				sched, err := r.Scheduled.GetForUpdate(candidate.ID)
				if err != nil {
					return lookupErr(err, apperrors.ErrScheduledNotFound)
				}
				if sched.Status != models.ScheduleStatusActive || !sched.AutoExecute ||
					sched.NextExecutionDate == nil || sched.NextExecutionDate.After(now) {
					return errNotDue
				}
				tx, evs, completed, err = s.materialize(r, sched)
				return err
			})

			if errors.Is(err, errNotDue) {
				break
			}
			if errors.Is(err, errSkip) {
				result.Skipped++
				break
			}
			if err != nil {
				result.Failed++
				logger.Get().Warnw("Scheduled occurrence not materialized",
					"scheduled_id", candidate.ID,
					"error", err,
				)
				break
			}
			if tx != nil {
				result.Materialized++
				events.Emit(ctx, s.publisher, evs...)
			}
			if completed {
				result.Completed++
				break
			}
		}
	}
	return result, nil
}

// materialize turns the next occurrence of a locked schedule into a
// transaction and advances the schedule. It returns errSkip when the
// occurrence was already recorded, and a nil transaction when the rule
// turned out to be exhausted.
func (s *scheduledService) materialize(r *store.Repos, sched *models.ScheduledTransaction) (*models.Transaction, []events.Event, bool, error) {
	k := sched.ExecutionCount + 1
	date, ok := sched.RecurrenceRule.NextDate(sched.StartDate, k)
	if !ok || !sched.RecurrenceRule.Within(date, k) {
		sched.NextExecutionDate = nil
		sched.Status = models.ScheduleStatusCompleted
		return nil, nil, true, internalErr(r.Scheduled.Update(sched))
	}

	tx, evs, err := createTransaction(r, s.engine, sched.OwnerID, CreateTransactionInput{
		AccountID:   sched.AccountID,
		CategoryID:  sched.CategoryID,
		Type:        sched.Type,
		Amount:      sched.Amount,
		Description: sched.Description,
		Date:        &date,
		WorkspaceID: sched.WorkspaceID,
		Source:      models.SourceScheduled,
	})
	if err != nil {
		return nil, nil, false, err
	}

	recorded, err := r.Scheduled.RecordExecution(&models.ScheduledExecution{
		ScheduledID:    sched.ID,
		ExecutionCount: k,
		OccurrenceDate: date,
		TransactionID:  tx.ID,
	})
	if err != nil {
		return nil, nil, false, internalErr(err)
	}
	if !recorded {
		return nil, nil, false, errSkip
	}

	sched.ExecutionCount = k
	completed := advanceSchedule(sched)
	if err := r.Scheduled.Update(sched); err != nil {
		return nil, nil, false, internalErr(err)
	}

	evs = append(evs, events.New(events.ScheduledMaterialized, sched.OwnerID, sched.ID, map[string]string{
		"transaction_id":   tx.ID,
		"occurrence_index": strconv.Itoa(k),
		"occurrence_date":  date.Format(time.RFC3339),
	}))
	return tx, evs, completed, nil
}

// advanceSchedule moves NextExecutionDate to the occurrence after
// ExecutionCount and completes the schedule once the rule is exhausted.
func advanceSchedule(sched *models.ScheduledTransaction) bool {
	k := sched.ExecutionCount + 1
	next, ok := sched.RecurrenceRule.NextDate(sched.StartDate, k)
	if ok && sched.RecurrenceRule.Within(next, k) {
		sched.NextExecutionDate = &next
		return false
	}
	sched.NextExecutionDate = nil
	sched.Status = models.ScheduleStatusCompleted
	return true
}

// GetDueOccurrences lists the occurrences of the user's active schedules up
// to days ahead of now, oldest first. Occurrences before now are overdue.
func (s *scheduledService) GetDueOccurrences(ctx context.Context, userID string, now time.Time, days int) ([]DueOccurrence, error) {
	if days <= 0 {
		days = defaultDueDays
	}
	if days > maxDueDays {
		days = maxDueDays
	}
	now = calendar.Instant(now)
	until := now.AddDate(0, 0, days)

	var schedules []models.ScheduledTransaction
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		schedules, err = r.Scheduled.ListUpcoming(userID, until)
		return internalErr(err)
	})
	if err != nil {
		return nil, err
	}

	occurrences := []DueOccurrence{}
	for _, sched := range schedules {
		occurrences = append(occurrences, dueOccurrences(sched, now, until)...)
	}
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Date.Before(occurrences[j].Date)
	})
	return occurrences, nil
}

func dueOccurrences(sched models.ScheduledTransaction, now, until time.Time) []DueOccurrence {
	var out []DueOccurrence
	rule := sched.RecurrenceRule
	for k := sched.ExecutionCount + 1; len(out) < maxDueOccurrences; k++ {
		date, ok := rule.NextDate(sched.StartDate, k)
		if !ok || !rule.Within(date, k) || date.After(until) {
			break
		}
		out = append(out, DueOccurrence{
			ScheduledID:     sched.ID,
			OccurrenceIndex: k,
			Date:            date,
			Type:            sched.Type,
			Amount:          sched.Amount,
			Description:     sched.Description,
			AutoExecute:     sched.AutoExecute,
			Overdue:         date.Before(now),
		})
		if rule.Type == recurrence.None {
			break
		}
	}
	return out
}
