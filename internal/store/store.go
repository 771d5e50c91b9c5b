// Package store persists ledger entities through GORM. Every entity has a
// narrow repository interface; Store hands out a Repos set bound either to a
// database transaction (Do) or to the plain connection pool (View).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// UnitOfWork runs repository calls atomically.
type UnitOfWork interface {
	// Do runs fn inside one database transaction. Returning an error rolls back.
	Do(ctx context.Context, fn func(r *Repos) error) error
	// View runs fn against the connection pool without a transaction.
	View(ctx context.Context, fn func(r *Repos) error) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Accounts     AccountRepository
	Categories   CategoryRepository
	Transactions TransactionRepository
	Transfers    TransferRepository
	Bills        BillRepository
	Goals        GoalRepository
	Scheduled    ScheduledRepository
	Budgets      BudgetRepository
	Members      MemberRepository
	Users        UserRepository
	Audit        AuditRepository
}

func newRepos(db *gorm.DB) *Repos {
	return &Repos{
		Accounts:     &accountRepo{db: db},
		Categories:   &categoryRepo{db: db},
		Transactions: &transactionRepo{db: db},
		Transfers:    &transferRepo{db: db},
		Bills:        &billRepo{db: db},
		Goals:        &goalRepo{db: db},
		Scheduled:    &scheduledRepo{db: db},
		Budgets:      &budgetRepo{db: db},
		Members:      &memberRepo{db: db},
		Users:        &userRepo{db: db},
		Audit:        &auditRepo{db: db},
	}
}

// Store is the GORM-backed UnitOfWork.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// New creates a Store. Every unit of work is bounded by timeout.
func New(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Do implements UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(r *Repos) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepos(tx))
	})
}

// View implements UnitOfWork.
func (s *Store) View(ctx context.Context, fn func(r *Repos) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return fn(newRepos(s.db.WithContext(ctx)))
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// forUpdate adds SELECT ... FOR UPDATE; the SQLite dialect drops it.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// translate maps GORM errors onto the store sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// first loads one record matching the query into dst.
func first(db *gorm.DB, op string, dst interface{}, query interface{}, args ...interface{}) error {
	return translate(op, db.Where(query, args...).First(dst).Error)
}

// deleteByID removes one record and reports ErrNotFound when nothing matched.
func deleteByID(db *gorm.DB, op string, model interface{}, id string) error {
	res := db.Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// insertIfAbsent inserts value unless a unique constraint already holds it.
func insertIfAbsent(db *gorm.DB, op string, value interface{}) (bool, error) {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if res.Error != nil {
		return false, translate(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}
