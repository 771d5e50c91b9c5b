// Package server wires services and handlers into the HTTP router.
package server

import (
	"time"

	"gorm.io/gorm"

	"famledger/internal/events"
	"famledger/internal/ledger"
	"famledger/internal/services"
	"famledger/internal/store"
)

// Options carries the settings services need at construction.
type Options struct {
	StatementTimeout                time.Duration
	AllowNegativeBalanceOnNonCredit bool
	PasswordMaxBytes                int
}

// Services groups every service the API and the scheduler use.
type Services struct {
	Users         services.UserServicer
	Audit         services.AuditServicer
	Accounts      services.AccountServicer
	Categories    services.CategoryServicer
	Transactions  services.TransactionServicer
	Transfers     services.TransferServicer
	Bills         services.BillServicer
	Scheduled     services.ScheduledServicer
	Goals         services.GoalServicer
	MonthlyBudget services.MonthlyBudgetServicer
	Sharing       services.SharingServicer
}

// NewServices builds all services on one unit of work over db.
func NewServices(db *gorm.DB, publisher events.Publisher, opts Options) Services {
	uow := store.New(db, opts.StatementTimeout)
	engine := ledger.NewEngine()

	return Services{
		Users:         services.NewUserService(uow, opts.PasswordMaxBytes),
		Audit:         services.NewAuditService(uow),
		Accounts:      services.NewAccountService(uow, engine),
		Categories:    services.NewCategoryService(uow),
		Transactions:  services.NewTransactionService(uow, engine, publisher),
		Transfers:     services.NewTransferService(uow, engine, publisher, opts.AllowNegativeBalanceOnNonCredit),
		Bills:         services.NewBillService(uow, engine, publisher),
		Scheduled:     services.NewScheduledService(uow, engine, publisher),
		Goals:         services.NewGoalService(uow, publisher),
		MonthlyBudget: services.NewMonthlyBudgetService(uow),
		Sharing:       services.NewSharingService(uow),
	}
}
