package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"famledger/internal/events"
	"famledger/internal/ledger"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/store"
	"famledger/internal/testutil"
)

var ctx = context.Background()

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db       *gorm.DB
	uow      *store.Store
	recorder *events.Recorder

	accounts     AccountServicer
	categories   CategoryServicer
	transactions TransactionServicer
	transfers    TransferServicer
	bills        BillServicer
	scheduled    ScheduledServicer
	goals        GoalServicer
	budgets      MonthlyBudgetServicer
	sharing      SharingServicer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	uow := store.New(db, 5*time.Second)
	engine := ledger.NewEngine()
	recorder := &events.Recorder{}

	return &testEnv{
		db:           db,
		uow:          uow,
		recorder:     recorder,
		accounts:     NewAccountService(uow, engine),
		categories:   NewCategoryService(uow),
		transactions: NewTransactionService(uow, engine, recorder),
		transfers:    NewTransferService(uow, engine, recorder, false),
		bills:        NewBillService(uow, engine, recorder),
		scheduled:    NewScheduledService(uow, engine, recorder),
		goals:        NewGoalService(uow, recorder),
		budgets:      NewMonthlyBudgetService(uow),
		sharing:      NewSharingService(uow),
	}
}

// balance re-reads the stored balance of an account.
func (e *testEnv) balance(t *testing.T, account *models.Account) money.Money {
	t.Helper()
	return testutil.Reload(t, e.db, account).Balance
}

// assertLedgerConsistent recomputes the account balance from its postings
// and compares it with the stored value.
func (e *testEnv) assertLedgerConsistent(t *testing.T, account *models.Account) {
	t.Helper()

	var (
		stored *models.Account
		total  money.Money
	)
	err := e.uow.View(ctx, func(r *store.Repos) error {
		var err error
		if stored, err = r.Accounts.Get(account.ID); err != nil {
			return err
		}
		total, err = r.Accounts.PostingTotal(account.ID)
		return err
	})
	testutil.AssertNoError(t, err)

	want := stored.InitialBalance.Add(total)
	if !stored.Balance.Equal(want) {
		t.Errorf("balance %s does not match initial balance plus postings %s", stored.Balance, want)
	}
}

func amount(s string) money.Money {
	return money.MustParse(s)
}

func ptr[T any](v T) *T {
	return &v
}
