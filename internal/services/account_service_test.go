package services

import (
	"context"
	"testing"

	"famledger/internal/ledger"
	"famledger/internal/models"
	"famledger/internal/store"
	"famledger/internal/testutil"
)

// staleReads serves a fixed snapshot from plain account reads while locked
// reads still see the committed row, like a read taken before another unit
// of work committed.
type staleReads struct {
	*store.Store
	snapshot models.Account
}

type staleAccounts struct {
	store.AccountRepository
	snapshot models.Account
}

func (a staleAccounts) Get(id string) (*models.Account, error) {
	if id == a.snapshot.ID {
		copied := a.snapshot
		return &copied, nil
	}
	return a.AccountRepository.Get(id)
}

func (s staleReads) Do(ctx context.Context, fn func(r *store.Repos) error) error {
	return s.Store.Do(ctx, func(r *store.Repos) error {
		r.Accounts = staleAccounts{AccountRepository: r.Accounts, snapshot: s.snapshot}
		return fn(r)
	})
}

func TestCreateAccount(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		account, err := env.accounts.CreateAccount(ctx, user.ID, CreateAccountInput{
			Name:           "Checking",
			Type:           models.AccountTypeChecking,
			Currency:       "usd",
			InitialBalance: amount("1000.00"),
		})
		testutil.AssertNoError(t, err)

		if account.ID == "" {
			t.Fatal("expected account ID to be set")
		}
		if account.Currency != "USD" {
			t.Errorf("expected currency USD, got %s", account.Currency)
		}
		if !account.IsActive {
			t.Error("expected account to be active")
		}
		testutil.AssertMoney(t, env.balance(t, account), "1000.00")
	})

	t.Run("default_currency", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		account, err := env.accounts.CreateAccount(ctx, user.ID, CreateAccountInput{Name: "Wallet", Type: models.AccountTypeCash})
		testutil.AssertNoError(t, err)
		if account.Currency != "USD" {
			t.Errorf("expected currency USD, got %s", account.Currency)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		_, err := env.accounts.CreateAccount(ctx, user.ID, CreateAccountInput{Name: "  ", Type: models.AccountTypeCash})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_type", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		_, err := env.accounts.CreateAccount(ctx, user.ID, CreateAccountInput{Name: "Odd", Type: "crypto"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("bad_currency", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		_, err := env.accounts.CreateAccount(ctx, user.ID, CreateAccountInput{Name: "Euro", Type: models.AccountTypeCash, Currency: "EURO"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("foreign_workspace", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testutil.CreateTestUser(t, env.db)
		stranger := testutil.CreateTestUser(t, env.db)
		ws, err := env.sharing.CreateWorkspace(ctx, owner.ID, "Household")
		testutil.AssertNoError(t, err)

		_, err = env.accounts.CreateAccount(ctx, stranger.ID, CreateAccountInput{
			Name:        "Sneaky",
			Type:        models.AccountTypeCash,
			WorkspaceID: &ws.ID,
		})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestGetAccountByID(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "10.00")

		got, err := env.accounts.GetAccountByID(ctx, user.ID, account.ID)
		testutil.AssertNoError(t, err)
		if got.ID != account.ID {
			t.Errorf("expected account %s, got %s", account.ID, got.ID)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)

		_, err := env.accounts.GetAccountByID(ctx, user.ID, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("other_user", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testutil.CreateTestUser(t, env.db)
		other := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, owner.ID, "10.00")

		_, err := env.accounts.GetAccountByID(ctx, other.ID, account.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("workspace_member", func(t *testing.T) {
		env := newTestEnv(t)
		owner := testutil.CreateTestUser(t, env.db)
		member := testutil.CreateTestUser(t, env.db)
		ws, err := env.sharing.CreateWorkspace(ctx, owner.ID, "Household")
		testutil.AssertNoError(t, err)
		_, err = env.sharing.AddWorkspaceMember(ctx, owner.ID, ws.ID, member.ID, false, false)
		testutil.AssertNoError(t, err)

		account, err := env.accounts.CreateAccount(ctx, owner.ID, CreateAccountInput{
			Name:        "Shared",
			Type:        models.AccountTypeChecking,
			WorkspaceID: &ws.ID,
		})
		testutil.AssertNoError(t, err)

		_, err = env.accounts.GetAccountByID(ctx, member.ID, account.ID)
		testutil.AssertNoError(t, err)

		_, err = env.accounts.UpdateAccount(ctx, member.ID, account.ID, UpdateAccountInput{Name: ptr("Renamed")})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestGetUserAccounts(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	testutil.CreateTestAccount(t, env.db, user.ID, "1.00")
	closed := testutil.CreateTestAccount(t, env.db, user.ID, "2.00")
	testutil.AssertNoError(t, env.accounts.DeleteAccount(ctx, user.ID, closed.ID))

	t.Run("active_only", func(t *testing.T) {
		accounts, err := env.accounts.GetUserAccounts(ctx, user.ID, nil, false)
		testutil.AssertNoError(t, err)
		if len(accounts) != 1 {
			t.Errorf("expected 1 active account, got %d", len(accounts))
		}
	})

	t.Run("include_inactive", func(t *testing.T) {
		accounts, err := env.accounts.GetUserAccounts(ctx, user.ID, nil, true)
		testutil.AssertNoError(t, err)
		if len(accounts) != 2 {
			t.Errorf("expected 2 accounts, got %d", len(accounts))
		}
	})

	t.Run("empty_for_new_user", func(t *testing.T) {
		other := testutil.CreateTestUser(t, env.db)
		accounts, err := env.accounts.GetUserAccounts(ctx, other.ID, nil, false)
		testutil.AssertNoError(t, err)
		if accounts == nil || len(accounts) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", accounts)
		}
	})
}

func TestUpdateAccount(t *testing.T) {
	t.Run("initial_balance_moves_balance", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")

		_, err := env.transactions.CreateTransaction(ctx, user.ID, CreateTransactionInput{
			AccountID: account.ID,
			Type:      models.TransactionTypeExpense,
			Amount:    amount("100.00"),
		})
		testutil.AssertNoError(t, err)

		updated, err := env.accounts.UpdateAccount(ctx, user.ID, account.ID, UpdateAccountInput{InitialBalance: ptr(amount("1200.00"))})
		testutil.AssertNoError(t, err)

		testutil.AssertMoney(t, updated.Balance, "1100.00")
		env.assertLedgerConsistent(t, account)
	})

	t.Run("rename", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "5.00")

		updated, err := env.accounts.UpdateAccount(ctx, user.ID, account.ID, UpdateAccountInput{Name: ptr("Main")})
		testutil.AssertNoError(t, err)
		if updated.Name != "Main" {
			t.Errorf("expected name Main, got %s", updated.Name)
		}
		testutil.AssertMoney(t, updated.Balance, "5.00")
	})

	t.Run("empty_name", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "5.00")

		_, err := env.accounts.UpdateAccount(ctx, user.ID, account.ID, UpdateAccountInput{Name: ptr("")})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	account := testutil.CreateTestAccount(t, env.db, user.ID, "50.00")

	testutil.AssertNoError(t, env.accounts.DeleteAccount(ctx, user.ID, account.ID))

	reloaded := testutil.Reload(t, env.db, account)
	if reloaded.IsActive {
		t.Error("expected account to be inactive")
	}
	testutil.AssertMoney(t, reloaded.Balance, "50.00")

	_, err := env.transactions.CreateTransaction(ctx, user.ID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      models.TransactionTypeIncome,
		Amount:    amount("1.00"),
	})
	testutil.AssertAppError(t, err, "ACCOUNT_INACTIVE")

	t.Run("keeps_postings_committed_after_read", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		snapshot := *account

		_, err := env.transactions.CreateTransaction(ctx, user.ID, CreateTransactionInput{
			AccountID: account.ID,
			Type:      models.TransactionTypeExpense,
			Amount:    amount("150.50"),
		})
		testutil.AssertNoError(t, err)

		svc := NewAccountService(staleReads{Store: env.uow, snapshot: snapshot}, ledger.NewEngine())
		testutil.AssertNoError(t, svc.DeleteAccount(ctx, user.ID, account.ID))

		reloaded := testutil.Reload(t, env.db, account)
		if reloaded.IsActive {
			t.Error("expected account to be inactive")
		}
		testutil.AssertMoney(t, reloaded.Balance, "849.50")
	})
}

func TestRecalculateBalance(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")

	_, err := env.transactions.CreateTransaction(ctx, user.ID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      models.TransactionTypeExpense,
		Amount:    amount("150.50"),
	})
	testutil.AssertNoError(t, err)

	// Corrupt the stored balance behind the engine's back.
	if err := env.db.Model(&models.Account{}).Where("id = ?", account.ID).Update("balance", "1.00").Error; err != nil {
		t.Fatalf("failed to corrupt balance: %v", err)
	}

	repaired, err := env.accounts.RecalculateBalance(ctx, user.ID, account.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertMoney(t, repaired.Balance, "849.50")
	env.assertLedgerConsistent(t, account)
}
