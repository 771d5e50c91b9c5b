package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"
	"famledger/internal/recurrence"
	"famledger/internal/store"
	"famledger/internal/testutil"

	"github.com/shopspring/decimal"
)

func setup(t *testing.T) (*store.Store, *models.User) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db)
	return store.New(db, 5*time.Second), user
}

func TestDoRollsBack(t *testing.T) {
	s, user := setup(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Do(ctx, func(r *store.Repos) error {
		if err := r.Categories.Create(&models.Category{OwnerID: user.ID, Name: "Food", Type: models.CategoryTypeExpense, IsActive: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_ = s.View(ctx, func(r *store.Repos) error {
		_, total, err := r.Categories.List(user.ID, nil, pagination.PageRequest{Page: 1, PageSize: 10})
		testutil.AssertNoError(t, err)
		if total != 0 {
			t.Errorf("expected rollback to discard the category, found %d", total)
		}
		return nil
	})
}

func TestNotFound(t *testing.T) {
	s, _ := setup(t)

	err := s.View(context.Background(), func(r *store.Repos) error {
		_, err := r.Accounts.Get("00000000-0000-0000-0000-000000000000")
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	s, user := setup(t)

	err := s.Do(context.Background(), func(r *store.Repos) error {
		return r.Users.Create(&models.User{Email: user.Email, Password: "x"})
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestPostingTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db, 0)
	user := testutil.CreateTestUser(t, db)
	a := testutil.CreateTestAccount(t, db, user.ID, "1000.00")
	b := testutil.CreateTestAccount(t, db, user.ID, "0")
	day := testutil.Date(2024, 3, 1)

	rows := []interface{}{
		&models.Transaction{OwnerID: user.ID, AccountID: a.ID, Type: models.TransactionTypeExpense, Amount: money.MustParse("150.50"), Date: day, Status: models.StatusCompleted, Source: models.SourceManual},
		&models.Transaction{OwnerID: user.ID, AccountID: a.ID, Type: models.TransactionTypeIncome, Amount: money.MustParse("20.00"), Date: day, Status: models.StatusCompleted, Source: models.SourceManual},
		&models.Transaction{OwnerID: user.ID, AccountID: a.ID, Type: models.TransactionTypeExpense, Amount: money.MustParse("99.00"), Date: day, Status: models.StatusCancelled, Source: models.SourceManual},
		&models.Transfer{OwnerID: user.ID, FromAccountID: a.ID, ToAccountID: b.ID, Amount: money.MustParse("250.00"), Date: day, Status: models.StatusCompleted},
		&models.Transfer{OwnerID: user.ID, FromAccountID: a.ID, ToAccountID: b.ID, Amount: money.MustParse("5.00"), Date: day, Status: models.StatusPending},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_ = s.View(context.Background(), func(r *store.Repos) error {
		total, err := r.Accounts.PostingTotal(a.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoney(t, total, "-380.50")

		total, err = r.Accounts.PostingTotal(b.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoney(t, total, "250.00")
		return nil
	})
}

func TestTransactionSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db, 0)
	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID, "0")

	for i, amount := range []string{"10.00", "25.00", "40.00"} {
		tx := &models.Transaction{
			OwnerID:     user.ID,
			AccountID:   account.ID,
			Type:        models.TransactionTypeExpense,
			Amount:      money.MustParse(amount),
			Description: []string{"Coffee", "Groceries", "Coffee beans"}[i],
			Date:        testutil.Date(2024, 1, i+1),
			Status:      models.StatusCompleted,
			Source:      models.SourceManual,
		}
		if err := db.Create(tx).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page := pagination.PageRequest{Page: 1, PageSize: 20}
	minAmount := money.MustParse("20.00")

	tests := []struct {
		name   string
		filter store.TransactionFilter
		want   []string
	}{
		{"default order is date desc", store.TransactionFilter{OwnerID: user.ID}, []string{"40.00", "25.00", "10.00"}},
		{"text", store.TransactionFilter{OwnerID: user.ID, Text: "coffee", OrderBy: "amount", OrderDirection: "asc"}, []string{"10.00", "40.00"}},
		{"min amount", store.TransactionFilter{OwnerID: user.ID, MinAmount: &minAmount, OrderBy: "amount", OrderDirection: "asc"}, []string{"25.00", "40.00"}},
		{"unknown column falls back to date", store.TransactionFilter{OwnerID: user.ID, OrderBy: "password", OrderDirection: "asc"}, []string{"10.00", "25.00", "40.00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = s.View(context.Background(), func(r *store.Repos) error {
				got, total, err := r.Transactions.Search(tt.filter, page)
				testutil.AssertNoError(t, err)
				if int(total) != len(tt.want) || len(got) != len(tt.want) {
					t.Fatalf("expected %d results, got %d (total %d)", len(tt.want), len(got), total)
				}
				for i, w := range tt.want {
					testutil.AssertMoney(t, got[i].Amount, w)
				}
				return nil
			})
		})
	}
}

func TestCategoryTotalsSkipInactiveAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db, 0)
	user := testutil.CreateTestUser(t, db)
	active := testutil.CreateTestAccount(t, db, user.ID, "0")
	closed := testutil.CreateTestAccount(t, db, user.ID, "0")
	if err := db.Model(closed).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

	for _, accountID := range []string{active.ID, closed.ID} {
		tx := &models.Transaction{OwnerID: user.ID, AccountID: accountID, CategoryID: &category.ID, Type: models.TransactionTypeExpense, Amount: money.MustParse("30.00"), Date: testutil.Date(2024, 6, 15), Status: models.StatusCompleted, Source: models.SourceManual}
		if err := db.Create(tx).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_ = s.View(context.Background(), func(r *store.Repos) error {
		totals, err := r.Transactions.CategoryTotals(user.ID, testutil.Date(2024, 6, 1), testutil.Date(2024, 7, 1))
		testutil.AssertNoError(t, err)
		if len(totals) != 1 {
			t.Fatalf("expected one total, got %d", len(totals))
		}
		testutil.AssertMoney(t, totals[0].Total, "30.00")
		return nil
	})
}

func TestRecordExecutionIsIdempotent(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	record := func() bool {
		var inserted bool
		err := s.Do(ctx, func(r *store.Repos) error {
			var err error
			inserted, err = r.Scheduled.RecordExecution(&models.ScheduledExecution{
				ScheduledID:    "0190f000-0000-7000-8000-000000000001",
				ExecutionCount: 1,
				OccurrenceDate: testutil.Date(2024, 1, 31),
				TransactionID:  "0190f000-0000-7000-8000-000000000002",
			})
			return err
		})
		testutil.AssertNoError(t, err)
		return inserted
	}

	if !record() {
		t.Error("first record should insert")
	}
	if record() {
		t.Error("second record should be skipped")
	}
}

func TestBillChainHeads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db, 0)
	user := testutil.CreateTestUser(t, db)

	root := testutil.CreateTestBill(t, db, user.ID, "50.00", testutil.Date(2024, 1, 10))
	root.IsRecurring = true
	root.RecurrenceRule = &recurrence.Rule{Type: recurrence.Monthly, Interval: 1}
	if err := db.Save(root).Error; err != nil {
		t.Fatalf("save root: %v", err)
	}
	now := testutil.Date(2024, 3, 1)

	_ = s.Do(context.Background(), func(r *store.Repos) error {
		heads, err := r.Bills.ListChainHeads(now, 10)
		testutil.AssertNoError(t, err)
		if len(heads) != 1 || heads[0].ID != root.ID {
			t.Fatalf("expected the root bill as chain head, got %d bills", len(heads))
		}
		if heads[0].RecurrenceRule == nil || heads[0].RecurrenceRule.Type != recurrence.Monthly {
			t.Fatal("recurrence rule should round-trip through the json serializer")
		}

		successor := &models.Bill{
			OwnerID:            user.ID,
			Name:               root.Name,
			Type:               root.Type,
			Amount:             root.Amount,
			DueDate:            testutil.Date(2024, 2, 10),
			Status:             models.BillStatusPending,
			IsRecurring:        true,
			RecurrenceRule:     root.RecurrenceRule,
			RecurrenceParentID: &root.ID,
		}
		inserted, err := r.Bills.CreateIfAbsent(successor)
		testutil.AssertNoError(t, err)
		if !inserted {
			t.Fatal("successor should be inserted")
		}

		dup := *successor
		dup.ID = ""
		inserted, err = r.Bills.CreateIfAbsent(&dup)
		testutil.AssertNoError(t, err)
		if inserted {
			t.Error("duplicate successor should be skipped")
		}

		heads, err = r.Bills.ListChainHeads(now, 10)
		testutil.AssertNoError(t, err)
		if len(heads) != 1 || heads[0].ID != successor.ID {
			t.Errorf("expected the successor as chain head")
		}

		n, err := r.Bills.MarkOverdue(now)
		testutil.AssertNoError(t, err)
		if n != 2 {
			t.Errorf("expected 2 bills marked overdue, got %d", n)
		}
		return nil
	})
}

func TestGoalAllocationQueries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db, 0)
	user := testutil.CreateTestUser(t, db)
	category := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeSavings)

	newGoal := func(pct int64, status models.GoalStatus) *models.Goal {
		return &models.Goal{
			OwnerID:                    user.ID,
			Name:                       "Goal",
			TargetAmount:               money.MustParse("1000.00"),
			Status:                     status,
			SavingsCategoryID:          &category.ID,
			AutoContributionPercentage: decimal.NewNullDecimal(decimal.NewFromInt(pct)),
		}
	}

	_ = s.Do(context.Background(), func(r *store.Repos) error {
		first := newGoal(40, models.GoalStatusActive)
		testutil.AssertNoError(t, r.Goals.Create(first))
		testutil.AssertNoError(t, r.Goals.Create(newGoal(30, models.GoalStatusCancelled)))
		second := newGoal(25, models.GoalStatusActive)
		testutil.AssertNoError(t, r.Goals.Create(second))

		pct, err := r.Goals.AllocatedPercentage(category.ID, "")
		testutil.AssertNoError(t, err)
		if !pct.Equal(decimal.NewFromInt(65)) {
			t.Errorf("expected 65, got %s", pct)
		}
		pct, err = r.Goals.AllocatedPercentage(category.ID, first.ID)
		testutil.AssertNoError(t, err)
		if !pct.Equal(decimal.NewFromInt(25)) {
			t.Errorf("expected 25 excluding the first goal, got %s", pct)
		}

		goals, err := r.Goals.ListAutoAllocating(user.ID, category.ID)
		testutil.AssertNoError(t, err)
		if len(goals) != 2 {
			t.Errorf("expected 2 allocating goals, got %d", len(goals))
		}

		for _, amount := range []string{"10.00", "15.50"} {
			testutil.AssertNoError(t, r.Goals.AddContribution(&models.GoalContribution{GoalID: first.ID, Amount: money.MustParse(amount), Date: testutil.Date(2024, 1, 1)}))
		}
		total, err := r.Goals.ContributionTotal(first.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertMoney(t, total, "25.50")
		return nil
	})
}

func TestBudgetSaveReplacesTargets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db, 0)
	user := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	rent := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	ctx := context.Background()

	err := s.Do(ctx, func(r *store.Repos) error {
		return r.Budgets.Save(&models.MonthlyBudget{
			OwnerID: user.ID, Month: 6, Year: 2024,
			Targets: []models.MonthlyBudgetTarget{
				{CategoryID: food.ID, TargetAmount: money.MustParse("300.00")},
				{CategoryID: rent.ID, TargetAmount: money.MustParse("1200.00")},
			},
		})
	})
	testutil.AssertNoError(t, err)

	err = s.Do(ctx, func(r *store.Repos) error {
		b, err := r.Budgets.Find(user.ID, 6, 2024)
		if err != nil {
			return err
		}
		if len(b.Targets) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(b.Targets))
		}
		b.Targets = []models.MonthlyBudgetTarget{{CategoryID: food.ID, TargetAmount: money.MustParse("350.00")}}
		return r.Budgets.Save(b)
	})
	testutil.AssertNoError(t, err)

	_ = s.View(ctx, func(r *store.Repos) error {
		b, err := r.Budgets.Find(user.ID, 6, 2024)
		testutil.AssertNoError(t, err)
		if len(b.Targets) != 1 {
			t.Fatalf("expected 1 target after replace, got %d", len(b.Targets))
		}
		testutil.AssertMoney(t, b.Targets[0].TargetAmount, "350.00")
		return nil
	})
}

func TestFindMemberReturnsNilWhenAbsent(t *testing.T) {
	s, user := setup(t)

	_ = s.Do(context.Background(), func(r *store.Repos) error {
		family := &models.Family{OwnerID: user.ID, Name: "Home"}
		testutil.AssertNoError(t, r.Members.CreateFamily(family))

		m, err := r.Members.FindFamilyMember(family.ID, user.ID)
		testutil.AssertNoError(t, err)
		if m != nil {
			t.Fatal("expected no membership")
		}

		member := &models.FamilyMember{FamilyID: family.ID, UserID: user.ID, Role: models.FamilyRoleMember}
		testutil.AssertNoError(t, r.Members.AddFamilyMember(member))
		testutil.AssertNoError(t, r.Members.SavePermission(&models.FamilyMemberPermission{MemberID: member.ID, Module: "transactions", CanView: true}))
		testutil.AssertNoError(t, r.Members.SavePermission(&models.FamilyMemberPermission{MemberID: member.ID, Module: "transactions", CanView: true, CanEdit: true}))

		p, err := r.Members.FindPermission(member.ID, "transactions")
		testutil.AssertNoError(t, err)
		if p == nil || !p.CanEdit {
			t.Error("expected the permission upsert to keep the latest flags")
		}
		return nil
	})
}
