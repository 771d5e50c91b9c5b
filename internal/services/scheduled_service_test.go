package services

import (
	"testing"
	"time"

	"famledger/internal/events"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/recurrence"
	"famledger/internal/store"
	"famledger/internal/testutil"
)

func createMonthlyRent(t *testing.T, env *testEnv, userID, accountID string, start time.Time, maxExecutions *int) *models.ScheduledTransaction {
	t.Helper()
	sched, err := env.scheduled.CreateScheduled(ctx, userID, CreateScheduledInput{
		AccountID:      accountID,
		Type:           models.TransactionTypeExpense,
		Amount:         amount("100.00"),
		Description:    "Rent",
		StartDate:      start,
		RecurrenceRule: recurrence.Rule{Type: recurrence.Monthly, Interval: 1},
		MaxExecutions:  maxExecutions,
		AutoExecute:    true,
	})
	testutil.AssertNoError(t, err)
	return sched
}

func scheduledDates(t *testing.T, env *testEnv, userID, accountID string) []time.Time {
	t.Helper()
	page, err := env.transactions.SearchTransactions(ctx, userID, store.TransactionFilter{
		AccountID:      &accountID,
		OrderBy:        "date",
		OrderDirection: "asc",
	}, pagination.PageRequest{PageSize: 100})
	testutil.AssertNoError(t, err)

	dates := make([]time.Time, 0, len(page.Data))
	for _, tx := range page.Data {
		if tx.Source != models.SourceScheduled {
			t.Errorf("expected scheduled source, got %s", tx.Source)
		}
		dates = append(dates, tx.Date.UTC())
	}
	return dates
}

func TestCreateScheduled(t *testing.T) {
	t.Run("first_occurrence_is_next", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")

		sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 31), nil)
		if sched.Status != models.ScheduleStatusActive {
			t.Errorf("expected active schedule, got %s", sched.Status)
		}
		if sched.NextExecutionDate == nil || !sched.NextExecutionDate.Equal(testutil.Date(2024, time.January, 31)) {
			t.Errorf("expected next execution 2024-01-31, got %v", sched.NextExecutionDate)
		}
	})

	t.Run("end_before_start", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		end := testutil.Date(2023, time.December, 1)

		_, err := env.scheduled.CreateScheduled(ctx, user.ID, CreateScheduledInput{
			AccountID:      account.ID,
			Type:           models.TransactionTypeExpense,
			Amount:         amount("1.00"),
			StartDate:      testutil.Date(2024, time.January, 1),
			EndDate:        &end,
			RecurrenceRule: recurrence.Rule{Type: recurrence.Monthly},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_rule", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")

		_, err := env.scheduled.CreateScheduled(ctx, user.ID, CreateScheduledInput{
			AccountID:      account.ID,
			Type:           models.TransactionTypeExpense,
			Amount:         amount("1.00"),
			StartDate:      testutil.Date(2024, time.January, 1),
			RecurrenceRule: recurrence.Rule{Type: "hourly"},
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("other_users_account", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		other := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, other.ID, "1000.00")

		_, err := env.scheduled.CreateScheduled(ctx, user.ID, CreateScheduledInput{
			AccountID:      account.ID,
			Type:           models.TransactionTypeExpense,
			Amount:         amount("1.00"),
			StartDate:      testutil.Date(2024, time.January, 1),
			RecurrenceRule: recurrence.Rule{Type: recurrence.Monthly},
		})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestMaterializeDue(t *testing.T) {
	t.Run("month_end_clamping", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 31), nil)

		result, err := env.scheduled.MaterializeDue(ctx, testutil.Date(2024, time.May, 1))
		testutil.AssertNoError(t, err)
		if result.Materialized != 4 {
			t.Fatalf("expected 4 occurrences, got %+v", result)
		}

		want := []time.Time{
			testutil.Date(2024, time.January, 31),
			testutil.Date(2024, time.February, 29),
			testutil.Date(2024, time.March, 31),
			testutil.Date(2024, time.April, 30),
		}
		got := scheduledDates(t, env, user.ID, account.ID)
		if len(got) != len(want) {
			t.Fatalf("expected %d transactions, got %d", len(want), len(got))
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("occurrence %d: expected %s, got %s", i+1, want[i], got[i])
			}
		}
		testutil.AssertMoney(t, env.balance(t, account), "600.00")
		env.assertLedgerConsistent(t, account)
	})

	t.Run("rerun_is_idempotent", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 15), nil)
		now := testutil.Date(2024, time.March, 20)

		_, err := env.scheduled.MaterializeDue(ctx, now)
		testutil.AssertNoError(t, err)
		again, err := env.scheduled.MaterializeDue(ctx, now)
		testutil.AssertNoError(t, err)
		if again.Materialized != 0 {
			t.Errorf("expected rerun to materialize nothing, got %d", again.Materialized)
		}

		got, err := env.scheduled.GetScheduledByID(ctx, user.ID, sched.ID)
		testutil.AssertNoError(t, err)
		if got.ExecutionCount != 3 {
			t.Errorf("expected 3 executions, got %d", got.ExecutionCount)
		}
		if got.NextExecutionDate == nil || !got.NextExecutionDate.Equal(testutil.Date(2024, time.April, 15)) {
			t.Errorf("expected next execution 2024-04-15, got %v", got.NextExecutionDate)
		}
		testutil.AssertMoney(t, env.balance(t, account), "700.00")
	})

	t.Run("execution_count_matches_transactions", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 1), nil)

		for _, now := range []time.Time{
			testutil.Date(2024, time.January, 2),
			testutil.Date(2024, time.February, 2),
			testutil.Date(2024, time.February, 3),
		} {
			_, err := env.scheduled.MaterializeDue(ctx, now)
			testutil.AssertNoError(t, err)
		}

		got, err := env.scheduled.GetScheduledByID(ctx, user.ID, sched.ID)
		testutil.AssertNoError(t, err)
		if n := len(scheduledDates(t, env, user.ID, account.ID)); n != got.ExecutionCount {
			t.Errorf("expected %d transactions, got %d", got.ExecutionCount, n)
		}
	})

	t.Run("max_executions_completes", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 1), ptr(2))

		result, err := env.scheduled.MaterializeDue(ctx, testutil.Date(2024, time.June, 1))
		testutil.AssertNoError(t, err)
		if result.Materialized != 2 || result.Completed != 1 {
			t.Errorf("expected 2 materialized and 1 completed, got %+v", result)
		}

		got, err := env.scheduled.GetScheduledByID(ctx, user.ID, sched.ID)
		testutil.AssertNoError(t, err)
		if got.Status != models.ScheduleStatusCompleted || got.NextExecutionDate != nil {
			t.Errorf("expected completed schedule without next date, got %s %v", got.Status, got.NextExecutionDate)
		}
	})

	t.Run("paused_is_skipped", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 1), nil)

		paused := models.ScheduleStatusPaused
		_, err := env.scheduled.UpdateScheduled(ctx, user.ID, sched.ID, UpdateScheduledInput{Status: &paused})
		testutil.AssertNoError(t, err)

		result, err := env.scheduled.MaterializeDue(ctx, testutil.Date(2024, time.March, 1))
		testutil.AssertNoError(t, err)
		if result.Materialized != 0 {
			t.Errorf("expected paused schedule to be skipped, got %d", result.Materialized)
		}
	})

	t.Run("emits_events", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateTestUser(t, env.db)
		account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
		createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 1), nil)

		_, err := env.scheduled.MaterializeDue(ctx, testutil.Date(2024, time.January, 2))
		testutil.AssertNoError(t, err)

		evs := env.recorder.Events()
		last := evs[len(evs)-1]
		if last.Type != events.ScheduledMaterialized || last.Attributes["occurrence_index"] != "1" {
			t.Errorf("unexpected last event %+v", last)
		}
	})
}

func TestExecuteNow(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
	sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2030, time.January, 1), ptr(1))

	t.Run("materializes_future_occurrence", func(t *testing.T) {
		tx, err := env.scheduled.ExecuteNow(ctx, user.ID, sched.ID)
		testutil.AssertNoError(t, err)
		if !tx.Date.Equal(testutil.Date(2030, time.January, 1)) {
			t.Errorf("expected occurrence date 2030-01-01, got %s", tx.Date)
		}
		testutil.AssertMoney(t, env.balance(t, account), "900.00")
	})

	t.Run("completed_schedule", func(t *testing.T) {
		_, err := env.scheduled.ExecuteNow(ctx, user.ID, sched.ID)
		testutil.AssertAppError(t, err, "SCHEDULED_NOT_ACTIVE")
	})

	t.Run("other_user", func(t *testing.T) {
		other := testutil.CreateTestUser(t, env.db)
		_, err := env.scheduled.ExecuteNow(ctx, other.ID, sched.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestUpdateScheduled(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")
	sched := createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.January, 1), nil)

	t.Run("amount", func(t *testing.T) {
		got, err := env.scheduled.UpdateScheduled(ctx, user.ID, sched.ID, UpdateScheduledInput{Amount: ptr(amount("120.00"))})
		testutil.AssertNoError(t, err)
		testutil.AssertMoney(t, got.Amount, "120.00")
	})

	t.Run("cancel_clears_next", func(t *testing.T) {
		cancelled := models.ScheduleStatusCancelled
		got, err := env.scheduled.UpdateScheduled(ctx, user.ID, sched.ID, UpdateScheduledInput{Status: &cancelled})
		testutil.AssertNoError(t, err)
		if got.NextExecutionDate != nil {
			t.Error("expected next execution to be cleared")
		}
	})

	t.Run("cancelled_cannot_resume", func(t *testing.T) {
		active := models.ScheduleStatusActive
		_, err := env.scheduled.UpdateScheduled(ctx, user.ID, sched.ID, UpdateScheduledInput{Status: &active})
		testutil.AssertAppError(t, err, "SCHEDULED_NOT_ACTIVE")
	})

	t.Run("delete", func(t *testing.T) {
		testutil.AssertNoError(t, env.scheduled.DeleteScheduled(ctx, user.ID, sched.ID))
		_, err := env.scheduled.GetScheduledByID(ctx, user.ID, sched.ID)
		testutil.AssertAppError(t, err, "SCHEDULED_NOT_FOUND")
	})
}

func TestGetDueOccurrences(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateTestUser(t, env.db)
	account := testutil.CreateTestAccount(t, env.db, user.ID, "1000.00")

	_, err := env.scheduled.CreateScheduled(ctx, user.ID, CreateScheduledInput{
		AccountID:      account.ID,
		Type:           models.TransactionTypeExpense,
		Amount:         amount("5.00"),
		Description:    "Coffee",
		StartDate:      testutil.Date(2024, time.March, 1),
		RecurrenceRule: recurrence.Rule{Type: recurrence.Weekly, Interval: 1},
	})
	testutil.AssertNoError(t, err)
	createMonthlyRent(t, env, user.ID, account.ID, testutil.Date(2024, time.March, 10), nil)

	now := testutil.Date(2024, time.March, 5)
	occurrences, err := env.scheduled.GetDueOccurrences(ctx, user.ID, now, 14)
	testutil.AssertNoError(t, err)

	// Weekly on Mar 1, 8, 15 and monthly on Mar 10.
	if len(occurrences) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(occurrences))
	}
	for i := 1; i < len(occurrences); i++ {
		if occurrences[i].Date.Before(occurrences[i-1].Date) {
			t.Error("expected occurrences sorted by date")
		}
	}
	if !occurrences[0].Overdue {
		t.Error("expected the Mar 1 occurrence to be overdue")
	}
	if occurrences[1].Overdue {
		t.Error("expected the Mar 8 occurrence not to be overdue")
	}
}
