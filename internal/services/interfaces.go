package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"
	"famledger/internal/recurrence"
	"famledger/internal/store"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
}

// CreateAccountInput holds the fields of a new account.
type CreateAccountInput struct {
	Name           string
	Type           models.AccountType
	Description    string
	Currency       string
	InitialBalance money.Money
	FamilyID       *string
	WorkspaceID    *string
}

// UpdateAccountInput holds the account fields that may change. Nil means unchanged.
type UpdateAccountInput struct {
	Name           *string
	Description    *string
	InitialBalance *money.Money
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(ctx context.Context, userID string, in CreateAccountInput) (*models.Account, error)
	GetUserAccounts(ctx context.Context, userID string, workspaceID *string, includeInactive bool) ([]models.Account, error)
	GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error)
	UpdateAccount(ctx context.Context, userID, accountID string, in UpdateAccountInput) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID, accountID string) error
	RecalculateBalance(ctx context.Context, userID, accountID string) (*models.Account, error)
}

// CategoryInput holds the writable fields of a category.
type CategoryInput struct {
	Name        string
	Type        models.CategoryType
	Description string
	Icon        string
	Color       string
	ParentID    *string
	BudgetGroup *models.BudgetGroup
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID string, in CategoryInput) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID string, in CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// CreateTransactionInput holds the fields of a new transaction. Date
// defaults to now and Status to completed.
type CreateTransactionInput struct {
	AccountID   string
	CategoryID  *string
	Type        models.TransactionType
	Amount      money.Money
	Description string
	Date        *time.Time
	Status      *models.Status
	WorkspaceID *string
	Source      models.TransactionSource

	linkedBillID *string
}

// UpdateTransactionInput holds the transaction fields that may change. Nil means unchanged.
type UpdateTransactionInput struct {
	AccountID   *string
	CategoryID  *string
	Type        *models.TransactionType
	Amount      *money.Money
	Description *string
	Date        *time.Time
	Status      *models.Status
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in CreateTransactionInput) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, in UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	SearchTransactions(ctx context.Context, userID string, filter store.TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

// CreateTransferInput holds the fields of a new transfer. A ScheduledDate in
// the future creates a pending transfer.
type CreateTransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        money.Money
	Date          *time.Time
	ScheduledDate *time.Time
	Description   string
}

// TransferServicer defines the contract for transfers between accounts.
type TransferServicer interface {
	CreateTransfer(ctx context.Context, userID string, in CreateTransferInput) (*models.Transfer, error)
	GetTransferByID(ctx context.Context, userID, transferID string) (*models.Transfer, error)
	GetUserTransfers(ctx context.Context, userID string, status *models.Status, page pagination.PageRequest) (*pagination.PageResponse[models.Transfer], error)
	CancelTransfer(ctx context.Context, userID, transferID string) (*models.Transfer, error)
	DeleteTransfer(ctx context.Context, userID, transferID string) error
	// CompleteDuePending posts pending transfers whose scheduled date has come.
	CompleteDuePending(ctx context.Context, now time.Time) (int, error)
}

// BillInput holds the writable fields of a bill.
type BillInput struct {
	Name           string
	Description    string
	Type           models.BillType
	Amount         money.Money
	DueDate        time.Time
	IsRecurring    bool
	RecurrenceRule *recurrence.Rule
	CategoryID     *string
	// Status may move a bill between pending and cancelled.
	Status *models.BillStatus
}

// PayBillInput selects the account that settles a bill.
type PayBillInput struct {
	AccountID string
	Date      *time.Time
}

// SweepResult summarizes one run of the bill sweep.
type SweepResult struct {
	MarkedOverdue int64 `json:"marked_overdue"`
	Spawned       int   `json:"spawned"`
}

// BillServicer defines the contract for bills and their payment.
type BillServicer interface {
	CreateBill(ctx context.Context, userID string, in BillInput) (*models.Bill, error)
	GetBillByID(ctx context.Context, userID, billID string) (*models.Bill, error)
	GetUserBills(ctx context.Context, userID string, status *models.BillStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Bill], error)
	UpdateBill(ctx context.Context, userID, billID string, in BillInput) (*models.Bill, error)
	DeleteBill(ctx context.Context, userID, billID string) error
	PayBill(ctx context.Context, userID, billID string, in PayBillInput) (*models.Bill, error)
	UnpayBill(ctx context.Context, userID, billID string) (*models.Bill, error)
	// Sweep marks overdue bills and spawns due successors of recurring bills.
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

// CreateScheduledInput holds the fields of a new scheduled transaction.
type CreateScheduledInput struct {
	AccountID      string
	CategoryID     *string
	WorkspaceID    *string
	Type           models.TransactionType
	Amount         money.Money
	Description    string
	StartDate      time.Time
	EndDate        *time.Time
	RecurrenceRule recurrence.Rule
	MaxExecutions  *int
	AutoExecute    bool
}

// UpdateScheduledInput holds the scheduled transaction fields that may change.
type UpdateScheduledInput struct {
	CategoryID  *string
	Amount      *money.Money
	Description *string
	Status      *models.ScheduleStatus
	AutoExecute *bool
}

// DueOccurrence is one upcoming occurrence of a scheduled transaction.
type DueOccurrence struct {
	ScheduledID     string                 `json:"scheduled_id"`
	OccurrenceIndex int                    `json:"occurrence_index"`
	Date            time.Time              `json:"date"`
	Type            models.TransactionType `json:"type"`
	Amount          money.Money            `json:"amount"`
	Description     string                 `json:"description"`
	AutoExecute     bool                   `json:"auto_execute"`
	Overdue         bool                   `json:"overdue"`
}

// MaterializeResult summarizes one run of the recurrence driver.
type MaterializeResult struct {
	Materialized int `json:"materialized"`
	Completed    int `json:"completed"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
}

// ScheduledServicer defines the contract for scheduled transactions.
type ScheduledServicer interface {
	CreateScheduled(ctx context.Context, userID string, in CreateScheduledInput) (*models.ScheduledTransaction, error)
	GetScheduledByID(ctx context.Context, userID, scheduledID string) (*models.ScheduledTransaction, error)
	GetUserScheduled(ctx context.Context, userID string, status *models.ScheduleStatus) ([]models.ScheduledTransaction, error)
	UpdateScheduled(ctx context.Context, userID, scheduledID string, in UpdateScheduledInput) (*models.ScheduledTransaction, error)
	DeleteScheduled(ctx context.Context, userID, scheduledID string) error
	// ExecuteNow materializes the next occurrence regardless of its date.
	ExecuteNow(ctx context.Context, userID, scheduledID string) (*models.Transaction, error)
	GetDueOccurrences(ctx context.Context, userID string, now time.Time, days int) ([]DueOccurrence, error)
	// MaterializeDue creates transactions for every auto-executing occurrence
	// due at or before now.
	MaterializeDue(ctx context.Context, now time.Time) (MaterializeResult, error)
}

// GoalInput holds the writable fields of a goal.
type GoalInput struct {
	Name                       string
	Description                string
	TargetAmount               money.Money
	TargetDate                 *time.Time
	SavingsCategoryID          *string
	AutoContributionPercentage *decimal.Decimal
	Status                     *models.GoalStatus
}

// ContributionInput holds the fields of a manual contribution.
type ContributionInput struct {
	Amount        money.Money
	Date          *time.Time
	TransactionID *string
	Note          string
}

// GoalServicer defines the contract for savings goals.
type GoalServicer interface {
	CreateGoal(ctx context.Context, userID string, in GoalInput) (*models.Goal, error)
	GetGoalByID(ctx context.Context, userID, goalID string) (*models.Goal, error)
	GetUserGoals(ctx context.Context, userID string, status *models.GoalStatus) ([]models.Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, in GoalInput) (*models.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
	Contribute(ctx context.Context, userID, goalID string, in ContributionInput) (*models.GoalContribution, error)
	GetContributions(ctx context.Context, userID, goalID string) ([]models.GoalContribution, error)
	DeleteContribution(ctx context.Context, userID, goalID, contributionID string) error
}

// BudgetTargetInput is the planned amount for one category.
type BudgetTargetInput struct {
	CategoryID string
	Amount     money.Money
}

// MonthlyBudgetInput holds the plan for one month.
type MonthlyBudgetInput struct {
	Month             int
	Year              int
	PlannedIncome     *money.Money
	Rule503020Enabled bool
	Targets           []BudgetTargetInput
}

// CategoryActual is planned-vs-actual for one budgeted category.
type CategoryActual struct {
	CategoryID   string              `json:"category_id"`
	CategoryName string              `json:"category_name"`
	CategoryType models.CategoryType `json:"category_type"`
	Target       money.Money         `json:"target_amount"`
	Actual       money.Money         `json:"actual_amount"`
	Remaining    money.Money         `json:"remaining"`
	Percentage   decimal.Decimal     `json:"percentage"`
}

// GroupActual is planned-vs-actual for one 50/30/20 group.
type GroupActual struct {
	Group     models.BudgetGroup `json:"group"`
	Share     decimal.Decimal    `json:"share"`
	Planned   money.Money        `json:"planned"`
	Actual    money.Money        `json:"actual"`
	Remaining money.Money        `json:"remaining"`
}

// MonthlyBudgetReport is the derived view of one month's budget.
type MonthlyBudgetReport struct {
	Month             int              `json:"month"`
	Year              int              `json:"year"`
	PlannedIncome     *money.Money     `json:"planned_income,omitempty"`
	Rule503020Enabled bool             `json:"rule_50_30_20_enabled"`
	Categories        []CategoryActual `json:"categories"`
	TotalTarget       money.Money      `json:"total_target"`
	TotalActual       money.Money      `json:"total_actual"`
	Groups            []GroupActual    `json:"groups,omitempty"`
}

// MonthlyBudgetServicer defines the contract for monthly budgets.
type MonthlyBudgetServicer interface {
	GetMonthlyBudget(ctx context.Context, userID string, month, year int) (*MonthlyBudgetReport, error)
	SaveMonthlyBudget(ctx context.Context, userID string, in MonthlyBudgetInput) (*MonthlyBudgetReport, error)
}

// PermissionInput is one module row of a family member's permission matrix.
type PermissionInput struct {
	Module    string
	CanView   bool
	CanEdit   bool
	CanDelete bool
}

// SharingServicer defines the contract for workspaces and families.
type SharingServicer interface {
	CreateWorkspace(ctx context.Context, userID, name string) (*models.Workspace, error)
	AddWorkspaceMember(ctx context.Context, userID, workspaceID, memberUserID string, canEdit, canDelete bool) (*models.WorkspaceMember, error)
	CreateFamily(ctx context.Context, userID, name string) (*models.Family, error)
	AddFamilyMember(ctx context.Context, userID, familyID, memberUserID string, role models.FamilyRole) (*models.FamilyMember, error)
	SetMemberPermissions(ctx context.Context, userID, familyID, memberID string, perms []PermissionInput) ([]models.FamilyMemberPermission, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
