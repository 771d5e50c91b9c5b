package store

import (
	"strings"
	"time"

	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"

	"gorm.io/gorm"
)

// TransactionRepository persists transactions.
type TransactionRepository interface {
	Create(t *models.Transaction) error
	Get(id string) (*models.Transaction, error)
	GetForUpdate(id string) (*models.Transaction, error)
	Update(t *models.Transaction) error
	Delete(id string) error
	Search(f TransactionFilter, page pagination.PageRequest) ([]models.Transaction, int64, error)
	// CategoryTotals sums completed transactions of active accounts in
	// [start, end) per category and type.
	CategoryTotals(ownerID string, start, end time.Time) ([]CategoryTotal, error)
	// GroupTotals sums completed expenses of active accounts in [start, end)
	// per category budget group.
	GroupTotals(ownerID string, start, end time.Time) (map[models.BudgetGroup]money.Money, error)
}

// TransactionFilter holds the optional search parameters for transactions.
// Without WorkspaceID the search is restricted to OwnerID's transactions.
type TransactionFilter struct {
	OwnerID        string
	Text           string
	Type           *models.TransactionType
	Status         *models.Status
	CategoryID     *string
	AccountID      *string
	WorkspaceID    *string
	MinAmount      *money.Money
	MaxAmount      *money.Money
	StartDate      *time.Time
	EndDate        *time.Time
	OrderBy        string
	OrderDirection string
}

// CategoryTotal is one row of CategoryTotals.
type CategoryTotal struct {
	CategoryID string
	Type       models.TransactionType
	Total      money.Money
}

var transactionOrderColumns = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"created_at": "created_at",
	"type":       "type",
	"status":     "status",
}

// ValidOrderColumn reports whether column may be used to order transactions.
func ValidOrderColumn(column string) bool {
	_, ok := transactionOrderColumns[column]
	return ok
}

type transactionRepo struct {
	db *gorm.DB
}

func (r *transactionRepo) Create(t *models.Transaction) error {
	return translate("create transaction", r.db.Create(t).Error)
}

func (r *transactionRepo) Get(id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := first(r.db, "get transaction", &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) GetForUpdate(id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := first(forUpdate(r.db), "lock transaction", &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) Update(t *models.Transaction) error {
	return translate("update transaction", r.db.Save(t).Error)
}

func (r *transactionRepo) Delete(id string) error {
	return deleteByID(r.db, "delete transaction", &models.Transaction{}, id)
}

func (r *transactionRepo) Search(f TransactionFilter, page pagination.PageRequest) ([]models.Transaction, int64, error) {
	q := applyTransactionFilter(r.db.Model(&models.Transaction{}), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count transactions", err)
	}

	column, ok := transactionOrderColumns[f.OrderBy]
	if !ok {
		column = "date"
	}
	direction := "DESC"
	if strings.EqualFold(f.OrderDirection, "asc") {
		direction = "ASC"
	}

	var transactions []models.Transaction
	err := q.Scopes(pagination.Paginate(page)).
		Order(column + " " + direction).
		Order("id " + direction).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, translate("search transactions", err)
	}
	return transactions, total, nil
}

func applyTransactionFilter(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.WorkspaceID != nil {
		q = q.Where("workspace_id = ?", *f.WorkspaceID)
	} else {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		q = q.Where("LOWER(description) LIKE ?", "%"+strings.ToLower(text)+"%")
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.StartDate != nil {
		q = q.Where("date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("date <= ?", *f.EndDate)
	}
	return q
}

func (r *transactionRepo) CategoryTotals(ownerID string, start, end time.Time) ([]CategoryTotal, error) {
	rows, err := r.db.Raw(`
		SELECT t.category_id, t.type, COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.owner_id = ? AND t.status = ? AND t.source <> ?
		  AND t.category_id IS NOT NULL
		  AND t.date >= ? AND t.date < ?
		  AND a.is_active = ?
		GROUP BY t.category_id, t.type`,
		ownerID, models.StatusCompleted, models.SourceTransferLeg, start, end, true,
	).Rows()
	if err != nil {
		return nil, translate("sum by category", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var row CategoryTotal
		if err := rows.Scan(&row.CategoryID, &row.Type, &row.Total); err != nil {
			return nil, translate("scan category total", err)
		}
		totals = append(totals, row)
	}
	return totals, translate("iterate category totals", rows.Err())
}

func (r *transactionRepo) GroupTotals(ownerID string, start, end time.Time) (map[models.BudgetGroup]money.Money, error) {
	rows, err := r.db.Raw(`
		SELECT c.budget_group, COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		JOIN categories c ON c.id = t.category_id
		WHERE t.owner_id = ? AND t.status = ? AND t.type = ? AND t.source <> ?
		  AND c.budget_group IS NOT NULL
		  AND t.date >= ? AND t.date < ?
		  AND a.is_active = ?
		GROUP BY c.budget_group`,
		ownerID, models.StatusCompleted, models.TransactionTypeExpense, models.SourceTransferLeg, start, end, true,
	).Rows()
	if err != nil {
		return nil, translate("sum by budget group", err)
	}
	defer rows.Close()

	totals := make(map[models.BudgetGroup]money.Money)
	for rows.Next() {
		var group string
		var total money.Money
		if err := rows.Scan(&group, &total); err != nil {
			return nil, translate("scan group total", err)
		}
		totals[models.BudgetGroup(group)] = total
	}
	return totals, translate("iterate group totals", rows.Err())
}
