package store

import (
	"famledger/internal/models"
	"famledger/internal/money"

	"gorm.io/gorm"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	Create(a *models.Account) error
	Get(id string) (*models.Account, error)
	GetForUpdate(id string) (*models.Account, error)
	List(f AccountFilter) ([]models.Account, error)
	Update(a *models.Account) error
	SetBalance(id string, balance money.Money) error
	// PostingTotal returns the signed sum of every completed posting on the
	// account: non-leg transactions plus completed transfer legs.
	PostingTotal(id string) (money.Money, error)
}

// AccountFilter selects accounts for listing. With WorkspaceID set, the
// workspace's accounts are returned instead of the owner's.
type AccountFilter struct {
	OwnerID         string
	WorkspaceID     *string
	IncludeInactive bool
}

type accountRepo struct {
	db *gorm.DB
}

func (r *accountRepo) Create(a *models.Account) error {
	return translate("create account", r.db.Create(a).Error)
}

func (r *accountRepo) Get(id string) (*models.Account, error) {
	var a models.Account
	if err := first(r.db, "get account", &a, "id = ?", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) GetForUpdate(id string) (*models.Account, error) {
	var a models.Account
	if err := first(forUpdate(r.db), "lock account", &a, "id = ?", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) List(f AccountFilter) ([]models.Account, error) {
	q := r.db.Model(&models.Account{})
	if f.WorkspaceID != nil {
		q = q.Where("workspace_id = ?", *f.WorkspaceID)
	} else {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	var accounts []models.Account
	if err := q.Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, translate("list accounts", err)
	}
	return accounts, nil
}

func (r *accountRepo) Update(a *models.Account) error {
	return translate("update account", r.db.Save(a).Error)
}

func (r *accountRepo) SetBalance(id string, balance money.Money) error {
	res := r.db.Model(&models.Account{}).Where("id = ?", id).Update("balance", balance)
	if res.Error != nil {
		return translate("set balance", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepo) PostingTotal(id string) (money.Money, error) {
	var txTotal, transferTotal money.Money

	err := r.db.Raw(`
		SELECT COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE account_id = ? AND status = ? AND source <> ?`,
		models.TransactionTypeIncome, id, models.StatusCompleted, models.SourceTransferLeg,
	).Row().Scan(&txTotal)
	if err != nil {
		return money.Zero, translate("sum transaction postings", err)
	}

	err = r.db.Raw(`
		SELECT COALESCE(SUM(CASE WHEN to_account_id = ? THEN amount ELSE -amount END), 0)
		FROM transfers
		WHERE status = ? AND (from_account_id = ? OR to_account_id = ?)`,
		id, models.StatusCompleted, id, id,
	).Row().Scan(&transferTotal)
	if err != nil {
		return money.Zero, translate("sum transfer postings", err)
	}

	return txTotal.Add(transferTotal), nil
}
