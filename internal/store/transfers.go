package store

import (
	"time"

	"famledger/internal/models"
	"famledger/internal/pagination"

	"gorm.io/gorm"
)

// TransferRepository persists transfers.
type TransferRepository interface {
	Create(t *models.Transfer) error
	Get(id string) (*models.Transfer, error)
	GetForUpdate(id string) (*models.Transfer, error)
	Update(t *models.Transfer) error
	Delete(id string) error
	List(ownerID string, status *models.Status, page pagination.PageRequest) ([]models.Transfer, int64, error)
	// ListDuePending returns pending transfers whose scheduled date has come.
	ListDuePending(now time.Time, limit int) ([]models.Transfer, error)
}

type transferRepo struct {
	db *gorm.DB
}

func (r *transferRepo) Create(t *models.Transfer) error {
	return translate("create transfer", r.db.Create(t).Error)
}

func (r *transferRepo) Get(id string) (*models.Transfer, error) {
	var t models.Transfer
	if err := first(r.db, "get transfer", &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) GetForUpdate(id string) (*models.Transfer, error) {
	var t models.Transfer
	if err := first(forUpdate(r.db), "lock transfer", &t, "id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepo) Update(t *models.Transfer) error {
	return translate("update transfer", r.db.Save(t).Error)
}

func (r *transferRepo) Delete(id string) error {
	return deleteByID(r.db, "delete transfer", &models.Transfer{}, id)
}

func (r *transferRepo) List(ownerID string, status *models.Status, page pagination.PageRequest) ([]models.Transfer, int64, error) {
	q := r.db.Model(&models.Transfer{}).Where("owner_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count transfers", err)
	}

	var transfers []models.Transfer
	if err := q.Scopes(pagination.Paginate(page)).Order("date DESC").Find(&transfers).Error; err != nil {
		return nil, 0, translate("list transfers", err)
	}
	return transfers, total, nil
}

func (r *transferRepo) ListDuePending(now time.Time, limit int) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := r.db.Where("status = ? AND scheduled_date IS NOT NULL AND scheduled_date <= ?", models.StatusPending, now).
		Order("scheduled_date ASC").
		Limit(limit).
		Find(&transfers).Error
	if err != nil {
		return nil, translate("list due transfers", err)
	}
	return transfers, nil
}
