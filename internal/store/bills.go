package store

import (
	"time"

	"famledger/internal/models"
	"famledger/internal/pagination"

	"gorm.io/gorm"
)

// BillRepository persists bills.
type BillRepository interface {
	Create(b *models.Bill) error
	// CreateIfAbsent inserts a successor bill unless one already exists for
	// the same (recurrence_parent_id, due_date).
	CreateIfAbsent(b *models.Bill) (bool, error)
	Get(id string) (*models.Bill, error)
	GetForUpdate(id string) (*models.Bill, error)
	Update(b *models.Bill) error
	Delete(id string) error
	List(ownerID string, status *models.BillStatus, page pagination.PageRequest) ([]models.Bill, int64, error)
	// MarkOverdue flips pending bills due before now to overdue.
	MarkOverdue(now time.Time) (int64, error)
	// ListChain returns the bills spawned from rootID, oldest first.
	ListChain(rootID string) ([]models.Bill, error)
	// ListChainHeads returns recurring bills due at or before now that have
	// no later bill in their recurrence chain yet.
	ListChainHeads(now time.Time, limit int) ([]models.Bill, error)
}

type billRepo struct {
	db *gorm.DB
}

func (r *billRepo) Create(b *models.Bill) error {
	return translate("create bill", r.db.Create(b).Error)
}

func (r *billRepo) CreateIfAbsent(b *models.Bill) (bool, error) {
	return insertIfAbsent(r.db, "create successor bill", b)
}

func (r *billRepo) Get(id string) (*models.Bill, error) {
	var b models.Bill
	if err := first(r.db, "get bill", &b, "id = ?", id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billRepo) GetForUpdate(id string) (*models.Bill, error) {
	var b models.Bill
	if err := first(forUpdate(r.db), "lock bill", &b, "id = ?", id); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billRepo) Update(b *models.Bill) error {
	return translate("update bill", r.db.Save(b).Error)
}

func (r *billRepo) Delete(id string) error {
	return deleteByID(r.db, "delete bill", &models.Bill{}, id)
}

func (r *billRepo) List(ownerID string, status *models.BillStatus, page pagination.PageRequest) ([]models.Bill, int64, error) {
	q := r.db.Model(&models.Bill{}).Where("owner_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count bills", err)
	}

	var bills []models.Bill
	if err := q.Scopes(pagination.Paginate(page)).Order("due_date ASC").Find(&bills).Error; err != nil {
		return nil, 0, translate("list bills", err)
	}
	return bills, total, nil
}

func (r *billRepo) MarkOverdue(now time.Time) (int64, error) {
	res := r.db.Model(&models.Bill{}).
		Where("status = ? AND due_date < ?", models.BillStatusPending, now).
		Updates(map[string]interface{}{"status": models.BillStatusOverdue, "updated_at": now})
	if res.Error != nil {
		return 0, translate("mark overdue bills", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *billRepo) ListChain(rootID string) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.Where("recurrence_parent_id = ?", rootID).Order("due_date ASC").Find(&bills).Error
	if err != nil {
		return nil, translate("list bill chain", err)
	}
	return bills, nil
}

func (r *billRepo) ListChainHeads(now time.Time, limit int) ([]models.Bill, error) {
	var bills []models.Bill
	err := r.db.
		Where("is_recurring = ? AND recurrence_rule IS NOT NULL AND status <> ? AND due_date <= ?",
			true, models.BillStatusCancelled, now).
		Where(`NOT EXISTS (
			SELECT 1 FROM bills s
			WHERE s.recurrence_parent_id = COALESCE(bills.recurrence_parent_id, bills.id)
			  AND s.due_date > bills.due_date)`).
		Order("due_date ASC").
		Limit(limit).
		Find(&bills).Error
	if err != nil {
		return nil, translate("list recurring bills", err)
	}
	return bills, nil
}
