package store

import (
	"time"

	"famledger/internal/models"

	"gorm.io/gorm"
)

// ScheduledRepository persists scheduled transactions and their executions.
type ScheduledRepository interface {
	Create(s *models.ScheduledTransaction) error
	Get(id string) (*models.ScheduledTransaction, error)
	GetForUpdate(id string) (*models.ScheduledTransaction, error)
	Update(s *models.ScheduledTransaction) error
	Delete(id string) error
	List(ownerID string, status *models.ScheduleStatus) ([]models.ScheduledTransaction, error)
	// ListDue returns active auto-executing schedules due at or before now.
	ListDue(now time.Time, limit int) ([]models.ScheduledTransaction, error)
	// ListUpcoming returns the owner's active schedules due at or before until.
	ListUpcoming(ownerID string, until time.Time) ([]models.ScheduledTransaction, error)
	// RecordExecution inserts the execution unless (scheduled_id,
	// execution_count) already exists; it reports whether a row was written.
	RecordExecution(e *models.ScheduledExecution) (bool, error)
}

type scheduledRepo struct {
	db *gorm.DB
}

func (r *scheduledRepo) Create(s *models.ScheduledTransaction) error {
	return translate("create scheduled transaction", r.db.Create(s).Error)
}

func (r *scheduledRepo) Get(id string) (*models.ScheduledTransaction, error) {
	var s models.ScheduledTransaction
	if err := first(r.db, "get scheduled transaction", &s, "id = ?", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduledRepo) GetForUpdate(id string) (*models.ScheduledTransaction, error) {
	var s models.ScheduledTransaction
	if err := first(forUpdate(r.db), "lock scheduled transaction", &s, "id = ?", id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduledRepo) Update(s *models.ScheduledTransaction) error {
	return translate("update scheduled transaction", r.db.Save(s).Error)
}

func (r *scheduledRepo) Delete(id string) error {
	if err := r.db.Where("scheduled_id = ?", id).Delete(&models.ScheduledExecution{}).Error; err != nil {
		return translate("delete scheduled executions", err)
	}
	return deleteByID(r.db, "delete scheduled transaction", &models.ScheduledTransaction{}, id)
}

func (r *scheduledRepo) List(ownerID string, status *models.ScheduleStatus) ([]models.ScheduledTransaction, error) {
	q := r.db.Where("owner_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var schedules []models.ScheduledTransaction
	if err := q.Order("next_execution_date ASC").Find(&schedules).Error; err != nil {
		return nil, translate("list scheduled transactions", err)
	}
	return schedules, nil
}

func (r *scheduledRepo) ListDue(now time.Time, limit int) ([]models.ScheduledTransaction, error) {
	var schedules []models.ScheduledTransaction
	err := r.db.
		Where("status = ? AND auto_execute = ? AND next_execution_date IS NOT NULL AND next_execution_date <= ?",
			models.ScheduleStatusActive, true, now).
		Order("next_execution_date ASC").
		Limit(limit).
		Find(&schedules).Error
	if err != nil {
		return nil, translate("list due scheduled transactions", err)
	}
	return schedules, nil
}

func (r *scheduledRepo) ListUpcoming(ownerID string, until time.Time) ([]models.ScheduledTransaction, error) {
	var schedules []models.ScheduledTransaction
	err := r.db.
		Where("owner_id = ? AND status = ? AND next_execution_date IS NOT NULL AND next_execution_date <= ?",
			ownerID, models.ScheduleStatusActive, until).
		Order("next_execution_date ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, translate("list upcoming scheduled transactions", err)
	}
	return schedules, nil
}

func (r *scheduledRepo) RecordExecution(e *models.ScheduledExecution) (bool, error) {
	return insertIfAbsent(r.db, "record scheduled execution", e)
}
