package store

import (
	"famledger/internal/models"
	"famledger/internal/pagination"

	"gorm.io/gorm"
)

// CategoryRepository persists categories.
type CategoryRepository interface {
	Create(c *models.Category) error
	Get(id string) (*models.Category, error)
	List(ownerID string, categoryType *models.CategoryType, page pagination.PageRequest) ([]models.Category, int64, error)
	Update(c *models.Category) error
	HasActiveChildren(id string) (bool, error)
}

type categoryRepo struct {
	db *gorm.DB
}

func (r *categoryRepo) Create(c *models.Category) error {
	return translate("create category", r.db.Create(c).Error)
}

func (r *categoryRepo) Get(id string) (*models.Category, error) {
	var c models.Category
	if err := first(r.db, "get category", &c, "id = ?", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) List(ownerID string, categoryType *models.CategoryType, page pagination.PageRequest) ([]models.Category, int64, error) {
	q := r.db.Model(&models.Category{}).Where("owner_id = ? AND is_active = ?", ownerID, true)
	if categoryType != nil {
		q = q.Where("type = ?", *categoryType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count categories", err)
	}

	var categories []models.Category
	if err := q.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, 0, translate("list categories", err)
	}
	return categories, total, nil
}

func (r *categoryRepo) Update(c *models.Category) error {
	return translate("update category", r.db.Save(c).Error)
}

func (r *categoryRepo) HasActiveChildren(id string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Category{}).Where("parent_id = ? AND is_active = ?", id, true).Count(&count).Error
	if err != nil {
		return false, translate("count child categories", err)
	}
	return count > 0, nil
}
