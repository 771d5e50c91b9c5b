package store

import (
	"strings"

	"famledger/internal/models"

	"gorm.io/gorm"
)

// UserRepository persists users.
type UserRepository interface {
	Create(u *models.User) error
	Get(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(u *models.User) error
}

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate("create user", r.db.Create(u).Error)
}

func (r *userRepo) Get(id string) (*models.User, error) {
	var u models.User
	if err := first(r.db, "get user", &u, "id = ?", id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(email string) (*models.User, error) {
	var u models.User
	if err := first(r.db, "get user by email", &u, "email = ?", strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Update(u *models.User) error {
	return translate("update user", r.db.Save(u).Error)
}
