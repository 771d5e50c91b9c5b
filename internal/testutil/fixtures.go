package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"famledger/internal/models"
	"famledger/internal/money"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an active USD checking account whose balance
// equals its initial balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, ownerID, balance string) *models.Account {
	t.Helper()
	return CreateTestAccountOfType(t, db, ownerID, models.AccountTypeChecking, balance)
}

// CreateTestAccountOfType creates an active USD account of the given type.
func CreateTestAccountOfType(t *testing.T, db *gorm.DB, ownerID string, accountType models.AccountType, balance string) *models.Account {
	t.Helper()

	amount := money.MustParse(balance)
	account := &models.Account{
		OwnerID:        ownerID,
		Name:           fmt.Sprintf("Test Account %d", nextID()),
		Type:           accountType,
		Currency:       "USD",
		InitialBalance: amount,
		Balance:        amount,
		IsActive:       true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates an active category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, ownerID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		OwnerID:  ownerID,
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		Type:     categoryType,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestBill creates a pending payable bill.
func CreateTestBill(t *testing.T, db *gorm.DB, ownerID, amount string, due time.Time) *models.Bill {
	t.Helper()

	bill := &models.Bill{
		OwnerID: ownerID,
		Name:    fmt.Sprintf("Test Bill %d", nextID()),
		Type:    models.BillTypePayable,
		Amount:  money.MustParse(amount),
		DueDate: due.UTC(),
		Status:  models.BillStatusPending,
	}
	if err := db.Create(bill).Error; err != nil {
		t.Fatalf("failed to create test bill: %v", err)
	}
	return bill
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Reload re-reads the account from the database.
func Reload(t *testing.T, db *gorm.DB, account *models.Account) *models.Account {
	t.Helper()

	var fresh models.Account
	if err := db.First(&fresh, "id = ?", account.ID).Error; err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	return &fresh
}
