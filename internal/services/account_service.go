package services

import (
	"context"
	"regexp"
	"strings"

	"famledger/internal/access"
	apperrors "famledger/internal/errors"
	"famledger/internal/ledger"
	"famledger/internal/models"
	"famledger/internal/store"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// accountService handles account-related business logic.
type accountService struct {
	uow    store.UnitOfWork
	engine *ledger.Engine
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(uow store.UnitOfWork, engine *ledger.Engine) AccountServicer {
	return &accountService{uow: uow, engine: engine}
}

func validAccountType(t models.AccountType) bool {
	switch t {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCredit,
		models.AccountTypeCash, models.AccountTypeInvestment:
		return true
	}
	return false
}

// CreateAccount creates an account whose balance starts at its initial balance.
func (s *accountService) CreateAccount(ctx context.Context, userID string, in CreateAccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if !validAccountType(in.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown account type")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if !currencyPattern.MatchString(currency) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency must be a 3-letter ISO code")
	}

	account := &models.Account{
		OwnerID:        userID,
		FamilyID:       in.FamilyID,
		WorkspaceID:    in.WorkspaceID,
		Name:           name,
		Type:           in.Type,
		Description:    in.Description,
		Currency:       currency,
		InitialBalance: in.InitialBalance,
		Balance:        in.InitialBalance,
		IsActive:       true,
	}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if in.WorkspaceID != nil {
			ws, err := r.Members.GetWorkspace(*in.WorkspaceID)
			if err != nil {
				return lookupErr(err, apperrors.ErrWorkspaceNotFound)
			}
			res := access.Resource{Module: access.ModuleAccounts, OwnerID: ws.OwnerID, WorkspaceID: &ws.ID}
			if err := access.Check(r.Members, userID, res, access.Edit); err != nil {
				return err
			}
		}
		if in.FamilyID != nil {
			member, err := r.Members.FindFamilyMember(*in.FamilyID, userID)
			if err != nil {
				return internalErr(err)
			}
			if member == nil {
				return apperrors.ErrForbidden
			}
		}
		return internalErr(r.Accounts.Create(account))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetUserAccounts lists the user's accounts, or a workspace's accounts when
// workspaceID is set.
func (s *accountService) GetUserAccounts(ctx context.Context, userID string, workspaceID *string, includeInactive bool) ([]models.Account, error) {
	var accounts []models.Account
	err := s.uow.View(ctx, func(r *store.Repos) error {
		if workspaceID != nil {
			if err := checkWorkspace(r, userID, *workspaceID, access.ModuleAccounts); err != nil {
				return err
			}
		}
		var err error
		accounts, err = r.Accounts.List(store.AccountFilter{OwnerID: userID, WorkspaceID: workspaceID, IncludeInactive: includeInactive})
		return internalErr(err)
	})
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	return accounts, nil
}

// GetAccountByID retrieves an account the user may view.
func (s *accountService) GetAccountByID(ctx context.Context, userID, accountID string) (*models.Account, error) {
	var account *models.Account
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		account, err = loadAccount(r, userID, accountID, access.View)
		return err
	})
	return account, err
}

// UpdateAccount changes account details. A new initial balance moves the
// balance by the difference.
func (s *accountService) UpdateAccount(ctx context.Context, userID, accountID string, in UpdateAccountInput) (*models.Account, error) {
	var account *models.Account
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if _, err := loadAccount(r, userID, accountID, access.Edit); err != nil {
			return err
		}
		locked, err := s.engine.Lock(r.Accounts, accountID)
		if err != nil {
			return err
		}
		account = locked[accountID]

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
			}
			account.Name = name
		}
		if in.Description != nil {
			account.Description = *in.Description
		}
		if in.InitialBalance != nil {
			delta := in.InitialBalance.Sub(account.InitialBalance)
			account.InitialBalance = *in.InitialBalance
			account.Balance = account.Balance.Add(delta)
		}
		return internalErr(r.Accounts.Update(account))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// DeleteAccount deactivates an account. Its history stays in place.
func (s *accountService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		if _, err := loadAccount(r, userID, accountID, access.Delete); err != nil {
			return err
		}
		// Saved rows carry the balance, so the write must hold the row lock.
		locked, err := s.engine.Lock(r.Accounts, accountID)
		if err != nil {
			return err
		}
		account := locked[accountID]
		account.IsActive = false
		return internalErr(r.Accounts.Update(account))
	})
}

// RecalculateBalance rebuilds the stored balance from the account's postings.
func (s *accountService) RecalculateBalance(ctx context.Context, userID, accountID string) (*models.Account, error) {
	var account *models.Account
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if _, err := loadAccount(r, userID, accountID, access.Edit); err != nil {
			return err
		}
		var err error
		account, err = s.engine.Recalculate(r.Accounts, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}
