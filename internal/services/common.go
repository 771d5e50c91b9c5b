package services

import (
	"errors"
	"time"

	"famledger/internal/access"
	"famledger/internal/calendar"
	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/store"
)

// errSkip rolls back a unit of work whose effect was already applied by a
// concurrent run.
var errSkip = errors.New("skip")

// internalErr passes AppErrors through and wraps anything else as INTERNAL.
func internalErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// lookupErr maps store.ErrNotFound to notFound.
func lookupErr(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return internalErr(err)
}

// dateOrNow returns *d as an instant, or now when d is nil.
func dateOrNow(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return calendar.Now()
	}
	return calendar.Instant(*d)
}

func ownedBy(ownerID string, module access.Module) access.Resource {
	return access.Resource{Module: module, OwnerID: ownerID}
}

// loadAccount fetches an account and checks the actor may perform action on it.
func loadAccount(r *store.Repos, userID, accountID string, action access.Action) (*models.Account, error) {
	if accountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}
	account, err := r.Accounts.Get(accountID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrAccountNotFound)
	}
	if err := access.Check(r.Members, userID, access.ForAccount(account), action); err != nil {
		return nil, err
	}
	return account, nil
}

// loadCategory fetches a category owned by userID.
func loadCategory(r *store.Repos, userID, categoryID string) (*models.Category, error) {
	category, err := r.Categories.Get(categoryID)
	if err != nil {
		return nil, lookupErr(err, apperrors.ErrCategoryNotFound)
	}
	if category.OwnerID != userID {
		return nil, apperrors.ErrCategoryNotFound
	}
	return category, nil
}

// checkWorkspace verifies the actor may view the workspace's resources.
func checkWorkspace(r *store.Repos, userID, workspaceID string, module access.Module) error {
	ws, err := r.Members.GetWorkspace(workspaceID)
	if err != nil {
		return lookupErr(err, apperrors.ErrWorkspaceNotFound)
	}
	return access.Check(r.Members, userID, access.Resource{Module: module, OwnerID: ws.OwnerID, WorkspaceID: &ws.ID}, access.View)
}
