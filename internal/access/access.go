// Package access decides whether an actor may view, edit or delete a ledger
// resource. Rules are evaluated in order and the first match wins:
//
//  1. the actor owns the resource
//  2. the resource belongs to a workspace the actor owns, or is a member of
//     with the flag the action needs
//  3. the resource belongs to a family the actor administers
//  4. the actor is a member of the resource's family and holds the module
//     permission for the action
//
// Anything else is denied.
package access

import (
	"errors"
	"fmt"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/store"
)

// Action is what the actor wants to do with a resource.
type Action string

const (
	View   Action = "view"
	Edit   Action = "edit"
	Delete Action = "delete"
)

// Module tags a resource for the family permission matrix.
type Module string

const (
	ModuleAccounts     Module = "accounts"
	ModuleTransactions Module = "transactions"
	ModuleTransfers    Module = "transfers"
	ModuleBills        Module = "bills"
	ModuleScheduled    Module = "scheduled"
	ModuleGoals        Module = "goals"
	ModuleBudgets      Module = "budgets"
)

// Modules lists every module that can carry family permissions.
var Modules = []Module{ModuleAccounts, ModuleTransactions, ModuleTransfers, ModuleBills, ModuleScheduled, ModuleGoals, ModuleBudgets}

// ValidModule reports whether m is a known module.
func ValidModule(m string) bool {
	for _, known := range Modules {
		if string(known) == m {
			return true
		}
	}
	return false
}

// Resource identifies what is being accessed.
type Resource struct {
	Module      Module
	OwnerID     string
	FamilyID    *string
	WorkspaceID *string
}

// Directory resolves sharing relationships. Find methods return nil when
// there is no match.
type Directory interface {
	GetWorkspace(id string) (*models.Workspace, error)
	FindWorkspaceMember(workspaceID, userID string) (*models.WorkspaceMember, error)
	FindFamilyMember(familyID, userID string) (*models.FamilyMember, error)
	FindPermission(memberID, module string) (*models.FamilyMemberPermission, error)
}

// Allowed evaluates the rules for actorID on res.
func Allowed(dir Directory, actorID string, res Resource, action Action) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	if res.OwnerID == actorID {
		return true, nil
	}

	if res.WorkspaceID != nil {
		ok, err := workspaceAllows(dir, *res.WorkspaceID, actorID, action)
		if err != nil || ok {
			return ok, err
		}
	}

	if res.FamilyID == nil {
		return false, nil
	}
	member, err := dir.FindFamilyMember(*res.FamilyID, actorID)
	if err != nil {
		return false, fmt.Errorf("find family member: %w", err)
	}
	if member == nil {
		return false, nil
	}
	if member.Role == models.FamilyRoleAdmin {
		return true, nil
	}

	perm, err := dir.FindPermission(member.ID, string(res.Module))
	if err != nil {
		return false, fmt.Errorf("find family permission: %w", err)
	}
	if perm == nil {
		return false, nil
	}
	switch action {
	case View:
		return perm.CanView, nil
	case Edit:
		return perm.CanEdit, nil
	case Delete:
		return perm.CanDelete, nil
	}
	return false, nil
}

func workspaceAllows(dir Directory, workspaceID, actorID string, action Action) (bool, error) {
	ws, err := dir.GetWorkspace(workspaceID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get workspace: %w", err)
	}
	if ws.OwnerID == actorID {
		return true, nil
	}

	member, err := dir.FindWorkspaceMember(workspaceID, actorID)
	if err != nil {
		return false, fmt.Errorf("find workspace member: %w", err)
	}
	if member == nil {
		return false, nil
	}
	switch action {
	case View:
		return true, nil
	case Edit:
		return member.CanEdit, nil
	case Delete:
		return member.CanDelete, nil
	}
	return false, nil
}

// Check is Allowed returning ErrForbidden on denial.
func Check(dir Directory, actorID string, res Resource, action Action) error {
	ok, err := Allowed(dir, actorID, res, action)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !ok {
		return apperrors.ErrForbidden
	}
	return nil
}

// ForAccount describes an account as a resource.
func ForAccount(a *models.Account) Resource {
	return Resource{Module: ModuleAccounts, OwnerID: a.OwnerID, FamilyID: a.FamilyID, WorkspaceID: a.WorkspaceID}
}

// ForTransaction describes a transaction. The family comes from its account.
func ForTransaction(t *models.Transaction, account *models.Account) Resource {
	res := Resource{Module: ModuleTransactions, OwnerID: t.OwnerID, WorkspaceID: t.WorkspaceID}
	if account != nil {
		res.FamilyID = account.FamilyID
		if res.WorkspaceID == nil {
			res.WorkspaceID = account.WorkspaceID
		}
	}
	return res
}
