package services

import (
	"context"
	"errors"
	"strings"

	"famledger/internal/access"
	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/store"
)

// sharingService manages workspaces, families and member permissions.
type sharingService struct {
	uow store.UnitOfWork
}

// NewSharingService creates a new SharingServicer.
func NewSharingService(uow store.UnitOfWork) SharingServicer {
	return &sharingService{uow: uow}
}

// CreateWorkspace creates a workspace owned by the user.
func (s *sharingService) CreateWorkspace(ctx context.Context, userID, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "workspace name is required")
	}
	ws := &models.Workspace{OwnerID: userID, Name: name}
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		return internalErr(r.Members.CreateWorkspace(ws))
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// AddWorkspaceMember lets the workspace owner grant another user access.
func (s *sharingService) AddWorkspaceMember(ctx context.Context, userID, workspaceID, memberUserID string, canEdit, canDelete bool) (*models.WorkspaceMember, error) {
	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      memberUserID,
		CanEdit:     canEdit,
		CanDelete:   canDelete,
	}
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		ws, err := r.Members.GetWorkspace(workspaceID)
		if err != nil {
			return lookupErr(err, apperrors.ErrWorkspaceNotFound)
		}
		if ws.OwnerID != userID {
			return apperrors.ErrForbidden
		}
		if memberUserID == ws.OwnerID {
			return apperrors.ErrAlreadyMember
		}
		if err := requireUser(r, memberUserID); err != nil {
			return err
		}
		return memberErr(r.Members.AddWorkspaceMember(member))
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CreateFamily creates a family and makes its creator an admin member.
func (s *sharingService) CreateFamily(ctx context.Context, userID, name string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "family name is required")
	}
	family := &models.Family{OwnerID: userID, Name: name}
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if err := r.Members.CreateFamily(family); err != nil {
			return internalErr(err)
		}
		admin := &models.FamilyMember{FamilyID: family.ID, UserID: userID, Role: models.FamilyRoleAdmin}
		return internalErr(r.Members.AddFamilyMember(admin))
	})
	if err != nil {
		return nil, err
	}
	return family, nil
}

// AddFamilyMember lets a family admin add a user with the given role.
func (s *sharingService) AddFamilyMember(ctx context.Context, userID, familyID, memberUserID string, role models.FamilyRole) (*models.FamilyMember, error) {
	if role == "" {
		role = models.FamilyRoleMember
	}
	if role != models.FamilyRoleAdmin && role != models.FamilyRoleMember {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "role must be admin or member")
	}

	member := &models.FamilyMember{FamilyID: familyID, UserID: memberUserID, Role: role}
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if err := requireFamilyAdmin(r, userID, familyID); err != nil {
			return err
		}
		if err := requireUser(r, memberUserID); err != nil {
			return err
		}
		return memberErr(r.Members.AddFamilyMember(member))
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// SetMemberPermissions upserts one permission row per module for a family
// member. Only family admins may change permissions.
func (s *sharingService) SetMemberPermissions(ctx context.Context, userID, familyID, memberID string, perms []PermissionInput) ([]models.FamilyMemberPermission, error) {
	if len(perms) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one permission is required")
	}
	for _, p := range perms {
		if !access.ValidModule(p.Module) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown module "+p.Module)
		}
	}

	saved := make([]models.FamilyMemberPermission, 0, len(perms))
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if err := requireFamilyAdmin(r, userID, familyID); err != nil {
			return err
		}
		member, err := r.Members.GetFamilyMember(memberID)
		if err != nil {
			return lookupErr(err, apperrors.ErrMemberNotFound)
		}
		if member.FamilyID != familyID {
			return apperrors.ErrMemberNotFound
		}
		for _, p := range perms {
			row := models.FamilyMemberPermission{
				MemberID:  member.ID,
				Module:    p.Module,
				CanView:   p.CanView,
				CanEdit:   p.CanEdit,
				CanDelete: p.CanDelete,
			}
			if err := r.Members.SavePermission(&row); err != nil {
				return internalErr(err)
			}
			saved = append(saved, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func requireFamilyAdmin(r *store.Repos, userID, familyID string) error {
	if _, err := r.Members.GetFamily(familyID); err != nil {
		return lookupErr(err, apperrors.ErrFamilyNotFound)
	}
	member, err := r.Members.FindFamilyMember(familyID, userID)
	if err != nil {
		return internalErr(err)
	}
	if member == nil || member.Role != models.FamilyRoleAdmin {
		return apperrors.ErrForbidden
	}
	return nil
}

func requireUser(r *store.Repos, userID string) error {
	if userID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "user ID is required")
	}
	_, err := r.Users.Get(userID)
	return lookupErr(err, apperrors.ErrUserNotFound)
}

func memberErr(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperrors.ErrAlreadyMember
	}
	return internalErr(err)
}
