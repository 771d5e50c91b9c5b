package store

import (
	"errors"

	"famledger/internal/models"

	"gorm.io/gorm"
)

// MemberRepository persists workspaces, families and their memberships.
// Find* lookups return nil without error when nothing matches.
type MemberRepository interface {
	CreateWorkspace(w *models.Workspace) error
	GetWorkspace(id string) (*models.Workspace, error)
	AddWorkspaceMember(m *models.WorkspaceMember) error
	FindWorkspaceMember(workspaceID, userID string) (*models.WorkspaceMember, error)

	CreateFamily(f *models.Family) error
	GetFamily(id string) (*models.Family, error)
	AddFamilyMember(m *models.FamilyMember) error
	GetFamilyMember(id string) (*models.FamilyMember, error)
	FindFamilyMember(familyID, userID string) (*models.FamilyMember, error)
	SavePermission(p *models.FamilyMemberPermission) error
	FindPermission(memberID, module string) (*models.FamilyMemberPermission, error)
}

type memberRepo struct {
	db *gorm.DB
}

func (r *memberRepo) CreateWorkspace(w *models.Workspace) error {
	return translate("create workspace", r.db.Create(w).Error)
}

func (r *memberRepo) GetWorkspace(id string) (*models.Workspace, error) {
	var w models.Workspace
	if err := first(r.db, "get workspace", &w, "id = ?", id); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *memberRepo) AddWorkspaceMember(m *models.WorkspaceMember) error {
	return translate("add workspace member", r.db.Create(m).Error)
}

func (r *memberRepo) FindWorkspaceMember(workspaceID, userID string) (*models.WorkspaceMember, error) {
	var m models.WorkspaceMember
	return optional(&m, first(r.db, "find workspace member", &m, "workspace_id = ? AND user_id = ?", workspaceID, userID))
}

func (r *memberRepo) CreateFamily(f *models.Family) error {
	return translate("create family", r.db.Create(f).Error)
}

func (r *memberRepo) GetFamily(id string) (*models.Family, error) {
	var f models.Family
	if err := first(r.db, "get family", &f, "id = ?", id); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *memberRepo) AddFamilyMember(m *models.FamilyMember) error {
	return translate("add family member", r.db.Create(m).Error)
}

func (r *memberRepo) GetFamilyMember(id string) (*models.FamilyMember, error) {
	var m models.FamilyMember
	if err := first(r.db, "get family member", &m, "id = ?", id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepo) FindFamilyMember(familyID, userID string) (*models.FamilyMember, error) {
	var m models.FamilyMember
	return optional(&m, first(r.db, "find family member", &m, "family_id = ? AND user_id = ?", familyID, userID))
}

func (r *memberRepo) SavePermission(p *models.FamilyMemberPermission) error {
	var existing models.FamilyMemberPermission
	err := first(r.db, "find permission", &existing, "member_id = ? AND module = ?", p.MemberID, p.Module)
	switch {
	case errors.Is(err, ErrNotFound):
		return translate("create permission", r.db.Create(p).Error)
	case err != nil:
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return translate("update permission", r.db.Save(p).Error)
}

func (r *memberRepo) FindPermission(memberID, module string) (*models.FamilyMemberPermission, error) {
	var p models.FamilyMemberPermission
	return optional(&p, first(r.db, "find permission", &p, "member_id = ? AND module = ?", memberID, module))
}

func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
