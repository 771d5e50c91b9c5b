package models

// Workspace is a collaboration boundary shared by several users.
type Workspace struct {
	Base
	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name    string `gorm:"not null" json:"name"`
}

// WorkspaceMember grants a user access to a workspace's resources.
type WorkspaceMember struct {
	Base
	WorkspaceID string `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_members_user,priority:1" json:"workspace_id"`
	UserID      string `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_members_user,priority:2" json:"user_id"`
	CanEdit     bool   `gorm:"not null;default:false" json:"can_edit"`
	CanDelete   bool   `gorm:"not null;default:false" json:"can_delete"`
}

// Family groups users with role-based, per-module permissions.
type Family struct {
	Base
	OwnerID string `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name    string `gorm:"not null" json:"name"`
}

// FamilyRole is a member's role inside a family.
type FamilyRole string

const (
	FamilyRoleAdmin  FamilyRole = "admin"
	FamilyRoleMember FamilyRole = "member"
)

// FamilyMember links a user to a family.
type FamilyMember struct {
	Base
	FamilyID string     `gorm:"type:uuid;not null;uniqueIndex:idx_family_members_user,priority:1" json:"family_id"`
	UserID   string     `gorm:"type:uuid;not null;uniqueIndex:idx_family_members_user,priority:2" json:"user_id"`
	Role     FamilyRole `gorm:"not null;default:'member'" json:"role"`
}

// FamilyMemberPermission is one row of the per-module permission matrix.
type FamilyMemberPermission struct {
	Base
	MemberID  string `gorm:"type:uuid;not null;uniqueIndex:idx_family_member_permissions_module,priority:1" json:"member_id"`
	Module    string `gorm:"not null;uniqueIndex:idx_family_member_permissions_module,priority:2" json:"module"`
	CanView   bool   `gorm:"not null;default:false" json:"can_view"`
	CanEdit   bool   `gorm:"not null;default:false" json:"can_edit"`
	CanDelete bool   `gorm:"not null;default:false" json:"can_delete"`
}
