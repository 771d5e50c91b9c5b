package access_test

import (
	"testing"

	"famledger/internal/access"
	"famledger/internal/models"
	"famledger/internal/store"
	"famledger/internal/testutil"
)

type fakeDirectory struct {
	workspaces       map[string]*models.Workspace
	workspaceMembers map[string]*models.WorkspaceMember // workspaceID/userID
	familyMembers    map[string]*models.FamilyMember    // familyID/userID
	permissions      map[string]*models.FamilyMemberPermission
}

func (d *fakeDirectory) GetWorkspace(id string) (*models.Workspace, error) {
	if ws, ok := d.workspaces[id]; ok {
		return ws, nil
	}
	return nil, store.ErrNotFound
}

func (d *fakeDirectory) FindWorkspaceMember(workspaceID, userID string) (*models.WorkspaceMember, error) {
	return d.workspaceMembers[workspaceID+"/"+userID], nil
}

func (d *fakeDirectory) FindFamilyMember(familyID, userID string) (*models.FamilyMember, error) {
	return d.familyMembers[familyID+"/"+userID], nil
}

func (d *fakeDirectory) FindPermission(memberID, module string) (*models.FamilyMemberPermission, error) {
	return d.permissions[memberID+"/"+module], nil
}

func ptr(s string) *string { return &s }

func TestAllowed(t *testing.T) {
	dir := &fakeDirectory{
		workspaces: map[string]*models.Workspace{
			"ws": {Base: models.Base{ID: "ws"}, OwnerID: "ws-owner"},
		},
		workspaceMembers: map[string]*models.WorkspaceMember{
			"ws/reader": {WorkspaceID: "ws", UserID: "reader"},
			"ws/editor": {WorkspaceID: "ws", UserID: "editor", CanEdit: true},
		},
		familyMembers: map[string]*models.FamilyMember{
			"fam/admin":  {Base: models.Base{ID: "m-admin"}, FamilyID: "fam", UserID: "admin", Role: models.FamilyRoleAdmin},
			"fam/kid":    {Base: models.Base{ID: "m-kid"}, FamilyID: "fam", UserID: "kid", Role: models.FamilyRoleMember},
			"fam/reader": {Base: models.Base{ID: "m-reader"}, FamilyID: "fam", UserID: "reader", Role: models.FamilyRoleMember},
		},
		permissions: map[string]*models.FamilyMemberPermission{
			"m-kid/transactions":    {MemberID: "m-kid", Module: "transactions", CanView: true},
			"m-reader/transactions": {MemberID: "m-reader", Module: "transactions", CanView: true, CanDelete: true},
		},
	}

	shared := access.Resource{Module: access.ModuleTransactions, OwnerID: "owner", WorkspaceID: ptr("ws"), FamilyID: ptr("fam")}
	private := access.Resource{Module: access.ModuleTransactions, OwnerID: "owner"}

	tests := []struct {
		name   string
		actor  string
		res    access.Resource
		action access.Action
		want   bool
	}{
		{"owner", "owner", private, access.Delete, true},
		{"stranger on private resource", "stranger", private, access.View, false},
		{"anonymous", "", shared, access.View, false},
		{"workspace owner", "ws-owner", shared, access.Delete, true},
		{"workspace member views", "editor", shared, access.View, true},
		{"workspace member with edit flag", "editor", shared, access.Edit, true},
		{"workspace member without delete flag", "editor", shared, access.Delete, false},
		{"workspace member falls through to family permission", "reader", shared, access.Delete, true},
		{"family admin", "admin", shared, access.Delete, true},
		{"family member with view permission", "kid", shared, access.View, true},
		{"family member without edit permission", "kid", shared, access.Edit, false},
		{"family member on other module", "kid", access.Resource{Module: access.ModuleGoals, OwnerID: "owner", FamilyID: ptr("fam")}, access.View, false},
		{"unknown workspace", "editor", access.Resource{Module: access.ModuleTransactions, OwnerID: "owner", WorkspaceID: ptr("gone")}, access.View, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := access.Allowed(dir, tt.actor, tt.res, tt.action)
			testutil.AssertNoError(t, err)
			if got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckReturnsForbidden(t *testing.T) {
	dir := &fakeDirectory{}
	err := access.Check(dir, "stranger", access.Resource{Module: access.ModuleAccounts, OwnerID: "owner"}, access.View)
	testutil.AssertAppError(t, err, "FORBIDDEN")

	if err := access.Check(dir, "owner", access.Resource{Module: access.ModuleAccounts, OwnerID: "owner"}, access.Edit); err != nil {
		t.Errorf("owner should pass, got %v", err)
	}
}

func TestForTransactionTakesFamilyFromAccount(t *testing.T) {
	account := &models.Account{OwnerID: "owner", FamilyID: ptr("fam"), WorkspaceID: ptr("ws")}
	res := access.ForTransaction(&models.Transaction{OwnerID: "owner"}, account)
	if res.FamilyID == nil || *res.FamilyID != "fam" {
		t.Error("expected family from account")
	}
	if res.WorkspaceID == nil || *res.WorkspaceID != "ws" {
		t.Error("expected workspace from account when the transaction has none")
	}
}
