package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/services"
)

type mockSharingService struct {
	addWorkspaceMemberFn func(userID, workspaceID, memberUserID string, canEdit, canDelete bool) (*models.WorkspaceMember, error)
	addFamilyMemberFn    func(userID, familyID, memberUserID string, role models.FamilyRole) (*models.FamilyMember, error)
	setPermissionsFn     func(userID, familyID, memberID string, perms []services.PermissionInput) ([]models.FamilyMemberPermission, error)
}

func (m *mockSharingService) CreateWorkspace(_ context.Context, userID, name string) (*models.Workspace, error) {
	return &models.Workspace{Base: models.Base{ID: testThirdID}, OwnerID: userID, Name: name}, nil
}

func (m *mockSharingService) AddWorkspaceMember(_ context.Context, userID, workspaceID, memberUserID string, canEdit, canDelete bool) (*models.WorkspaceMember, error) {
	if m.addWorkspaceMemberFn != nil {
		return m.addWorkspaceMemberFn(userID, workspaceID, memberUserID, canEdit, canDelete)
	}
	return &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: memberUserID}, nil
}

func (m *mockSharingService) CreateFamily(_ context.Context, userID, name string) (*models.Family, error) {
	return &models.Family{Base: models.Base{ID: testThirdID}, OwnerID: userID, Name: name}, nil
}

func (m *mockSharingService) AddFamilyMember(_ context.Context, userID, familyID, memberUserID string, role models.FamilyRole) (*models.FamilyMember, error) {
	if m.addFamilyMemberFn != nil {
		return m.addFamilyMemberFn(userID, familyID, memberUserID, role)
	}
	return &models.FamilyMember{FamilyID: familyID, UserID: memberUserID, Role: models.FamilyRoleMember}, nil
}

func (m *mockSharingService) SetMemberPermissions(_ context.Context, userID, familyID, memberID string, perms []services.PermissionInput) ([]models.FamilyMemberPermission, error) {
	if m.setPermissionsFn != nil {
		return m.setPermissionsFn(userID, familyID, memberID, perms)
	}
	return []models.FamilyMemberPermission{}, nil
}

var _ services.SharingServicer = (*mockSharingService)(nil)

func setupSharingRouter(handler *SharingHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/workspaces", handler.CreateWorkspace)
	auth.POST("/workspaces/:id/members", handler.AddWorkspaceMember)
	auth.POST("/families", handler.CreateFamily)
	auth.POST("/families/:id/members", handler.AddFamilyMember)
	auth.PUT("/families/:id/members/:member_id/permissions", handler.SetMemberPermissions)
	return r
}

func TestSharingHandler_Workspaces(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		r := setupSharingRouter(NewSharingHandler(&mockSharingService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/workspaces", `{"name":"Household"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		ws := parseJSON(t, rec)["workspace"].(map[string]interface{})
		if ws["owner_id"] != testUserID {
			t.Errorf("expected owner %s, got %v", testUserID, ws["owner_id"])
		}
	})

	t.Run("create returns 400 without a name", func(t *testing.T) {
		r := setupSharingRouter(NewSharingHandler(&mockSharingService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/workspaces", `{"name":""}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("adding a member as non-owner is forbidden", func(t *testing.T) {
		svc := &mockSharingService{
			addWorkspaceMemberFn: func(_, _, _ string, _, _ bool) (*models.WorkspaceMember, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupSharingRouter(NewSharingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/workspaces/"+testThirdID+"/members", `{"user_id":"`+testOtherID+`","can_edit":true}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("adding a member passes the flags", func(t *testing.T) {
		var gotEdit, gotDelete bool
		svc := &mockSharingService{
			addWorkspaceMemberFn: func(_, workspaceID, memberUserID string, canEdit, canDelete bool) (*models.WorkspaceMember, error) {
				gotEdit, gotDelete = canEdit, canDelete
				return &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: memberUserID, CanEdit: canEdit}, nil
			},
		}
		r := setupSharingRouter(NewSharingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/workspaces/"+testThirdID+"/members", `{"user_id":"`+testOtherID+`","can_edit":true}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotEdit || gotDelete {
			t.Errorf("unexpected flags edit=%v delete=%v", gotEdit, gotDelete)
		}
	})
}

func TestSharingHandler_Families(t *testing.T) {
	t.Run("adding a duplicate member is a conflict", func(t *testing.T) {
		svc := &mockSharingService{
			addFamilyMemberFn: func(_, _, _ string, _ models.FamilyRole) (*models.FamilyMember, error) {
				return nil, apperrors.ErrAlreadyMember
			},
		}
		r := setupSharingRouter(NewSharingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/families/"+testThirdID+"/members", `{"user_id":"`+testOtherID+`","role":"member"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("rejects an unknown role", func(t *testing.T) {
		r := setupSharingRouter(NewSharingHandler(&mockSharingService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/families/"+testThirdID+"/members", `{"user_id":"`+testOtherID+`","role":"owner"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("sets permissions", func(t *testing.T) {
		var got []services.PermissionInput
		svc := &mockSharingService{
			setPermissionsFn: func(_, _, memberID string, perms []services.PermissionInput) ([]models.FamilyMemberPermission, error) {
				got = perms
				return []models.FamilyMemberPermission{{MemberID: memberID, Module: perms[0].Module, CanView: true}}, nil
			},
		}
		r := setupSharingRouter(NewSharingHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/families/"+testThirdID+"/members/"+testOtherID+"/permissions",
			`{"permissions":[{"module":"transactions","can_view":true,"can_edit":true}]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got) != 1 || got[0].Module != "transactions" || !got[0].CanEdit {
			t.Errorf("unexpected permissions %+v", got)
		}
	})

	t.Run("rejects an unknown module", func(t *testing.T) {
		r := setupSharingRouter(NewSharingHandler(&mockSharingService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/families/"+testThirdID+"/members/"+testOtherID+"/permissions",
			`{"permissions":[{"module":"payroll","can_view":true}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects an empty permission list", func(t *testing.T) {
		r := setupSharingRouter(NewSharingHandler(&mockSharingService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/families/"+testThirdID+"/members/"+testOtherID+"/permissions", `{"permissions":[]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
