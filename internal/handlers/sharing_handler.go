package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"famledger/internal/models"
	"famledger/internal/services"
)

// SharingHandler handles workspaces, families and their members.
type SharingHandler struct {
	sharingService services.SharingServicer
	auditService   services.AuditServicer
}

// NewSharingHandler creates a new SharingHandler.
func NewSharingHandler(sharingService services.SharingServicer, auditService services.AuditServicer) *SharingHandler {
	return &SharingHandler{sharingService: sharingService, auditService: auditService}
}

// NameRequest carries the name of a new workspace or family.
type NameRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// WorkspaceMemberRequest adds a user to a workspace.
type WorkspaceMemberRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

// FamilyMemberRequest adds a user to a family. Role defaults to member.
type FamilyMemberRequest struct {
	UserID string            `json:"user_id" binding:"required,uuid"`
	Role   models.FamilyRole `json:"role" binding:"omitempty,family_role"`
}

// PermissionRequest is one module row of a member's permission matrix.
type PermissionRequest struct {
	Module    string `json:"module" binding:"required,permission_module"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

// SetPermissionsRequest replaces the given module rows of a member.
type SetPermissionsRequest struct {
	Permissions []PermissionRequest `json:"permissions" binding:"required,min=1,dive"`
}

// CreateWorkspace handles workspace creation
// @Summary     Create workspace
// @Tags        sharing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body NameRequest true "Workspace name"
// @Success     201 {object} models.Workspace "Workspace created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /workspaces [post]
func (h *SharingHandler) CreateWorkspace(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req NameRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	workspace, err := h.sharingService.CreateWorkspace(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_WORKSPACE", "workspace", workspace.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"workspace": workspace})
}

// AddWorkspaceMember handles adding a member to a workspace
// @Summary     Add workspace member
// @Description Only the workspace owner may add members
// @Tags        sharing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Workspace ID"
// @Param       request body WorkspaceMemberRequest true "Member"
// @Success     201 {object} models.WorkspaceMember "Member added"
// @Failure     403 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Workspace or user not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /workspaces/{id}/members [post]
func (h *SharingHandler) AddWorkspaceMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	workspaceID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req WorkspaceMemberRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.sharingService.AddWorkspaceMember(c.Request.Context(), userID, workspaceID, req.UserID, req.CanEdit, req.CanDelete)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "ADD_WORKSPACE_MEMBER", "workspace", workspaceID, c.ClientIP(),
		map[string]any{"member_user_id": req.UserID, "can_edit": req.CanEdit, "can_delete": req.CanDelete})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// CreateFamily handles family creation
// @Summary     Create family
// @Description Create a family; the creator becomes its admin
// @Tags        sharing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body NameRequest true "Family name"
// @Success     201 {object} models.Family "Family created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /families [post]
func (h *SharingHandler) CreateFamily(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req NameRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	family, err := h.sharingService.CreateFamily(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_FAMILY", "family", family.ID, c.ClientIP(), nil)

	c.JSON(http.StatusCreated, gin.H{"family": family})
}

// AddFamilyMember handles adding a member to a family
// @Summary     Add family member
// @Description Only family admins may add members
// @Tags        sharing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Family ID"
// @Param       request body FamilyMemberRequest true "Member"
// @Success     201 {object} models.FamilyMember "Member added"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Failure     404 {object} ErrorResponse "Family or user not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /families/{id}/members [post]
func (h *SharingHandler) AddFamilyMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req FamilyMemberRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.sharingService.AddFamilyMember(c.Request.Context(), userID, familyID, req.UserID, req.Role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "ADD_FAMILY_MEMBER", "family", familyID, c.ClientIP(),
		map[string]any{"member_user_id": req.UserID, "role": member.Role})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// SetMemberPermissions handles updating a family member's permission matrix
// @Summary     Set member permissions
// @Tags        sharing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path string                true "Family ID"
// @Param       member_id path string                true "Family member ID"
// @Param       request   body SetPermissionsRequest true "Permissions"
// @Success     200 {object} map[string][]models.FamilyMemberPermission "Saved permissions"
// @Failure     400 {object} ErrorResponse "Invalid module"
// @Failure     403 {object} ErrorResponse "Not an admin"
// @Failure     404 {object} ErrorResponse "Family or member not found"
// @Router      /families/{id}/members/{member_id}/permissions [put]
func (h *SharingHandler) SetMemberPermissions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	familyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	memberID, err := parsePathID(c, "member_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetPermissionsRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	perms := make([]services.PermissionInput, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, services.PermissionInput{
			Module:    p.Module,
			CanView:   p.CanView,
			CanEdit:   p.CanEdit,
			CanDelete: p.CanDelete,
		})
	}

	saved, err := h.sharingService.SetMemberPermissions(c.Request.Context(), userID, familyID, memberID, perms)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "SET_MEMBER_PERMISSIONS", "family", familyID, c.ClientIP(),
		map[string]any{"member_id": memberID, "modules": len(perms)})

	c.JSON(http.StatusOK, gin.H{"permissions": saved})
}
