package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/services"
)

// GoalHandler handles savings goals and their contributions.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService}
}

// GoalRequest represents the request payload for creating or updating a goal.
// auto_contribution_percentage requires savings_category_id.
type GoalRequest struct {
	Name                       string             `json:"name" binding:"required,min=1,max=100"`
	Description                string             `json:"description" binding:"max=500"`
	TargetAmount               money.Money        `json:"target_amount" binding:"required,gt=0"`
	TargetDate                 *string            `json:"target_date"`
	SavingsCategoryID          *string            `json:"savings_category_id" binding:"omitempty,uuid"`
	AutoContributionPercentage *decimal.Decimal   `json:"auto_contribution_percentage" swaggertype:"string"`
	Status                     *models.GoalStatus `json:"status" binding:"omitempty,goal_status"`
}

func (r GoalRequest) input() (services.GoalInput, error) {
	target, err := parseOptionalDate("target_date", r.TargetDate)
	if err != nil {
		return services.GoalInput{}, err
	}
	return services.GoalInput{
		Name:                       r.Name,
		Description:                r.Description,
		TargetAmount:               r.TargetAmount,
		TargetDate:                 target,
		SavingsCategoryID:          r.SavingsCategoryID,
		AutoContributionPercentage: r.AutoContributionPercentage,
		Status:                     r.Status,
	}, nil
}

// ContributionRequest represents the request payload for a manual contribution
type ContributionRequest struct {
	Amount        money.Money `json:"amount" binding:"required,gt=0"`
	Date          *string     `json:"date"`
	TransactionID *string     `json:"transaction_id" binding:"omitempty,uuid"`
	Note          string      `json:"note" binding:"max=500"`
}

// GoalListQuery holds the filters of GetUserGoals.
type GoalListQuery struct {
	Status *models.GoalStatus `form:"status" binding:"omitempty,goal_status"`
}

// CreateGoal handles the creation of a goal
// @Summary     Create goal
// @Description Create a savings goal. With a savings category and percentage, expenses in that category contribute automatically.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GoalRequest true "Goal details"
// @Success     201 {object} models.Goal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input or allocation above 100%"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GoalRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_GOAL", "goal", goal.ID, c.ClientIP(),
		map[string]any{"name": req.Name, "target_amount": req.TargetAmount.String()})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetUserGoals handles listing goals
// @Summary     List goals
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       status query string false "active, completed or cancelled"
// @Success     200 {object} map[string][]models.Goal "Goals"
// @Router      /goals [get]
func (h *GoalHandler) GetUserGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q GoalListQuery
	if err := bindQuery(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	goals, err := h.goalService.GetUserGoals(c.Request.Context(), userID, q.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if goals == nil {
		goals = []models.Goal{}
	}

	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// GetGoalByID handles the retrieval of a goal
// @Summary     Get goal by ID
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.Goal "Goal"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoalByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoalByID(c.Request.Context(), userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// UpdateGoal handles updating a goal
// @Summary     Update goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string      true "Goal ID"
// @Param       request body GoalRequest true "Goal details"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GoalRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.UpdateGoal(c.Request.Context(), userID, goalID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a goal
// @Summary     Delete goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(c.Request.Context(), userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// Contribute handles a manual contribution to a goal
// @Summary     Contribute to goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Goal ID"
// @Param       request body ContributionRequest true "Contribution"
// @Success     201 {object} models.GoalContribution "Contribution recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Goal is not active"
// @Router      /goals/{id}/contributions [post]
func (h *GoalHandler) Contribute(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	contribution, err := h.goalService.Contribute(c.Request.Context(), userID, goalID, services.ContributionInput{
		Amount:        req.Amount,
		Date:          date,
		TransactionID: req.TransactionID,
		Note:          req.Note,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CONTRIBUTE_GOAL", "goal", goalID, c.ClientIP(),
		map[string]any{"amount": req.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"contribution": contribution})
}

// GetContributions handles listing a goal's contributions
// @Summary     List contributions
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} map[string][]models.GoalContribution "Contributions"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id}/contributions [get]
func (h *GoalHandler) GetContributions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributions, err := h.goalService.GetContributions(c.Request.Context(), userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if contributions == nil {
		contributions = []models.GoalContribution{}
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

// DeleteContribution handles removing a contribution
// @Summary     Delete contribution
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id  path string true "Goal ID"
// @Param       cid path string true "Contribution ID"
// @Success     200 {object} MessageResponse "Contribution deleted"
// @Failure     404 {object} ErrorResponse "Goal or contribution not found"
// @Router      /goals/{id}/contributions/{cid} [delete]
func (h *GoalHandler) DeleteContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	contributionID, err := parsePathID(c, "cid")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteContribution(c.Request.Context(), userID, goalID, contributionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_CONTRIBUTION", "goal", goalID, c.ClientIP(),
		map[string]any{"contribution_id": contributionID})

	c.JSON(http.StatusOK, gin.H{"message": "Contribution deleted successfully"})
}
