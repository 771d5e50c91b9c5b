package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"famledger/internal/money"
	"famledger/internal/services"
)

// MonthlyBudgetHandler handles the monthly planned-vs-actual budget.
type MonthlyBudgetHandler struct {
	budgetService services.MonthlyBudgetServicer
	auditService  services.AuditServicer
}

// NewMonthlyBudgetHandler creates a new MonthlyBudgetHandler.
func NewMonthlyBudgetHandler(budgetService services.MonthlyBudgetServicer, auditService services.AuditServicer) *MonthlyBudgetHandler {
	return &MonthlyBudgetHandler{budgetService: budgetService, auditService: auditService}
}

// MonthQuery selects the budget month.
type MonthQuery struct {
	Month int `form:"month" binding:"required,min=1,max=12"`
	Year  int `form:"year" binding:"required,min=1900,max=9999"`
}

// BudgetTargetRequest is the planned amount for one category.
type BudgetTargetRequest struct {
	CategoryID string      `json:"category_id" binding:"required,uuid"`
	Amount     money.Money `json:"target_amount" binding:"gte=0"`
}

// SaveMonthlyBudgetRequest represents the request payload for saving a month's plan.
// The given targets replace the previous ones.
type SaveMonthlyBudgetRequest struct {
	Month             int                   `json:"month" binding:"required,min=1,max=12"`
	Year              int                   `json:"year" binding:"required,min=1900,max=9999"`
	PlannedIncome     *money.Money          `json:"planned_income" binding:"omitempty,gte=0"`
	Rule503020Enabled bool                  `json:"rule_50_30_20_enabled"`
	Targets           []BudgetTargetRequest `json:"targets" binding:"dive"`
}

// GetMonthlyBudget returns planned vs actual for a month
// @Summary     Get monthly budget
// @Description Planned vs actual per category for the month, with 50/30/20 groups when enabled
// @Tags        monthly-budget
// @Produce     json
// @Security    BearerAuth
// @Param       month query int true "Month 1-12"
// @Param       year  query int true "Year"
// @Success     200 {object} services.MonthlyBudgetReport "Budget report"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Router      /monthly-budget [get]
func (h *MonthlyBudgetHandler) GetMonthlyBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q MonthQuery
	if err := bindQuery(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.budgetService.GetMonthlyBudget(c.Request.Context(), userID, q.Month, q.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"monthly_budget": report})
}

// SaveMonthlyBudget upserts a month's plan
// @Summary     Save monthly budget
// @Tags        monthly-budget
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SaveMonthlyBudgetRequest true "Plan"
// @Success     200 {object} services.MonthlyBudgetReport "Budget report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /monthly-budget [put]
func (h *MonthlyBudgetHandler) SaveMonthlyBudget(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SaveMonthlyBudgetRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	targets := make([]services.BudgetTargetInput, 0, len(req.Targets))
	for _, t := range req.Targets {
		targets = append(targets, services.BudgetTargetInput{CategoryID: t.CategoryID, Amount: t.Amount})
	}

	report, err := h.budgetService.SaveMonthlyBudget(c.Request.Context(), userID, services.MonthlyBudgetInput{
		Month:             req.Month,
		Year:              req.Year,
		PlannedIncome:     req.PlannedIncome,
		Rule503020Enabled: req.Rule503020Enabled,
		Targets:           targets,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "SAVE_MONTHLY_BUDGET", "monthly_budget", "", c.ClientIP(),
		map[string]any{"month": req.Month, "year": req.Year, "targets": len(targets)})

	c.JSON(http.StatusOK, gin.H{"monthly_budget": report})
}
