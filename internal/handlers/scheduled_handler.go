package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"famledger/internal/calendar"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/recurrence"
	"famledger/internal/services"
)

// ScheduledHandler handles scheduled (recurring) transactions.
type ScheduledHandler struct {
	scheduledService services.ScheduledServicer
	auditService     services.AuditServicer
	now              func() time.Time
}

// NewScheduledHandler creates a new ScheduledHandler.
func NewScheduledHandler(scheduledService services.ScheduledServicer, auditService services.AuditServicer) *ScheduledHandler {
	return &ScheduledHandler{scheduledService: scheduledService, auditService: auditService, now: calendar.Now}
}

// CreateScheduledRequest represents the request payload for creating a scheduled transaction
type CreateScheduledRequest struct {
	AccountID      string                 `json:"account_id" binding:"required,uuid"`
	CategoryID     *string                `json:"category_id" binding:"omitempty,uuid"`
	WorkspaceID    *string                `json:"workspace_id" binding:"omitempty,uuid"`
	Type           models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount         money.Money            `json:"amount" binding:"required,gt=0"`
	Description    string                 `json:"description" binding:"max=500"`
	StartDate      string                 `json:"start_date" binding:"required"`
	EndDate        *string                `json:"end_date"`
	RecurrenceRule recurrence.Rule        `json:"recurrence_rule"`
	MaxExecutions  *int                   `json:"max_executions" binding:"omitempty,min=1"`
	AutoExecute    bool                   `json:"auto_execute"`
}

// UpdateScheduledRequest represents the request payload for updating a scheduled transaction.
// Status moves between active and paused, or to cancelled.
type UpdateScheduledRequest struct {
	CategoryID  *string                `json:"category_id"`
	Amount      *money.Money           `json:"amount" binding:"omitempty,gt=0"`
	Description *string                `json:"description" binding:"omitempty,max=500"`
	Status      *models.ScheduleStatus `json:"status" binding:"omitempty,schedule_status"`
	AutoExecute *bool                  `json:"auto_execute"`
}

// ScheduledListQuery holds the filters of GetUserScheduled.
type ScheduledListQuery struct {
	Status *models.ScheduleStatus `form:"status" binding:"omitempty,oneof=active paused completed cancelled"`
}

// DueQuery holds the window of GetDueOccurrences.
type DueQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=366"`
}

// CreateScheduled handles the creation of a scheduled transaction
// @Summary     Create scheduled transaction
// @Description Create a recurring transaction. With auto_execute the scheduler posts each occurrence when due.
// @Tags        scheduled
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateScheduledRequest true "Schedule details"
// @Success     201 {object} models.ScheduledTransaction "Schedule created"
// @Failure     400 {object} ErrorResponse "Invalid input or rule"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /scheduled-transactions [post]
func (h *ScheduledHandler) CreateScheduled(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateScheduledRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheduled, err := h.scheduledService.CreateScheduled(c.Request.Context(), userID, services.CreateScheduledInput{
		AccountID:      req.AccountID,
		CategoryID:     req.CategoryID,
		WorkspaceID:    req.WorkspaceID,
		Type:           req.Type,
		Amount:         req.Amount,
		Description:    req.Description,
		StartDate:      start,
		EndDate:        end,
		RecurrenceRule: req.RecurrenceRule,
		MaxExecutions:  req.MaxExecutions,
		AutoExecute:    req.AutoExecute,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_SCHEDULED", "scheduled_transaction", scheduled.ID, c.ClientIP(),
		map[string]any{"rule": req.RecurrenceRule.Type, "amount": req.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"scheduled_transaction": scheduled})
}

// GetUserScheduled handles listing scheduled transactions
// @Summary     List scheduled transactions
// @Tags        scheduled
// @Produce     json
// @Security    BearerAuth
// @Param       status query string false "active, paused, completed or cancelled"
// @Success     200 {object} map[string][]models.ScheduledTransaction "Schedules"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /scheduled-transactions [get]
func (h *ScheduledHandler) GetUserScheduled(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q ScheduledListQuery
	if err := bindQuery(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	items, err := h.scheduledService.GetUserScheduled(c.Request.Context(), userID, q.Status)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if items == nil {
		items = []models.ScheduledTransaction{}
	}

	c.JSON(http.StatusOK, gin.H{"scheduled_transactions": items})
}

// GetDueOccurrences lists due and upcoming occurrences
// @Summary     Due occurrences
// @Description List occurrences up to the given number of days ahead, including overdue ones that were not executed
// @Tags        scheduled
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Days ahead (default 30, max 366)"
// @Success     200 {object} map[string][]services.DueOccurrence "Occurrences"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /scheduled-transactions/due [get]
func (h *ScheduledHandler) GetDueOccurrences(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q DueQuery
	if err := bindQuery(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	occurrences, err := h.scheduledService.GetDueOccurrences(c.Request.Context(), userID, h.now(), q.Days)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if occurrences == nil {
		occurrences = []services.DueOccurrence{}
	}

	c.JSON(http.StatusOK, gin.H{"occurrences": occurrences})
}

// GetScheduledByID handles the retrieval of a scheduled transaction
// @Summary     Get scheduled transaction
// @Tags        scheduled
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Schedule ID"
// @Success     200 {object} models.ScheduledTransaction "Schedule"
// @Failure     404 {object} ErrorResponse "Schedule not found"
// @Router      /scheduled-transactions/{id} [get]
func (h *ScheduledHandler) GetScheduledByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheduledID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheduled, err := h.scheduledService.GetScheduledByID(c.Request.Context(), userID, scheduledID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheduled_transaction": scheduled})
}

// UpdateScheduled handles updating a scheduled transaction
// @Summary     Update scheduled transaction
// @Tags        scheduled
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Schedule ID"
// @Param       request body UpdateScheduledRequest true "Fields to update"
// @Success     200 {object} models.ScheduledTransaction "Updated schedule"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Schedule not found"
// @Failure     409 {object} ErrorResponse "Schedule is not active"
// @Router      /scheduled-transactions/{id} [put]
func (h *ScheduledHandler) UpdateScheduled(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheduledID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateScheduledRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	in := services.UpdateScheduledInput{
		Amount:      req.Amount,
		Description: req.Description,
		Status:      req.Status,
		AutoExecute: req.AutoExecute,
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			in.CategoryID = req.CategoryID
		} else if in.CategoryID, err = optionalUUID("category_id", req.CategoryID); err != nil {
			respondWithError(c, err)
			return
		}
	}

	scheduled, err := h.scheduledService.UpdateScheduled(c.Request.Context(), userID, scheduledID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_SCHEDULED", "scheduled_transaction", scheduledID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"scheduled_transaction": scheduled})
}

// DeleteScheduled handles deleting a scheduled transaction
// @Summary     Delete scheduled transaction
// @Description Delete a schedule. Transactions it already created are kept.
// @Tags        scheduled
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Schedule ID"
// @Success     200 {object} MessageResponse "Schedule deleted"
// @Failure     404 {object} ErrorResponse "Schedule not found"
// @Router      /scheduled-transactions/{id} [delete]
func (h *ScheduledHandler) DeleteScheduled(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheduledID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.scheduledService.DeleteScheduled(c.Request.Context(), userID, scheduledID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_SCHEDULED", "scheduled_transaction", scheduledID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Scheduled transaction deleted successfully"})
}

// ExecuteNow materializes the next occurrence on demand
// @Summary     Execute next occurrence
// @Description Create the transaction of the next occurrence now, whatever its date
// @Tags        scheduled
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Schedule ID"
// @Success     201 {object} models.Transaction "Created transaction"
// @Failure     404 {object} ErrorResponse "Schedule not found"
// @Failure     409 {object} ErrorResponse "Schedule is not active"
// @Router      /scheduled-transactions/{id}/execute [post]
func (h *ScheduledHandler) ExecuteNow(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scheduledID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.scheduledService.ExecuteNow(c.Request.Context(), userID, scheduledID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "EXECUTE_SCHEDULED", "scheduled_transaction", scheduledID, c.ClientIP(),
		map[string]any{"transaction_id": transaction.ID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}
