package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"
	"famledger/internal/recurrence"
	"famledger/internal/services"
)

// BillHandler handles bills and their payment.
type BillHandler struct {
	billService  services.BillServicer
	auditService services.AuditServicer
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(billService services.BillServicer, auditService services.AuditServicer) *BillHandler {
	return &BillHandler{billService: billService, auditService: auditService}
}

// BillRequest represents the request payload for creating or updating a bill
type BillRequest struct {
	Name           string             `json:"name" binding:"required,min=1,max=100"`
	Description    string             `json:"description" binding:"max=500"`
	Type           models.BillType    `json:"type" binding:"required,bill_type"`
	Amount         money.Money        `json:"amount" binding:"required,gt=0"`
	DueDate        string             `json:"due_date" binding:"required"`
	IsRecurring    bool               `json:"is_recurring"`
	RecurrenceRule *recurrence.Rule   `json:"recurrence_rule"`
	CategoryID     *string            `json:"category_id" binding:"omitempty,uuid"`
	Status         *models.BillStatus `json:"status" binding:"omitempty,bill_status"`
}

func (r BillRequest) input() (services.BillInput, error) {
	due, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return services.BillInput{}, err
	}
	return services.BillInput{
		Name:           r.Name,
		Description:    r.Description,
		Type:           r.Type,
		Amount:         r.Amount,
		DueDate:        due,
		IsRecurring:    r.IsRecurring,
		RecurrenceRule: r.RecurrenceRule,
		CategoryID:     r.CategoryID,
		Status:         r.Status,
	}, nil
}

// PayBillRequest represents the request payload for paying a bill
type PayBillRequest struct {
	AccountID string  `json:"account_id" binding:"required,uuid"`
	Date      *string `json:"date"`
}

// BillListQuery holds the filters of GetUserBills.
type BillListQuery struct {
	pagination.PageRequest
	Status *models.BillStatus `form:"status" binding:"omitempty,oneof=pending paid overdue cancelled"`
}

// CreateBill handles the creation of a bill
// @Summary     Create bill
// @Description Create a payable or receivable bill. Recurring bills spawn their next occurrence when due.
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BillRequest true "Bill details"
// @Success     201 {object} models.Bill "Bill created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BillRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.CreateBill(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_BILL", "bill", bill.ID, c.ClientIP(),
		map[string]any{"name": req.Name, "amount": req.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"bill": bill})
}

// GetUserBills handles listing bills
// @Summary     List bills
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       status    query string false "pending, paid, overdue or cancelled"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Bill] "Paginated bills"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /bills [get]
func (h *BillHandler) GetUserBills(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q BillListQuery
	if err := bindQuery(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.billService.GetUserBills(c.Request.Context(), userID, q.Status, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBillByID handles the retrieval of a bill
// @Summary     Get bill by ID
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} models.Bill "Bill details"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Router      /bills/{id} [get]
func (h *BillHandler) GetBillByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.GetBillByID(c.Request.Context(), userID, billID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UpdateBill handles updating a bill
// @Summary     Update bill
// @Description Update an unpaid bill. Status may move between pending and cancelled.
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string      true "Bill ID"
// @Param       request body BillRequest true "Bill details"
// @Success     200 {object} models.Bill "Updated bill"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     409 {object} ErrorResponse "Bill already paid"
// @Router      /bills/{id} [put]
func (h *BillHandler) UpdateBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BillRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.UpdateBill(c.Request.Context(), userID, billID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_BILL", "bill", billID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// DeleteBill handles deleting an unpaid bill
// @Summary     Delete bill
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} MessageResponse "Bill deleted"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     409 {object} ErrorResponse "Bill already paid"
// @Router      /bills/{id} [delete]
func (h *BillHandler) DeleteBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.billService.DeleteBill(c.Request.Context(), userID, billID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_BILL", "bill", billID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Bill deleted successfully"})
}

// PayBill handles paying a bill from an account
// @Summary     Pay bill
// @Description Post the bill's payment transaction on the given account and mark the bill paid
// @Tags        bills
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string         true "Bill ID"
// @Param       request body PayBillRequest true "Paying account"
// @Success     200 {object} models.Bill "Paid bill"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Bill or account not found"
// @Failure     409 {object} ErrorResponse "Already paid or cancelled"
// @Router      /bills/{id}/pay [post]
func (h *BillHandler) PayBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PayBillRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.PayBill(c.Request.Context(), userID, billID, services.PayBillInput{AccountID: req.AccountID, Date: date})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "PAY_BILL", "bill", billID, c.ClientIP(),
		map[string]any{"account_id": req.AccountID})

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}

// UnpayBill handles reversing a bill payment
// @Summary     Unpay bill
// @Description Delete the payment transaction and restore the bill's previous status
// @Tags        bills
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Bill ID"
// @Success     200 {object} models.Bill "Unpaid bill"
// @Failure     404 {object} ErrorResponse "Bill not found"
// @Failure     409 {object} ErrorResponse "Bill is not paid"
// @Router      /bills/{id}/unpay [post]
func (h *BillHandler) UnpayBill(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	billID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	bill, err := h.billService.UnpayBill(c.Request.Context(), userID, billID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UNPAY_BILL", "bill", billID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"bill": bill})
}
