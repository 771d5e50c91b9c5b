package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/pagination"
	"famledger/internal/services"
	"famledger/internal/store"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	AccountID   string                 `json:"account_id" binding:"required,uuid"`
	CategoryID  *string                `json:"category_id" binding:"omitempty,uuid"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      money.Money            `json:"amount" binding:"required,gt=0"`
	Description string                 `json:"description" binding:"max=500"`
	Date        *string                `json:"date"`
	Status      *models.Status         `json:"status" binding:"omitempty,transaction_status"`
	WorkspaceID *string                `json:"workspace_id" binding:"omitempty,uuid"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// An empty category_id clears the category.
type UpdateTransactionRequest struct {
	AccountID   *string                 `json:"account_id" binding:"omitempty,uuid"`
	CategoryID  *string                 `json:"category_id"`
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Amount      *money.Money            `json:"amount" binding:"omitempty,gt=0"`
	Description *string                 `json:"description" binding:"omitempty,max=500"`
	Date        *string                 `json:"date"`
	Status      *models.Status          `json:"status" binding:"omitempty,transaction_status"`
}

// TransactionSearchQuery holds the filters of SearchTransactions.
type TransactionSearchQuery struct {
	pagination.PageRequest
	Text           string                  `form:"text" binding:"max=200"`
	Type           *models.TransactionType `form:"type" binding:"omitempty,transaction_type"`
	Status         *models.Status          `form:"status" binding:"omitempty,transaction_status"`
	CategoryID     *string                 `form:"category_id" binding:"omitempty,uuid"`
	AccountID      *string                 `form:"account_id" binding:"omitempty,uuid"`
	WorkspaceID    *string                 `form:"workspace_id" binding:"omitempty,uuid"`
	MinAmount      string                  `form:"min_amount"`
	MaxAmount      string                  `form:"max_amount"`
	StartDate      *string                 `form:"start_date"`
	EndDate        *string                 `form:"end_date"`
	OrderBy        string                  `form:"order_by"`
	OrderDirection string                  `form:"order_direction" binding:"omitempty,oneof=asc desc ASC DESC"`
}

func (q TransactionSearchQuery) filter() (store.TransactionFilter, error) {
	f := store.TransactionFilter{
		Text:           q.Text,
		Type:           q.Type,
		Status:         q.Status,
		CategoryID:     q.CategoryID,
		AccountID:      q.AccountID,
		WorkspaceID:    q.WorkspaceID,
		OrderBy:        q.OrderBy,
		OrderDirection: q.OrderDirection,
	}

	var err error
	if f.MinAmount, err = optionalAmount("min_amount", q.MinAmount); err != nil {
		return f, err
	}
	if f.MaxAmount, err = optionalAmount("max_amount", q.MaxAmount); err != nil {
		return f, err
	}
	if f.StartDate, err = parseOptionalDate("start_date", q.StartDate); err != nil {
		return f, err
	}
	if f.EndDate, err = parseOptionalDate("end_date", q.EndDate); err != nil {
		return f, err
	}
	return f, nil
}

func optionalAmount(field, s string) (*money.Money, error) {
	if s == "" {
		return nil, nil
	}
	m, err := money.FromString(s)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+field)
	}
	return &m, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Create a new income or expense transaction for an account
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     409 {object} ErrorResponse "Account inactive"
// @Failure     422 {object} ErrorResponse "Malformed body"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, services.CreateTransactionInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
		Status:      req.Status,
		WorkspaceID: req.WorkspaceID,
		Source:      models.SourceManual,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"type": req.Type, "amount": req.Amount.String(), "account_id": req.AccountID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// SearchTransactions handles listing transactions with filters
// @Summary     Search transactions
// @Description Get a paginated, filtered list of transactions visible to the user
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       text            query string false "Match in description"
// @Param       type            query string false "income or expense"
// @Param       status          query string false "pending, completed or cancelled"
// @Param       category_id     query string false "Filter by category ID"
// @Param       account_id      query string false "Filter by account ID"
// @Param       workspace_id    query string false "Filter by workspace ID"
// @Param       min_amount      query string false "Minimum amount"
// @Param       max_amount      query string false "Maximum amount"
// @Param       start_date      query string false "From date (RFC3339 or YYYY-MM-DD)"
// @Param       end_date        query string false "To date (RFC3339 or YYYY-MM-DD)"
// @Param       order_by        query string false "date, amount, description or created_at"
// @Param       order_direction query string false "asc or desc"
// @Param       page            query int    false "Page number (default 1)"
// @Param       page_size       query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) SearchTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q TransactionSearchQuery
	if err := bindQuery(c, &q); err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := q.filter()
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.SearchTransactions(c.Request.Context(), userID, filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Request.Context(), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Update a transaction. Balances follow the change. Transfer legs cannot be edited, and a transaction that pays a bill must stay completed.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Access denied"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Forbidden operation"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	in := services.UpdateTransactionInput{
		AccountID:   req.AccountID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			in.CategoryID = req.CategoryID
		} else if in.CategoryID, err = optionalUUID("category_id", req.CategoryID); err != nil {
			respondWithError(c, err)
			return
		}
	}
	if in.Date, err = parseOptionalDate("date", req.Date); err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, transactionID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete transaction
// @Description Delete a transaction and reverse its effect on the balance. A bill it paid returns to its previous status.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Transfer leg"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
