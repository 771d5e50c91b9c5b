package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/recurrence"
	"famledger/internal/services"
)

type mockBillService struct {
	createBillFn   func(userID string, in services.BillInput) (*models.Bill, error)
	getBillByIDFn  func(userID, billID string) (*models.Bill, error)
	getUserBillsFn func(userID string, status *models.BillStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Bill], error)
	updateBillFn   func(userID, billID string, in services.BillInput) (*models.Bill, error)
	deleteBillFn   func(userID, billID string) error
	payBillFn      func(userID, billID string, in services.PayBillInput) (*models.Bill, error)
	unpayBillFn    func(userID, billID string) (*models.Bill, error)
}

func (m *mockBillService) CreateBill(_ context.Context, userID string, in services.BillInput) (*models.Bill, error) {
	if m.createBillFn != nil {
		return m.createBillFn(userID, in)
	}
	return &models.Bill{}, nil
}

func (m *mockBillService) GetBillByID(_ context.Context, userID, billID string) (*models.Bill, error) {
	if m.getBillByIDFn != nil {
		return m.getBillByIDFn(userID, billID)
	}
	return &models.Bill{}, nil
}

func (m *mockBillService) GetUserBills(_ context.Context, userID string, status *models.BillStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Bill], error) {
	if m.getUserBillsFn != nil {
		return m.getUserBillsFn(userID, status, page)
	}
	resp := pagination.NewPageResponse([]models.Bill{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBillService) UpdateBill(_ context.Context, userID, billID string, in services.BillInput) (*models.Bill, error) {
	if m.updateBillFn != nil {
		return m.updateBillFn(userID, billID, in)
	}
	return &models.Bill{}, nil
}

func (m *mockBillService) DeleteBill(_ context.Context, userID, billID string) error {
	if m.deleteBillFn != nil {
		return m.deleteBillFn(userID, billID)
	}
	return nil
}

func (m *mockBillService) PayBill(_ context.Context, userID, billID string, in services.PayBillInput) (*models.Bill, error) {
	if m.payBillFn != nil {
		return m.payBillFn(userID, billID, in)
	}
	return &models.Bill{Status: models.BillStatusPaid}, nil
}

func (m *mockBillService) UnpayBill(_ context.Context, userID, billID string) (*models.Bill, error) {
	if m.unpayBillFn != nil {
		return m.unpayBillFn(userID, billID)
	}
	return &models.Bill{Status: models.BillStatusPending}, nil
}

func (m *mockBillService) Sweep(_ context.Context, _ time.Time) (services.SweepResult, error) {
	return services.SweepResult{}, nil
}

var _ services.BillServicer = (*mockBillService)(nil)

func setupBillRouter(handler *BillHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/bills", handler.CreateBill)
	auth.GET("/bills", handler.GetUserBills)
	auth.GET("/bills/:id", handler.GetBillByID)
	auth.PUT("/bills/:id", handler.UpdateBill)
	auth.DELETE("/bills/:id", handler.DeleteBill)
	auth.POST("/bills/:id/pay", handler.PayBill)
	auth.POST("/bills/:id/unpay", handler.UnpayBill)
	return r
}

func TestBillHandler_CreateBill(t *testing.T) {
	t.Run("returns 201 for a recurring bill", func(t *testing.T) {
		var got services.BillInput
		svc := &mockBillService{
			createBillFn: func(_ string, in services.BillInput) (*models.Bill, error) {
				got = in
				return &models.Bill{Base: models.Base{ID: testThirdID}, Name: in.Name, Status: models.BillStatusPending}, nil
			},
		}
		r := setupBillRouter(NewBillHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills",
			`{"name":"Rent","type":"payable","amount":"1200","due_date":"2024-02-01","is_recurring":true,"recurrence_rule":{"type":"monthly","day_of_month":1}}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.DueDate.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected due date %v", got.DueDate)
		}
		if got.RecurrenceRule == nil || got.RecurrenceRule.Type != recurrence.Monthly {
			t.Errorf("expected monthly rule, got %+v", got.RecurrenceRule)
		}
	})

	t.Run("returns 400 on unknown recurrence type", func(t *testing.T) {
		r := setupBillRouter(NewBillHandler(&mockBillService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills",
			`{"name":"Rent","type":"payable","amount":"1200","due_date":"2024-02-01","recurrence_rule":{"type":"hourly"}}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing due date", func(t *testing.T) {
		r := setupBillRouter(NewBillHandler(&mockBillService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills", `{"name":"Rent","type":"payable","amount":"1200"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects paid as a writable status", func(t *testing.T) {
		r := setupBillRouter(NewBillHandler(&mockBillService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills",
			`{"name":"Rent","type":"payable","amount":"1200","due_date":"2024-02-01","status":"paid"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBillHandler_GetUserBills(t *testing.T) {
	t.Run("accepts overdue as a filter", func(t *testing.T) {
		var gotStatus *models.BillStatus
		svc := &mockBillService{
			getUserBillsFn: func(_ string, status *models.BillStatus, _ pagination.PageRequest) (*pagination.PageResponse[models.Bill], error) {
				gotStatus = status
				resp := pagination.NewPageResponse([]models.Bill{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupBillRouter(NewBillHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/bills?status=overdue", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotStatus == nil || *gotStatus != models.BillStatusOverdue {
			t.Errorf("expected overdue filter, got %v", gotStatus)
		}
	})
}

func TestBillHandler_PayBill(t *testing.T) {
	t.Run("returns the paid bill", func(t *testing.T) {
		var got services.PayBillInput
		svc := &mockBillService{
			payBillFn: func(_, billID string, in services.PayBillInput) (*models.Bill, error) {
				got = in
				return &models.Bill{Base: models.Base{ID: billID}, Status: models.BillStatusPaid}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupBillRouter(NewBillHandler(svc, audit))

		rec := doRequest(r, "POST", "/bills/"+testThirdID+"/pay", `{"account_id":"`+testOtherID+`"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.AccountID != testOtherID || got.Date != nil {
			t.Errorf("unexpected input %+v", got)
		}
		bill := parseJSON(t, rec)["bill"].(map[string]interface{})
		if bill["status"] != "paid" {
			t.Errorf("expected paid, got %v", bill["status"])
		}
		if len(audit.actions) != 1 || audit.actions[0] != "PAY_BILL" {
			t.Errorf("expected PAY_BILL audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 409 when already paid", func(t *testing.T) {
		svc := &mockBillService{
			payBillFn: func(_, _ string, _ services.PayBillInput) (*models.Bill, error) {
				return nil, apperrors.ErrAlreadyPaid
			},
		}
		r := setupBillRouter(NewBillHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills/"+testThirdID+"/pay", `{"account_id":"`+testOtherID+`"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ALREADY_PAID")
	})

	t.Run("returns 400 without account", func(t *testing.T) {
		r := setupBillRouter(NewBillHandler(&mockBillService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills/"+testThirdID+"/pay", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBillHandler_UnpayBill(t *testing.T) {
	t.Run("returns 409 when not paid", func(t *testing.T) {
		svc := &mockBillService{
			unpayBillFn: func(_, _ string) (*models.Bill, error) {
				return nil, apperrors.ErrBillNotPaid
			},
		}
		r := setupBillRouter(NewBillHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills/"+testThirdID+"/unpay", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("returns the restored bill", func(t *testing.T) {
		r := setupBillRouter(NewBillHandler(&mockBillService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/bills/"+testThirdID+"/unpay", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		bill := parseJSON(t, rec)["bill"].(map[string]interface{})
		if bill["status"] != "pending" {
			t.Errorf("expected pending, got %v", bill["status"])
		}
	})
}
