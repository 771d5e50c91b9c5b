package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/money"
	"famledger/internal/services"
)

type mockGoalService struct {
	createGoalFn         func(userID string, in services.GoalInput) (*models.Goal, error)
	getUserGoalsFn       func(userID string, status *models.GoalStatus) ([]models.Goal, error)
	contributeFn         func(userID, goalID string, in services.ContributionInput) (*models.GoalContribution, error)
	deleteContributionFn func(userID, goalID, contributionID string) error
}

func (m *mockGoalService) CreateGoal(_ context.Context, userID string, in services.GoalInput) (*models.Goal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(userID, in)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) GetGoalByID(_ context.Context, _, goalID string) (*models.Goal, error) {
	return &models.Goal{Base: models.Base{ID: goalID}}, nil
}

func (m *mockGoalService) GetUserGoals(_ context.Context, userID string, status *models.GoalStatus) ([]models.Goal, error) {
	if m.getUserGoalsFn != nil {
		return m.getUserGoalsFn(userID, status)
	}
	return nil, nil
}

func (m *mockGoalService) UpdateGoal(_ context.Context, _, goalID string, in services.GoalInput) (*models.Goal, error) {
	return &models.Goal{Base: models.Base{ID: goalID}, Name: in.Name}, nil
}

func (m *mockGoalService) DeleteGoal(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockGoalService) Contribute(_ context.Context, userID, goalID string, in services.ContributionInput) (*models.GoalContribution, error) {
	if m.contributeFn != nil {
		return m.contributeFn(userID, goalID, in)
	}
	return &models.GoalContribution{GoalID: goalID, Amount: in.Amount}, nil
}

func (m *mockGoalService) GetContributions(_ context.Context, _, _ string) ([]models.GoalContribution, error) {
	return nil, nil
}

func (m *mockGoalService) DeleteContribution(_ context.Context, userID, goalID, contributionID string) error {
	if m.deleteContributionFn != nil {
		return m.deleteContributionFn(userID, goalID, contributionID)
	}
	return nil
}

var _ services.GoalServicer = (*mockGoalService)(nil)

func setupGoalRouter(handler *GoalHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/goals", handler.CreateGoal)
	auth.GET("/goals", handler.GetUserGoals)
	auth.GET("/goals/:id", handler.GetGoalByID)
	auth.PUT("/goals/:id", handler.UpdateGoal)
	auth.DELETE("/goals/:id", handler.DeleteGoal)
	auth.POST("/goals/:id/contributions", handler.Contribute)
	auth.GET("/goals/:id/contributions", handler.GetContributions)
	auth.DELETE("/goals/:id/contributions/:cid", handler.DeleteContribution)
	return r
}

func TestGoalHandler_CreateGoal(t *testing.T) {
	t.Run("returns 201 with an auto-contribution percentage", func(t *testing.T) {
		var got services.GoalInput
		svc := &mockGoalService{
			createGoalFn: func(_ string, in services.GoalInput) (*models.Goal, error) {
				got = in
				return &models.Goal{Base: models.Base{ID: testThirdID}, Name: in.Name, TargetAmount: in.TargetAmount}, nil
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals",
			`{"name":"Emergency fund","target_amount":"5000","savings_category_id":"`+testOtherID+`","auto_contribution_percentage":"25.5","target_date":"2025-12-31"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.AutoContributionPercentage == nil || !got.AutoContributionPercentage.Equal(decimal.RequireFromString("25.5")) {
			t.Errorf("expected 25.5%%, got %v", got.AutoContributionPercentage)
		}
		if got.TargetDate == nil || got.TargetDate.Year() != 2025 {
			t.Errorf("unexpected target date %v", got.TargetDate)
		}
	})

	t.Run("returns 400 on zero target", func(t *testing.T) {
		r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals", `{"name":"Trip","target_amount":"0"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 when allocation exceeds 100", func(t *testing.T) {
		svc := &mockGoalService{
			createGoalFn: func(_ string, _ services.GoalInput) (*models.Goal, error) {
				return nil, apperrors.ErrAllocationExceeded
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals",
			`{"name":"Trip","target_amount":"100","savings_category_id":"`+testOtherID+`","auto_contribution_percentage":80}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ALLOCATION_EXCEEDED")
	})
}

func TestGoalHandler_GetUserGoals(t *testing.T) {
	t.Run("returns an empty list rather than null", func(t *testing.T) {
		r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/goals?status=active", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if goals, ok := parseJSON(t, rec)["goals"].([]interface{}); !ok || len(goals) != 0 {
			t.Errorf("expected empty array, got %s", rec.Body.String())
		}
	})
}

func TestGoalHandler_Contributions(t *testing.T) {
	t.Run("contribute returns 201", func(t *testing.T) {
		var got services.ContributionInput
		svc := &mockGoalService{
			contributeFn: func(_, goalID string, in services.ContributionInput) (*models.GoalContribution, error) {
				got = in
				return &models.GoalContribution{GoalID: goalID, Amount: in.Amount, Note: in.Note}, nil
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals/"+testThirdID+"/contributions", `{"amount":"150.00","note":"bonus"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.Amount.Equal(money.MustParse("150")) || got.Date != nil {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("contribute to a completed goal is a conflict", func(t *testing.T) {
		svc := &mockGoalService{
			contributeFn: func(_, _ string, _ services.ContributionInput) (*models.GoalContribution, error) {
				return nil, apperrors.ErrGoalNotActive
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals/"+testThirdID+"/contributions", `{"amount":"1"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("delete passes both ids", func(t *testing.T) {
		var gotGoal, gotContribution string
		svc := &mockGoalService{
			deleteContributionFn: func(_, goalID, contributionID string) error {
				gotGoal, gotContribution = goalID, contributionID
				return nil
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/goals/"+testThirdID+"/contributions/"+testOtherID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotGoal != testThirdID || gotContribution != testOtherID {
			t.Errorf("unexpected ids %s %s", gotGoal, gotContribution)
		}
	})

	t.Run("delete rejects a malformed contribution id", func(t *testing.T) {
		r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/goals/"+testThirdID+"/contributions/7", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
