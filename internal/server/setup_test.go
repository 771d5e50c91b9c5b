package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"famledger/internal/events"
	"famledger/internal/logger"
	"famledger/internal/middleware"
	"famledger/internal/testutil"
	"famledger/internal/validator"
)

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Services Services
	Events   *events.Recorder
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates the full router backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	recorder := &events.Recorder{}
	svc := NewServices(db, recorder, Options{
		StatementTimeout: 5 * time.Second,
		PasswordMaxBytes: 72,
	})
	router := NewRouter(svc, middleware.NewJWTManager("flow-test-secret", time.Hour))

	return &testApp{DB: db, Router: router, Services: svc, Events: recorder}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustRequest is request that fails the test on an unexpected status code.
func (app *testApp) mustRequest(t *testing.T, want int, method, path, body, token string) map[string]interface{} {
	t.Helper()
	rec := app.request(method, path, body, token)
	if rec.Code != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	result := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/auth/register", body, "")
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// createAccount creates an account and returns its ID.
func (app *testApp) createAccount(t *testing.T, token, name, accountType, initial string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":%q,"initial_balance":%q}`, name, accountType, initial)
	result := app.mustRequest(t, http.StatusCreated, "POST", "/api/v1/accounts", body, token)
	return result["account"].(map[string]interface{})["id"].(string)
}

// balance fetches the current balance string of an account.
func (app *testApp) balance(t *testing.T, token, accountID string) string {
	t.Helper()
	result := app.mustRequest(t, http.StatusOK, "GET", "/api/v1/accounts/"+accountID, "", token)
	return result["account"].(map[string]interface{})["balance"].(string)
}

func assertBalance(t *testing.T, app *testApp, token, accountID, want string) {
	t.Helper()
	if got := app.balance(t, token, accountID); got != want {
		t.Errorf("expected balance %s, got %s", want, got)
	}
}
