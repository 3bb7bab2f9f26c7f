package web_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/leadion/pkg/auth"
	"github.com/dukex/leadion/pkg/channels/gochannel"
	"github.com/dukex/leadion/pkg/crew"
	"github.com/dukex/leadion/pkg/emailverify"
	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/export"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence/file"
	"github.com/dukex/leadion/pkg/registry"
	"github.com/dukex/leadion/pkg/services"
	"github.com/dukex/leadion/pkg/tracker"
	"github.com/dukex/leadion/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	authService := auth.NewService(persistence, nil)

	publisher, subscriber, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	campaignService := services.NewCampaign(persistence, eventbus.NewWatermillEventBus(publisher, subscriber))
	registryInstance := registry.NewRegistry(slog.Default())
	crew.RegisterAgents(registryInstance, emailverify.NewClient(""), export.NewClient(""))

	handlers := web.NewAPIHandlers(
		campaignService,
		authService,
		tracker.NewStateManager(),
		registryInstance,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func registerAndLogin(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/register", web.RegisterRequest{
		Email:    email,
		Name:     "Ada Lovelace",
		Password: "correct-horse",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/auth/login", web.LoginRequest{
		Email:    email,
		Password: "correct-horse",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session web.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)

	return session.Token
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)

	return req
}

func campaignDocument() map[string]any {
	return map[string]any{
		"search_strategy": "b2b saas founders",
		"target_clients":  []string{"fintech"},
		"campaign_agenda": "Q3 outreach",
		"max_leads":       50,
		"search_depth":    2,
	}
}

func TestRegister(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/register", web.RegisterRequest{
		Email:    "ada@engines.com",
		Name:     "Ada Lovelace",
		Password: "correct-horse",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user web.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@engines.com", user.Email)
	assert.Equal(t, string(models.RoleMember), user.Role)
}

func TestRegister_Validation(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name    string
		request web.RegisterRequest
	}{
		{"invalid email", web.RegisterRequest{Email: "not-an-email", Name: "Ada", Password: "correct-horse"}},
		{"short name", web.RegisterRequest{Email: "ada@engines.com", Name: "A", Password: "correct-horse"}},
		{"short password", web.RegisterRequest{Email: "ada@engines.com", Name: "Ada", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/register", tt.request))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := setupTestApp(t)

	request := web.RegisterRequest{Email: "ada@engines.com", Name: "Ada Lovelace", Password: "correct-horse"}

	resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/register", request))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/auth/register", request))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/auth/register", web.RegisterRequest{
		Email:    "ada@engines.com",
		Name:     "Ada Lovelace",
		Password: "correct-horse",
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/auth/login", web.LoginRequest{
		Email:    "ada@engines.com",
		Password: "wrong-horse",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCurrentUser(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(httptest.NewRequest(http.MethodGet, "/auth/me", nil), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user web.UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "ada@engines.com", user.Email)
}

func TestLogout(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The token is no longer accepted.
	resp, err = app.Test(authed(httptest.NewRequest(http.MethodGet, "/auth/me", nil), token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutes_RequireAuth(t *testing.T) {
	app := setupTestApp(t)

	for _, target := range []string{"/v1/runs", "/v1/workflow/status", "/v1/workflow/analytics"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, target)
	}

	resp, err := app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/runs", nil), "bogus-token"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateRun(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(jsonRequest(http.MethodPost, "/v1/runs", campaignDocument()), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var run models.CampaignRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.RunStatusPending, run.Status)
	assert.Equal(t, "b2b saas founders", run.Campaign.SearchStrategy)
}

func TestCreateRun_InvalidCampaign(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	document := campaignDocument()
	document["max_leads"] = 5000

	resp, err := app.Test(authed(jsonRequest(http.MethodPost, "/v1/runs", document), token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_ConflictWhileActive(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(jsonRequest(http.MethodPost, "/v1/runs", campaignDocument()), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = app.Test(authed(jsonRequest(http.MethodPost, "/v1/runs", campaignDocument()), token))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetRuns(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(jsonRequest(http.MethodPost, "/v1/runs", campaignDocument()), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/runs", nil), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Runs       []models.CampaignRun `json:"runs"`
		TotalCount int                  `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Equal(t, 1, listing.TotalCount)
	require.Len(t, listing.Runs, 1)
}

func TestGetRun_Ownership(t *testing.T) {
	app := setupTestApp(t)
	owner := registerAndLogin(t, app, "ada@engines.com")
	other := registerAndLogin(t, app, "grace@navy.mil")

	resp, err := app.Test(authed(jsonRequest(http.MethodPost, "/v1/runs", campaignDocument()), owner))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var run models.CampaignRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	resp, err = app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil), owner))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil), other))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/runs/missing", nil), owner))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWorkflowStatus(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/workflow/status", nil), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state tracker.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, tracker.StatusIdle, state.WorkflowStatus)
	assert.Equal(t, 4, state.Progress.TotalTasks)
}

func TestWorkflowAnalytics(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndLogin(t, app, "ada@engines.com")

	resp, err := app.Test(authed(httptest.NewRequest(http.MethodGet, "/v1/workflow/analytics", nil), token))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Contains(t, summary, "leads_found")
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
}
