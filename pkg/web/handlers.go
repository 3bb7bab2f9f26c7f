// Package web provides HTTP handlers and REST API endpoints for campaign and
// pipeline management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/leadion/pkg/auth"
	"github.com/dukex/leadion/pkg/registry"
	"github.com/dukex/leadion/pkg/services"
	"github.com/dukex/leadion/pkg/tracker"
)

type APIHandlers struct {
	campaignService *services.Campaign
	authService     *auth.Service
	state           *tracker.StateManager
	registry        *registry.Registry
	validator       *validator.Validate
}

func NewAPIHandlers(
	campaignService *services.Campaign,
	authService *auth.Service,
	state *tracker.StateManager,
	registry *registry.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		campaignService: campaignService,
		authService:     authService,
		state:           state,
		registry:        registry,
		validator:       validator,
	}
}

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	accounts := app.Group("/auth")
	accounts.Post("/register", h.Register)
	accounts.Post("/login", h.Login)
	accounts.Post("/logout", h.Logout, RequireAuth(h.authService))
	accounts.Get("/me", h.CurrentUser, RequireAuth(h.authService))

	api := app.Group("/v1", RequireAuth(h.authService))
	api.Post("/runs", h.CreateRun)
	api.Get("/runs", h.GetRuns)
	api.Get("/runs/:id", h.GetRun)
	api.Get("/workflow/status", h.WorkflowStatus)
	api.Get("/workflow/analytics", h.WorkflowAnalytics)
}

func (h *APIHandlers) Register(c fiber.Ctx) error {
	var req RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.authService.Register(c.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformUserResponse(user))
}

func (h *APIHandlers) Login(c fiber.Ctx) error {
	var req LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.authService.Login(c.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		return handleAuthError(c, err)
	}

	user, err := h.authService.User(c.Context(), session)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.JSON(SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      TransformUserResponse(user),
	})
}

func (h *APIHandlers) Logout(c fiber.Ctx) error {
	if err := h.authService.Logout(c.Context(), currentToken(c)); err != nil {
		return handleAuthError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CurrentUser(c fiber.Ctx) error {
	return c.JSON(TransformUserResponse(currentUser(c)))
}

// CreateRun validates the submitted campaign and dispatches a pipeline run.
// The run executes asynchronously; poll the run or the workflow status for
// progress.
func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	campaign, err := h.campaignService.ParseCampaign(c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	run, err := h.campaignService.StartRun(c.Context(), currentUser(c).ID, *campaign)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(run)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	runs, err := h.campaignService.RunsByUser(c.Context(), currentUser(c).ID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":        runs,
		"total_count": len(runs),
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.campaignService.FetchRun(c.Context(), currentUser(c).ID, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

// WorkflowStatus reports the live pipeline state: status, current agent and
// task, progress, timing, and accumulated analytics.
func (h *APIHandlers) WorkflowStatus(c fiber.Ctx) error {
	return c.JSON(h.state.GetState())
}

// WorkflowAnalytics reports the aggregated analytics summary of the tracked
// pipeline.
func (h *APIHandlers) WorkflowAnalytics(c fiber.Ctx) error {
	return c.JSON(h.state.AnalyticsSummary())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.campaignService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Leadion API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Leadion API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
