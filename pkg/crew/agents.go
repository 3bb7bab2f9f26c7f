package crew

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/leadion/pkg/emailverify"
	"github.com/dukex/leadion/pkg/export"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/protocol"
)

// DefaultAgents builds the standard four-stage pipeline in canonical order.
func DefaultAgents(scrapeURL, scrapeToken string, verifier *emailverify.Client, exporter *export.Client) []protocol.Agent {
	return []protocol.Agent{
		NewScraperAgent(scrapeURL, scrapeToken),
		NewEmailFinderAgent(),
		NewValidatorAgent(verifier),
		NewSaverAgent(exporter),
	}
}

// ScraperAgent fetches prospect leads from the scraping service. Without a
// configured service it degrades to an empty lead list so the rest of the
// pipeline still exercises.
type ScraperAgent struct {
	serviceURL string
	token      string
	httpClient *http.Client
}

func NewScraperAgent(serviceURL, token string) *ScraperAgent {
	return &ScraperAgent{
		serviceURL: serviceURL,
		token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (a *ScraperAgent) ID() string   { return "scraper_agent" }
func (a *ScraperAgent) Role() string { return "Lead Scraper" }

func (a *ScraperAgent) TaskDescription() string {
	return "Scrape LinkedIn for leads matching the campaign targets"
}

type scrapeRequest struct {
	SearchStrategy string   `json:"search_strategy"`
	TargetClients  []string `json:"target_clients"`
	MaxLeads       int      `json:"max_leads"`
	SearchDepth    int      `json:"search_depth"`
}

func (a *ScraperAgent) Execute(ctx context.Context, agentCtx protocol.AgentContext, logger *slog.Logger) (any, error) {
	if a.serviceURL == "" {
		logger.Warn("Scraping service not configured, returning no leads")

		return models.LeadList{Leads: []models.Lead{}}, nil
	}

	body, err := json.Marshal(scrapeRequest{
		SearchStrategy: agentCtx.Campaign.SearchStrategy,
		TargetClients:  agentCtx.Campaign.TargetClients,
		MaxLeads:       agentCtx.Campaign.MaxLeads,
		SearchDepth:    agentCtx.Campaign.SearchDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serviceURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create scrape request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+a.token)

	response, err := a.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("scrape request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scraping service returned status %d", response.StatusCode)
	}

	var leads models.LeadList
	if err := json.NewDecoder(response.Body).Decode(&leads); err != nil {
		return nil, fmt.Errorf("failed to decode scrape response: %w", err)
	}

	logger.Info("Leads scraped", "count", len(leads.Leads))

	return leads, nil
}

// EmailFinderAgent fills in missing email addresses using the common
// first.last@company pattern. It only guesses; the validator downstream
// decides what survives.
type EmailFinderAgent struct{}

func NewEmailFinderAgent() *EmailFinderAgent {
	return &EmailFinderAgent{}
}

func (a *EmailFinderAgent) ID() string   { return "email_finder_agent" }
func (a *EmailFinderAgent) Role() string { return "Email Finder" }

func (a *EmailFinderAgent) TaskDescription() string {
	return "Find work email addresses for each prospect"
}

func (a *EmailFinderAgent) Execute(ctx context.Context, agentCtx protocol.AgentContext, logger *slog.Logger) (any, error) {
	leads := previousLeads(agentCtx, "scraper_agent")
	found := 0

	enriched := make([]models.Lead, 0, len(leads))

	for _, lead := range leads {
		if lead.Email == "" {
			if guessed := guessEmail(lead); guessed != "" {
				lead.Email = guessed
				found++
			}
		}

		enriched = append(enriched, lead)
	}

	logger.Info("Email addresses derived", "count", found)

	return models.LeadList{Leads: enriched}, nil
}

func guessEmail(lead models.Lead) string {
	if lead.Name == "" || lead.Company == "" {
		return ""
	}

	nameParts := strings.Fields(strings.ToLower(lead.Name))
	if len(nameParts) == 0 {
		return ""
	}

	domain := strings.ToLower(strings.ReplaceAll(lead.Company, " ", "")) + ".com"

	if len(nameParts) == 1 {
		return nameParts[0] + "@" + domain
	}

	return nameParts[0] + "." + nameParts[len(nameParts)-1] + "@" + domain
}

// ValidatorAgent verifies lead email addresses through the verification
// service.
type ValidatorAgent struct {
	verifier *emailverify.Client
}

func NewValidatorAgent(verifier *emailverify.Client) *ValidatorAgent {
	return &ValidatorAgent{verifier: verifier}
}

func (a *ValidatorAgent) ID() string   { return "email_validator_agent" }
func (a *ValidatorAgent) Role() string { return "Email Validator" }

func (a *ValidatorAgent) TaskDescription() string {
	return "Validate email addresses and filter poor quality contacts"
}

func (a *ValidatorAgent) Execute(ctx context.Context, agentCtx protocol.AgentContext, logger *slog.Logger) (any, error) {
	leads := previousLeads(agentCtx, "email_finder_agent")
	if len(leads) == 0 {
		leads = previousLeads(agentCtx, "scraper_agent")
	}

	validated := a.verifier.ValidateLeads(ctx, leads)

	logger.Info("Leads validated",
		"valid", validated.ValidCount, "invalid", validated.InvalidCount)

	return validated, nil
}

// SaverAgent exports the validated leads and a campaign summary to the
// workspace service.
type SaverAgent struct {
	exporter *export.Client
}

func NewSaverAgent(exporter *export.Client) *SaverAgent {
	return &SaverAgent{exporter: exporter}
}

func (a *SaverAgent) ID() string   { return "data_analytics_agent" }
func (a *SaverAgent) Role() string { return "Data Analyst" }

func (a *SaverAgent) TaskDescription() string {
	return "Save campaign data and analytics"
}

func (a *SaverAgent) Execute(ctx context.Context, agentCtx protocol.AgentContext, logger *slog.Logger) (any, error) {
	var leads []models.Lead

	if validated, ok := agentCtx.Outputs["email_validator_agent"].(models.ValidatedLeads); ok {
		leads = validated.Leads
	} else {
		leads = previousLeads(agentCtx, "email_finder_agent")
	}

	title := fmt.Sprintf("Leads %s - %s", agentCtx.RunID[:8], time.Now().UTC().Format("2006-01-02"))

	spreadsheet, err := a.exporter.ExportLeads(ctx, title, leads)
	if err != nil {
		return nil, fmt.Errorf("failed to store leads: %w", err)
	}

	summary := fmt.Sprintf("Campaign agenda: %s\nTargets: %s\nLeads found: %d\n",
		agentCtx.Campaign.CampaignAgenda,
		strings.Join(agentCtx.Campaign.TargetClients, ", "),
		len(leads))

	document, err := a.exporter.ExportSummary(ctx, title+" summary", summary)
	if err != nil {
		return nil, fmt.Errorf("failed to store summary: %w", err)
	}

	logger.Info("Campaign data stored",
		"spreadsheet", spreadsheet.ID, "document", document.ID)

	return map[string]any{
		"leads_found": len(leads),
		"spreadsheet": spreadsheet,
		"document":    document,
	}, nil
}

func previousLeads(agentCtx protocol.AgentContext, agentID string) []models.Lead {
	switch output := agentCtx.Outputs[agentID].(type) {
	case models.LeadList:
		return output.Leads
	case *models.LeadList:
		if output != nil {
			return output.Leads
		}
	case models.ValidatedLeads:
		return output.Leads
	}

	return nil
}
