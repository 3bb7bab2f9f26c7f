// Package emailverify validates lead email addresses against an external
// verification API. The client degrades gracefully when no API key is
// configured: every address is reported as unverified rather than failing
// the pipeline.
package emailverify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/models"
)

const (
	defaultBaseURL = "https://apps.emaillistverify.com/api/verifyEmail"
	requestTimeout = 30 * time.Second
	// requestDelay spaces bulk lookups to respect the provider's rate limit.
	requestDelay = 100 * time.Millisecond
)

// Result is the verification outcome for one address.
type Result struct {
	Email          string `json:"email"`
	Valid          bool   `json:"is_valid"`
	Deliverability string `json:"deliverability,omitempty"`
	SpamTrap       bool   `json:"is_spam_trap"`
	Disposable     bool   `json:"is_disposable"`
	CatchAll       bool   `json:"is_catch_all"`
	Score          int    `json:"score"`
	Error          string `json:"error,omitempty"`
}

// BulkResult summarizes verification over a batch of addresses.
type BulkResult struct {
	TotalEmails    int      `json:"total_emails"`
	ValidEmails    []string `json:"valid_emails"`
	InvalidEmails  []string `json:"invalid_emails"`
	SpamTraps      []string `json:"spam_traps"`
	Disposable     []string `json:"disposable_emails"`
	CatchAll       []string `json:"catch_all_domains"`
	ValidationRate float64  `json:"validation_rate"`
	Results        []Result `json:"detailed_results"`
}

// Client talks to the email verification API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a verification client. An empty apiKey produces a client
// that reports every address as unverified.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.WithModule("emailverify"),
	}
}

// WithBaseURL points the client at a non-default API endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL

	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type verifyResponse struct {
	Status         string `json:"status"`
	Deliverability string `json:"deliverability"`
	SpamTrap       bool   `json:"spam_trap"`
	Disposable     bool   `json:"disposable"`
	CatchAll       bool   `json:"catch_all"`
	Score          int    `json:"score"`
}

// VerifySingle verifies one address. Lookup failures are reported in the
// Result's Error field, never as a returned error.
func (c *Client) VerifySingle(ctx context.Context, email string) Result {
	if !c.Configured() {
		return Result{Email: email, Error: "email verification API key not configured"}
	}

	query := url.Values{}
	query.Set("secret", c.apiKey)
	query.Set("email", email)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Result{Email: email, Error: fmt.Sprintf("failed to create verification request: %v", err)}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return Result{Email: email, Error: fmt.Sprintf("verification request failed: %v", err)}
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return Result{Email: email, Error: fmt.Sprintf("verification service returned status %d", response.StatusCode)}
	}

	var decoded verifyResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return Result{Email: email, Error: fmt.Sprintf("failed to decode verification response: %v", err)}
	}

	return Result{
		Email:          email,
		Valid:          decoded.Status == "success",
		Deliverability: decoded.Deliverability,
		SpamTrap:       decoded.SpamTrap,
		Disposable:     decoded.Disposable,
		CatchAll:       decoded.CatchAll,
		Score:          decoded.Score,
	}
}

// VerifyBulk verifies a batch of addresses with rate-limit spacing.
func (c *Client) VerifyBulk(ctx context.Context, emails []string) BulkResult {
	bulk := BulkResult{
		TotalEmails:   len(emails),
		ValidEmails:   []string{},
		InvalidEmails: []string{},
		SpamTraps:     []string{},
		Disposable:    []string{},
		CatchAll:      []string{},
		Results:       make([]Result, 0, len(emails)),
	}

	for i, email := range emails {
		if i > 0 {
			select {
			case <-ctx.Done():
				return bulk
			case <-time.After(requestDelay):
			}
		}

		result := c.VerifySingle(ctx, email)
		bulk.Results = append(bulk.Results, result)

		if result.Valid {
			bulk.ValidEmails = append(bulk.ValidEmails, email)
		} else {
			bulk.InvalidEmails = append(bulk.InvalidEmails, email)
		}

		if result.SpamTrap {
			bulk.SpamTraps = append(bulk.SpamTraps, email)
		}

		if result.Disposable {
			bulk.Disposable = append(bulk.Disposable, email)
		}

		if result.CatchAll {
			bulk.CatchAll = append(bulk.CatchAll, email)
		}
	}

	if len(emails) > 0 {
		bulk.ValidationRate = float64(len(bulk.ValidEmails)) / float64(len(emails))
	}

	return bulk
}

// ValidateLeads enriches leads with verification results for their email
// addresses.
func (c *Client) ValidateLeads(ctx context.Context, leads []models.Lead) models.ValidatedLeads {
	emails := make([]string, 0, len(leads))

	for _, lead := range leads {
		if lead.Email != "" {
			emails = append(emails, lead.Email)
		}
	}

	if len(emails) == 0 {
		return models.ValidatedLeads{Leads: leads}
	}

	bulk := c.VerifyBulk(ctx, emails)

	byEmail := make(map[string]Result, len(bulk.Results))
	for _, result := range bulk.Results {
		byEmail[result.Email] = result
	}

	validated := make([]models.Lead, 0, len(leads))
	validCount := 0
	invalidCount := 0

	for _, lead := range leads {
		if result, verified := byEmail[lead.Email]; verified {
			lead.EmailValid = result.Valid
			lead.EmailScore = result.Score
			lead.IsSpamTrap = result.SpamTrap
			lead.IsDisposable = result.Disposable
			lead.IsCatchAll = result.CatchAll

			if result.Valid {
				validCount++
			} else {
				invalidCount++
			}
		}

		validated = append(validated, lead)
	}

	return models.ValidatedLeads{
		Leads:        validated,
		ValidCount:   validCount,
		InvalidCount: invalidCount,
		TotalCount:   len(emails),
	}
}
