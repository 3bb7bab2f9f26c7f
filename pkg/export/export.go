// Package export pushes finished campaign results to external workspace
// services: a spreadsheet of leads and a summary document. Export is a best
// effort delivery; a missing token yields placeholder references so the
// pipeline can complete without workspace access.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/models"
)

const (
	defaultBaseURL = "https://workspace.leadion.dev/api"
	requestTimeout = 30 * time.Second

	placeholderSpreadsheetID = "placeholder_spreadsheet_id"
	placeholderDocumentID    = "placeholder_document_id"
)

// SpreadsheetRef identifies an exported lead spreadsheet.
type SpreadsheetRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// DocumentRef identifies an exported summary document.
type DocumentRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client exports campaign results to the workspace service.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds an export client. An empty token produces a client that
// returns placeholder references.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.WithModule("export"),
	}
}

// WithBaseURL points the client at a non-default service endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL

	return c
}

// Configured reports whether a workspace token is available.
func (c *Client) Configured() bool {
	return c.token != ""
}

type spreadsheetRequest struct {
	Title string        `json:"title"`
	Leads []models.Lead `json:"leads"`
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type exportResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ExportLeads creates a spreadsheet holding the campaign's leads.
func (c *Client) ExportLeads(ctx context.Context, title string, leads []models.Lead) (*SpreadsheetRef, error) {
	if !c.Configured() {
		c.logger.Warn("Workspace token not configured, returning placeholder spreadsheet")

		return &SpreadsheetRef{ID: placeholderSpreadsheetID}, nil
	}

	var response exportResponse

	err := c.post(ctx, "/spreadsheets", spreadsheetRequest{Title: title, Leads: leads}, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to export leads: %w", err)
	}

	return &SpreadsheetRef{ID: response.ID, URL: response.URL}, nil
}

// ExportSummary creates a document summarizing the campaign outcome.
func (c *Client) ExportSummary(ctx context.Context, title, content string) (*DocumentRef, error) {
	if !c.Configured() {
		c.logger.Warn("Workspace token not configured, returning placeholder document")

		return &DocumentRef{ID: placeholderDocumentID}, nil
	}

	var response exportResponse

	err := c.post(ctx, "/documents", documentRequest{Title: title, Content: content}, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to export summary: %w", err)
	}

	return &DocumentRef{ID: response.ID, URL: response.URL}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal export payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create export request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+c.token)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("export request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusCreated {
		return fmt.Errorf("export service returned status %d", response.StatusCode)
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode export response: %w", err)
	}

	return nil
}
