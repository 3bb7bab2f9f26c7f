// Package evaluation scores finished pipeline runs against quality metrics
// using an external evaluation service. Evaluation is optional: clients are
// only constructed when an API key is configured, and failures degrade to an
// empty evaluation section rather than failing the run.
package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/leadion/pkg/log"
)

const (
	defaultBaseURL   = "https://api.eval.leadion.dev"
	defaultThreshold = 0.7
	requestTimeout   = 60 * time.Second
)

// metricWeights weight each quality metric's contribution to the overall
// score. Unknown metrics returned by the service get a small default weight.
var metricWeights = map[string]float64{
	"AnswerRelevancy":   0.25,
	"Faithfulness":      0.25,
	"ContextRelevancy":  0.2,
	"ContextRecall":     0.15,
	"AnswerCorrectness": 0.15,
}

const defaultMetricWeight = 0.1

// WorkflowEvaluation is the scored assessment of one complete run.
type WorkflowEvaluation struct {
	Score          float64            `json:"score"`
	Passed         bool               `json:"passed"`
	Threshold      float64            `json:"threshold"`
	Feedback       string             `json:"feedback"`
	DetailedScores map[string]float64 `json:"detailed_scores"`
	Summary        map[string]any     `json:"summary,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// AgentEvaluation is the scored assessment of one agent's output.
type AgentEvaluation struct {
	Agent          string             `json:"agent"`
	Task           string             `json:"task"`
	Score          float64            `json:"score"`
	Passed         bool               `json:"passed"`
	Threshold      float64            `json:"threshold"`
	Feedback       string             `json:"feedback"`
	DetailedScores map[string]float64 `json:"detailed_scores"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Client talks to the evaluation service.
type Client struct {
	apiKey     string
	baseURL    string
	threshold  float64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds an evaluation client. apiKey must be non-empty; callers
// that have no key should not construct a client at all.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		threshold:  defaultThreshold,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.WithModule("evaluation"),
	}
}

// WithBaseURL points the client at a non-default service endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL

	return c
}

type evaluateRequest struct {
	Input   string         `json:"input"`
	Output  any            `json:"output"`
	Context map[string]any `json:"context,omitempty"`
	Metrics []string       `json:"metrics"`
}

type evaluateResponse struct {
	Scores map[string]float64 `json:"scores"`
}

// EvaluateWorkflow scores the full run result.
func (c *Client) EvaluateWorkflow(ctx context.Context, result map[string]any) (*WorkflowEvaluation, error) {
	summary := summarizeResult(result)

	scores, err := c.evaluate(ctx, evaluateRequest{
		Input:   "Evaluate the complete lead-generation workflow result",
		Output:  result,
		Context: summary,
		Metrics: metricNames(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate workflow: %w", err)
	}

	score := overallScore(scores)

	return &WorkflowEvaluation{
		Score:          score,
		Passed:         score >= c.threshold,
		Threshold:      c.threshold,
		Feedback:       WorkflowFeedback(score),
		DetailedScores: scores,
		Summary:        summary,
		Timestamp:      time.Now().UTC(),
	}, nil
}

// EvaluateAgent scores a single agent's output.
func (c *Client) EvaluateAgent(ctx context.Context, agentName, taskName string, output any) (*AgentEvaluation, error) {
	expectation := Expectation(agentName)

	scores, err := c.evaluate(ctx, evaluateRequest{
		Input:  expectation.Description,
		Output: output,
		Context: map[string]any{
			"expected_outputs": expectation.ExpectedOutputs,
			"quality_metrics":  expectation.QualityMetrics,
		},
		Metrics: metricNames(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate agent %s: %w", agentName, err)
	}

	score := overallScore(scores)

	return &AgentEvaluation{
		Agent:          agentName,
		Task:           taskName,
		Score:          score,
		Passed:         score >= c.threshold,
		Threshold:      c.threshold,
		Feedback:       AgentFeedback(score, agentName, taskName),
		DetailedScores: scores,
		Timestamp:      time.Now().UTC(),
	}, nil
}

// EvaluateAllAgents scores every known agent that produced output in the run
// result. Agents that fail to evaluate are logged and skipped.
func (c *Client) EvaluateAllAgents(ctx context.Context, result map[string]any) ([]AgentEvaluation, error) {
	evaluations := make([]AgentEvaluation, 0, len(AgentNames()))

	for _, agentName := range AgentNames() {
		output, present := result[agentName]
		if !present {
			continue
		}

		evaluation, err := c.EvaluateAgent(ctx, agentName, agentName, output)
		if err != nil {
			c.logger.Error("Agent evaluation failed", "agent", agentName, "error", err)

			continue
		}

		evaluations = append(evaluations, *evaluation)
	}

	return evaluations, nil
}

func (c *Client) evaluate(ctx context.Context, request evaluateRequest) (map[string]float64, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluation request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation request: %w", err)
	}

	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("evaluation request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("evaluation service returned status %d", response.StatusCode)
	}

	var decoded evaluateResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation response: %w", err)
	}

	if len(decoded.Scores) == 0 {
		return neutralScores(), nil
	}

	return decoded.Scores, nil
}

// overallScore computes the weighted average of the detailed metric scores.
func overallScore(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.5
	}

	totalScore := 0.0
	totalWeight := 0.0

	for metricName, score := range scores {
		weight, known := metricWeights[metricName]
		if !known {
			weight = defaultMetricWeight
		}

		totalScore += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.5
	}

	return totalScore / totalWeight
}

func metricNames() []string {
	names := make([]string, 0, len(metricWeights))
	for name := range metricWeights {
		names = append(names, name)
	}

	return names
}

// neutralScores stands in when the service returns no per-metric detail.
func neutralScores() map[string]float64 {
	scores := make(map[string]float64, len(metricWeights))
	for name := range metricWeights {
		scores[name] = 0.5
	}

	return scores
}

// summarizeResult extracts the headline facts about a run result that the
// evaluation prompt is grounded on.
func summarizeResult(result map[string]any) map[string]any {
	summary := map[string]any{
		"tasks_completed":  []string{},
		"leads_generated":  0,
		"emails_validated": 0,
		"data_stored":      false,
	}

	completed := []string{}

	for _, agentName := range AgentNames() {
		if _, present := result[agentName]; present {
			completed = append(completed, agentName)
		}
	}

	summary["tasks_completed"] = completed

	if scraped, present := result["scraper_agent"]; present {
		summary["leads_generated"] = sequenceLength(scraped)
	}

	if validated, present := result["email_validator_agent"]; present {
		summary["emails_validated"] = sequenceLength(validated)
	}

	if _, present := result["data_analytics_agent"]; present {
		summary["data_stored"] = true
	}

	return summary
}

func sequenceLength(value any) int {
	switch typed := value.(type) {
	case []any:
		return len(typed)
	case map[string]any:
		if leads, ok := typed["leads"].([]any); ok {
			return len(leads)
		}
	}

	return 0
}
