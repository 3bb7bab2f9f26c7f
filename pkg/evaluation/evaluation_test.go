package evaluation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluationServer(t *testing.T, scores map[string]float64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/evaluate", r.URL.Path)
		assert.Equal(t, "Bearer eval-key", r.Header.Get("Authorization"))

		require.NoError(t, json.NewEncoder(w).Encode(evaluateResponse{Scores: scores}))
	}))
}

func TestEvaluateWorkflow(t *testing.T) {
	server := evaluationServer(t, map[string]float64{
		"AnswerRelevancy":   0.9,
		"Faithfulness":      0.9,
		"ContextRelevancy":  0.9,
		"ContextRecall":     0.9,
		"AnswerCorrectness": 0.9,
	})
	defer server.Close()

	client := NewClient("eval-key").WithBaseURL(server.URL)

	evaluation, err := client.EvaluateWorkflow(t.Context(), map[string]any{
		"scraper_agent":        []any{"a", "b"},
		"data_analytics_agent": map[string]any{"leads_found": 2},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.9, evaluation.Score, 0.0001)
	assert.True(t, evaluation.Passed)
	assert.InDelta(t, 0.7, evaluation.Threshold, 0.0001)
	assert.Equal(t, 2, evaluation.Summary["leads_generated"])
	assert.Equal(t, true, evaluation.Summary["data_stored"])
	assert.NotEmpty(t, evaluation.Feedback)
}

func TestEvaluateWorkflow_BelowThreshold(t *testing.T) {
	server := evaluationServer(t, map[string]float64{
		"AnswerRelevancy": 0.4,
		"Faithfulness":    0.4,
	})
	defer server.Close()

	client := NewClient("eval-key").WithBaseURL(server.URL)

	evaluation, err := client.EvaluateWorkflow(t.Context(), map[string]any{})
	require.NoError(t, err)

	assert.InDelta(t, 0.4, evaluation.Score, 0.0001)
	assert.False(t, evaluation.Passed)
}

func TestEvaluateWorkflow_EmptyScoresNeutral(t *testing.T) {
	server := evaluationServer(t, nil)
	defer server.Close()

	client := NewClient("eval-key").WithBaseURL(server.URL)

	evaluation, err := client.EvaluateWorkflow(t.Context(), map[string]any{})
	require.NoError(t, err)

	// The neutral fallback scores every metric at 0.5.
	assert.InDelta(t, 0.5, evaluation.Score, 0.0001)
	assert.False(t, evaluation.Passed)
}

func TestEvaluateWorkflow_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("eval-key").WithBaseURL(server.URL)

	_, err := client.EvaluateWorkflow(t.Context(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestEvaluateAllAgents_SkipsAbsentAgents(t *testing.T) {
	server := evaluationServer(t, map[string]float64{"AnswerRelevancy": 0.8})
	defer server.Close()

	client := NewClient("eval-key").WithBaseURL(server.URL)

	evaluations, err := client.EvaluateAllAgents(t.Context(), map[string]any{
		"scraper_agent": []any{"a"},
	})
	require.NoError(t, err)
	require.Len(t, evaluations, 1)
	assert.Equal(t, "scraper_agent", evaluations[0].Agent)
}

func TestOverallScore_Weighting(t *testing.T) {
	// A single weighted metric scores as itself.
	assert.InDelta(t, 0.8, overallScore(map[string]float64{"AnswerRelevancy": 0.8}), 0.0001)

	// Unknown metrics contribute with the small default weight.
	score := overallScore(map[string]float64{
		"AnswerRelevancy": 1.0, // weight 0.25
		"Novelty":         0.0, // weight 0.1
	})
	assert.InDelta(t, 0.25/0.35, score, 0.0001)

	// No scores at all yields the neutral midpoint.
	assert.InDelta(t, 0.5, overallScore(nil), 0.0001)
}

func TestExpectations(t *testing.T) {
	names := AgentNames()
	assert.Equal(t, []string{"scraper_agent", "email_validator_agent", "data_analytics_agent"}, names)

	expectation := Expectation("scraper_agent")
	assert.NotEmpty(t, expectation.Description)
	assert.NotEmpty(t, expectation.ExpectedOutputs)
}

func TestFeedbackTiers(t *testing.T) {
	assert.Contains(t, WorkflowFeedback(0.95), "Excellent")
	assert.NotEqual(t, WorkflowFeedback(0.95), WorkflowFeedback(0.75))
	assert.NotEqual(t, WorkflowFeedback(0.75), WorkflowFeedback(0.55))
	assert.NotEqual(t, WorkflowFeedback(0.55), WorkflowFeedback(0.2))
}
