package emailverify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/leadion/pkg/models"
)

func verifyServer(t *testing.T, responses map[string]verifyResponse) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("secret"))

		response, known := responses[r.URL.Query().Get("email")]
		if !known {
			response = verifyResponse{Status: "failed"}
		}

		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
}

func TestVerifySingle(t *testing.T) {
	server := verifyServer(t, map[string]verifyResponse{
		"ada@engines.com": {Status: "success", Deliverability: "deliverable", Score: 95},
		"trap@spam.com":   {Status: "failed", SpamTrap: true},
	})
	defer server.Close()

	client := NewClient("secret").WithBaseURL(server.URL)

	result := client.VerifySingle(t.Context(), "ada@engines.com")
	assert.True(t, result.Valid)
	assert.Equal(t, 95, result.Score)
	assert.Empty(t, result.Error)

	result = client.VerifySingle(t.Context(), "trap@spam.com")
	assert.False(t, result.Valid)
	assert.True(t, result.SpamTrap)
}

func TestVerifySingle_Unconfigured(t *testing.T) {
	client := NewClient("")

	result := client.VerifySingle(t.Context(), "ada@engines.com")
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "not configured")
}

func TestVerifySingle_ServiceFailureReportedInResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("secret").WithBaseURL(server.URL)

	result := client.VerifySingle(t.Context(), "ada@engines.com")
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "429")
}

func TestVerifyBulk(t *testing.T) {
	server := verifyServer(t, map[string]verifyResponse{
		"ada@engines.com": {Status: "success", Score: 90},
		"bad@nowhere.com": {Status: "failed", Disposable: true},
	})
	defer server.Close()

	client := NewClient("secret").WithBaseURL(server.URL)

	bulk := client.VerifyBulk(t.Context(), []string{"ada@engines.com", "bad@nowhere.com"})

	assert.Equal(t, 2, bulk.TotalEmails)
	assert.Equal(t, []string{"ada@engines.com"}, bulk.ValidEmails)
	assert.Equal(t, []string{"bad@nowhere.com"}, bulk.InvalidEmails)
	assert.Equal(t, []string{"bad@nowhere.com"}, bulk.Disposable)
	assert.InDelta(t, 0.5, bulk.ValidationRate, 0.0001)
	assert.Len(t, bulk.Results, 2)
}

func TestValidateLeads(t *testing.T) {
	server := verifyServer(t, map[string]verifyResponse{
		"ada@engines.com": {Status: "success", Score: 88},
	})
	defer server.Close()

	client := NewClient("secret").WithBaseURL(server.URL)

	validated := client.ValidateLeads(t.Context(), []models.Lead{
		{Name: "Ada", Email: "ada@engines.com"},
		{Name: "Bob", Email: "bob@gone.com"},
		{Name: "NoEmail"},
	})

	require.Len(t, validated.Leads, 3)
	assert.True(t, validated.Leads[0].EmailValid)
	assert.Equal(t, 88, validated.Leads[0].EmailScore)
	assert.False(t, validated.Leads[1].EmailValid)
	assert.Equal(t, 1, validated.ValidCount)
	assert.Equal(t, 1, validated.InvalidCount)
	assert.Equal(t, 2, validated.TotalCount)
}

func TestValidateLeads_NoEmails(t *testing.T) {
	client := NewClient("secret")

	leads := []models.Lead{{Name: "NoEmail"}}
	validated := client.ValidateLeads(t.Context(), leads)

	assert.Equal(t, leads, validated.Leads)
	assert.Equal(t, 0, validated.TotalCount)
}
