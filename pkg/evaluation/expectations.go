package evaluation

// AgentExpectation describes what a well-behaved agent output looks like,
// used to ground the evaluation prompt.
type AgentExpectation struct {
	Description     string
	ExpectedOutputs []string
	QualityMetrics  []string
}

var agentExpectations = map[string]AgentExpectation{
	"scraper_agent": {
		Description:     "Extracts leads from LinkedIn.com within business domain",
		ExpectedOutputs: []string{"leads", "profiles", "contact_info"},
		QualityMetrics:  []string{"accuracy", "relevance", "completeness"},
	},
	"email_validator_agent": {
		Description:     "Validates lead email addresses for quality",
		ExpectedOutputs: []string{"validated_leads", "validation_summary", "filtered_results"},
		QualityMetrics:  []string{"accuracy", "completeness", "filtering_effectiveness"},
	},
	"data_analytics_agent": {
		Description:     "Organizes and stores lead data",
		ExpectedOutputs: []string{"stored_data", "file_urls", "confirmation"},
		QualityMetrics:  []string{"completeness", "organization", "accessibility"},
	},
}

// agentOrder keeps evaluation output deterministic.
var agentOrder = []string{"scraper_agent", "email_validator_agent", "data_analytics_agent"}

// Expectation returns the expectation for an agent, or a zero value for
// unknown agents.
func Expectation(agentName string) AgentExpectation {
	return agentExpectations[agentName]
}

// AgentNames lists all agents with registered expectations, in pipeline
// order.
func AgentNames() []string {
	return agentOrder
}
