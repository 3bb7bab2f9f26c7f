package crew

import (
	"github.com/dukex/leadion/pkg/emailverify"
	"github.com/dukex/leadion/pkg/export"
	"github.com/dukex/leadion/pkg/protocol"
	"github.com/dukex/leadion/pkg/registry"
)

// RegisterAgents registers the built-in pipeline agent factories.
func RegisterAgents(reg *registry.Registry, verifier *emailverify.Client, exporter *export.Client) {
	reg.RegisterAgent(&ScraperAgentFactory{})
	reg.RegisterAgent(&EmailFinderAgentFactory{})
	reg.RegisterAgent(&ValidatorAgentFactory{Verifier: verifier})
	reg.RegisterAgent(&SaverAgentFactory{Exporter: exporter})
}

type ScraperAgentFactory struct{}

func (f *ScraperAgentFactory) ID() string { return "scraper_agent" }

func (f *ScraperAgentFactory) Create(config map[string]any) (protocol.Agent, error) {
	serviceURL, _ := config["service_url"].(string)
	token, _ := config["api_token"].(string)

	return NewScraperAgent(serviceURL, token), nil
}

type EmailFinderAgentFactory struct{}

func (f *EmailFinderAgentFactory) ID() string { return "email_finder_agent" }

func (f *EmailFinderAgentFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return NewEmailFinderAgent(), nil
}

type ValidatorAgentFactory struct {
	Verifier *emailverify.Client
}

func (f *ValidatorAgentFactory) ID() string { return "email_validator_agent" }

func (f *ValidatorAgentFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return NewValidatorAgent(f.Verifier), nil
}

type SaverAgentFactory struct {
	Exporter *export.Client
}

func (f *SaverAgentFactory) ID() string { return "data_analytics_agent" }

func (f *SaverAgentFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return NewSaverAgent(f.Exporter), nil
}
