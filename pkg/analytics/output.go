// Package analytics extracts normalized lead counts and success signals from
// the heterogeneous outputs produced by pipeline agents, and aggregates them
// into per-agent, per-task and per-workflow summaries.
package analytics

import "github.com/dukex/leadion/pkg/models"

// Kind discriminates the shape of an agent output. Outputs arrive untyped
// from the engine; Resolve classifies them exactly once so every consumer
// works from the same discriminator instead of re-inspecting the raw value.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindMapping
	KindSequence
	KindLeadList
)

// Output is a resolved agent output. Only the field matching Kind is set.
type Output struct {
	Kind     Kind
	Text     string
	Mapping  map[string]any
	Sequence []any
	Leads    []models.Lead
}

// Resolve classifies a raw agent output into a tagged Output.
func Resolve(raw any) Output {
	switch value := raw.(type) {
	case string:
		return Output{Kind: KindText, Text: value}
	case map[string]any:
		return Output{Kind: KindMapping, Mapping: value}
	case []any:
		return Output{Kind: KindSequence, Sequence: value}
	case []models.Lead:
		return Output{Kind: KindLeadList, Leads: value}
	case models.LeadList:
		return Output{Kind: KindLeadList, Leads: value.Leads}
	case *models.LeadList:
		if value == nil {
			return Output{Kind: KindUnknown}
		}

		return Output{Kind: KindLeadList, Leads: value.Leads}
	case models.ValidatedLeads:
		return Output{Kind: KindLeadList, Leads: value.Leads}
	case *models.ValidatedLeads:
		if value == nil {
			return Output{Kind: KindUnknown}
		}

		return Output{Kind: KindLeadList, Leads: value.Leads}
	default:
		return Output{Kind: KindUnknown}
	}
}
