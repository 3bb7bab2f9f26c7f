// Package models defines the domain types for the lead-generation pipeline:
// leads, campaigns, users, sessions, runs, and analytics records.
package models

// Lead is a prospective contact record produced by the scraping stage and
// enriched by the email-finding and validation stages.
type Lead struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`

	// Validation enrichment, populated by the validate_lead_emails stage.
	EmailValid   bool `json:"email_valid,omitempty"`
	EmailScore   int  `json:"email_score,omitempty"`
	IsSpamTrap   bool `json:"is_spam_trap,omitempty"`
	IsDisposable bool `json:"is_disposable,omitempty"`
	IsCatchAll   bool `json:"is_catch_all,omitempty"`
}

// LeadList wraps a collection of leads. Engine outputs frequently use this
// shape; the analytics resolver recognizes it as a leads-carrying object.
type LeadList struct {
	Leads []Lead `json:"leads"`
}

// ValidatedLeads is the outcome of running email validation over a lead list.
type ValidatedLeads struct {
	Leads        []Lead `json:"leads"`
	ValidCount   int    `json:"valid_count"`
	InvalidCount int    `json:"invalid_count"`
	TotalCount   int    `json:"total_count"`
}
