// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"os"

	"github.com/dukex/leadion/pkg/crew"
	"github.com/dukex/leadion/pkg/emailverify"
	"github.com/dukex/leadion/pkg/export"
	"github.com/dukex/leadion/pkg/registry"
)

// NewRegistry builds the agent registry with the built-in pipeline agents.
// The verification and export clients are configured from the environment and
// degrade gracefully when their API keys are absent.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	verifier := emailverify.NewClient(os.Getenv("EMAIL_VERIFY_API_KEY"))
	exporter := export.NewClient(os.Getenv("WORKSPACE_API_TOKEN"))

	crew.RegisterAgents(reg, verifier, exporter)

	return reg
}
