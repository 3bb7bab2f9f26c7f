package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/leadion/pkg/persistence"
	"github.com/dukex/leadion/pkg/persistence/file"
	"github.com/dukex/leadion/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend from the database URL scheme:
// postgres:// (or postgresql://) opens PostgreSQL, anything else falls back to
// the JSON file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to open PostgreSQL persistence: %w", err))
		}

		return store
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	return parts[0]
}
