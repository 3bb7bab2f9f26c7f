package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetup_LevelParsing(t *testing.T) {
	Setup("leadion-api", "debug")
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))

	Setup("leadion-api", "warning")
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelWarn))

	Setup("leadion-api", "error")
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelWarn))

	// Unknown levels fall back to info.
	Setup("leadion-api", "nonsense")
	assert.True(t, slog.Default().Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelDebug))
}
