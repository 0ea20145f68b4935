package extract

import (
	"context"
	"log/slog"

	"github.com/pdiddy/wikiplace/internal/classes"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// trace carries per-record diagnostics. It is created once per record and
// checks the logger level once, so disabled tracing costs a bool test.
type trace struct {
	logger  *slog.Logger
	enabled bool
}

func newTrace(logger *slog.Logger, id string) trace {
	enabled := logger.Enabled(context.Background(), slog.LevelDebug)
	if enabled {
		logger = logger.With("entity", id)
	}
	return trace{logger: logger, enabled: enabled}
}

// skip records that a statement or the whole entity was ignored.
func (t trace) skip(prop, reason string) {
	if !t.enabled {
		return
	}
	t.logger.Debug("skipping", "property", prop, "reason", reason)
}

func (t trace) classified(c classes.Category) {
	if !t.enabled {
		return
	}
	t.logger.Debug("classified", "categories", c.String())
}

func (t trace) done(facts []types.Fact) {
	if !t.enabled {
		return
	}
	t.logger.Debug("extracted", "facts", len(facts), "kinds", summarize(facts))
}
