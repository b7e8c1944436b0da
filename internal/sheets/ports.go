package sheets

import (
	"context"
	"time"

	"suryasakshi/internal/core"
)

// Ports for outbound adapters.
type (
	// ActivityWriter mirrors activity entries into a spreadsheet.
	ActivityWriter interface {
		AppendActivity(ctx context.Context, a core.Activity) (rowRef string, err error)
	}

	// SummaryWriter records a periodic dashboard snapshot.
	SummaryWriter interface {
		AppendSummary(ctx context.Context, s core.Summary, takenAt time.Time) (rowRef string, err error)
	}
)
