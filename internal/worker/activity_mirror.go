package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"suryasakshi/internal/amqp"
	"suryasakshi/internal/sheets"
)

// ActivityMirror copies activity messages from the queue into the
// spreadsheet activity tab.
type ActivityMirror struct {
	sheets sheets.ActivityWriter
}

func NewActivityMirror(w sheets.ActivityWriter) *ActivityMirror {
	return &ActivityMirror{sheets: w}
}

// HandleActivity appends one row per message. A returned error requeues the
// message.
func (m *ActivityMirror) HandleActivity(ctx context.Context, msg *amqp.ActivityMessage) error {
	if msg == nil {
		return errors.New("nil activity message")
	}

	slog.InfoContext(ctx, "Processing activity message",
		"activity_id", msg.ActivityID,
		"action", msg.Action,
		"category", msg.Category)

	ref, err := m.sheets.AppendActivity(ctx, msg.Activity())
	if err != nil {
		return fmt.Errorf("append activity to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored activity",
		"activity_id", msg.ActivityID,
		"sheets_ref", ref)
	return nil
}
