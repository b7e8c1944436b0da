package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"suryasakshi/internal/core"
	ports "suryasakshi/internal/sheets"
)

var (
	_ ports.ActivityWriter = (*Store)(nil)
	_ ports.SummaryWriter  = (*Store)(nil)
)

// Store keeps mirrored rows in memory. It stands in for Google Sheets when no
// spreadsheet is configured.
type Store struct {
	mu        sync.Mutex
	activity  []core.Activity
	summaries []SummaryRow
}

type SummaryRow struct {
	Summary core.Summary
	TakenAt time.Time
}

func New() *Store {
	return &Store{}
}

// AppendActivity stores the entry and returns a synthetic row reference.
func (s *Store) AppendActivity(_ context.Context, a core.Activity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, a)
	return fmt.Sprintf("mem:activity:%d", len(s.activity)), nil
}

func (s *Store) AppendSummary(_ context.Context, sum core.Summary, takenAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, SummaryRow{Summary: sum, TakenAt: takenAt})
	return fmt.Sprintf("mem:summary:%d", len(s.summaries)), nil
}

// Activity returns a copy of the mirrored entries in append order.
func (s *Store) Activity() []core.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Activity(nil), s.activity...)
}

func (s *Store) Summaries() []SummaryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SummaryRow(nil), s.summaries...)
}
