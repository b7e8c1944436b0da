package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"suryasakshi/internal/amqp"
	"suryasakshi/internal/core"
	"suryasakshi/internal/sheets/memory"

	"github.com/shopspring/decimal"
)

type failingSheets struct{}

func (failingSheets) AppendActivity(context.Context, core.Activity) (string, error) {
	return "", errors.New("quota exceeded")
}

func (failingSheets) AppendSummary(context.Context, core.Summary, time.Time) (string, error) {
	return "", errors.New("quota exceeded")
}

type staticSource core.RecordSet

func (s staticSource) Load(context.Context) core.RecordSet { return core.RecordSet(s) }

func TestActivityMirror_HandleActivity(t *testing.T) {
	store := memory.New()
	m := NewActivityMirror(store)

	msg := amqp.NewActivityMessage(core.Activity{
		ID:        9,
		UserName:  "ADMIN",
		Action:    core.ActionUpdated,
		Category:  core.SoybeanSales,
		Target:    "soybean sale to Ram",
		CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	})
	if err := m.HandleActivity(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := store.Activity()
	if len(got) != 1 || got[0].ID != 9 || got[0].Target != "soybean sale to Ram" {
		t.Fatalf("mirrored = %+v", got)
	}

	if err := m.HandleActivity(context.Background(), nil); err == nil {
		t.Fatal("nil message should fail")
	}
}

func TestActivityMirror_WriterFailureRequeues(t *testing.T) {
	m := NewActivityMirror(failingSheets{})
	msg := amqp.NewActivityMessage(core.Activity{UserName: "ADMIN", Action: core.ActionCreated})
	if err := m.HandleActivity(context.Background(), msg); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestNewSummaryScheduler_Schedule(t *testing.T) {
	s, err := NewSummaryScheduler(staticSource{}, memory.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if s.schedule != DefaultSummarySchedule {
		t.Errorf("schedule = %q", s.schedule)
	}
	if _, err := NewSummaryScheduler(staticSource{}, memory.New(), "every tuesday"); err == nil {
		t.Error("invalid schedule should be rejected")
	}
}

func TestSummaryScheduler_RunOnce(t *testing.T) {
	store := memory.New()
	source := staticSource{
		OtherExpenses: []core.OtherExpense{{
			ExpenseName: "Diesel",
			ExpenseDate: core.NewDate(2024, 5, 3),
			Amount:      decimal.NewFromInt(800),
		}},
	}
	s, err := NewSummaryScheduler(source, store, DefaultSummarySchedule)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2024, 5, 31, 23, 0, 0, 0, time.UTC) }

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := store.Summaries()
	if len(rows) != 1 {
		t.Fatalf("expected one summary, got %d", len(rows))
	}
	sum := rows[0].Summary
	if sum.Period != (core.Period{Year: 2024, Month: 4}) {
		t.Errorf("period = %+v", sum.Period)
	}
	if !sum.Cards[2].Amount.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expenses card = %s", sum.Cards[2].Amount)
	}

	failing, _ := NewSummaryScheduler(source, failingSheets{}, "")
	if err := failing.RunOnce(context.Background()); err == nil {
		t.Error("writer failure should be returned")
	}
}

func TestSummaryScheduler_Lifecycle(t *testing.T) {
	s, err := NewSummaryScheduler(staticSource{}, memory.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop before start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("should be running")
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("should be stopped")
	}
}
