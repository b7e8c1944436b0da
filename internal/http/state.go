package http

import (
	"log/slog"
	"sync"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/log"
)

// appState owns the per-user UI selections. Handlers read and write it only
// through its methods.
type appState struct {
	mu        sync.Mutex
	selectors map[string]*core.Selector
	now       func() time.Time
}

func newAppState() *appState {
	return &appState{
		selectors: make(map[string]*core.Selector),
		now:       time.Now,
	}
}

// selector returns user's period selector, starting at the current month.
func (s *appState) selector(user string) *core.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.selectors[user]
	if !ok {
		sel = core.NewSelector(core.CurrentPeriod(s.now()))
		sel.Subscribe(func(p core.Period) {
			slog.Debug("Period selection changed",
				log.FieldUser, user, log.FieldYear, p.Year, log.FieldMonth, p.MonthName())
		})
		s.selectors[user] = sel
	}
	return sel
}

// period applies any overrides to user's selection and returns the result.
func (s *appState) period(user string, params PeriodParams) core.Period {
	sel := s.selector(user)
	if params.Year != nil {
		sel.SetYear(*params.Year)
	}
	if params.Month != nil {
		sel.SetMonth(*params.Month)
	}
	return sel.Period()
}

// forget drops user's selections, e.g. on logout.
func (s *appState) forget(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selectors, user)
}
