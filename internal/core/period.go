package core

import (
	"slices"
	"sync"
	"time"
)

// FullYear is the month sentinel selecting the whole calendar year.
const FullYear = 12

type (
	// Period is the selected year and month. Month is 0-based (0 = January)
	// or FullYear.
	Period struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}

	// Window is a resolved aggregation span. A nil Month covers the whole year.
	Window struct {
		Year  int  `json:"year"`
		Month *int `json:"month,omitempty"`
	}
)

// CurrentPeriod returns the period containing t.
func CurrentPeriod(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month()) - 1}
}

// IsFullYear reports whether the period aggregates the whole calendar year.
func (p Period) IsFullYear() bool {
	return p.Month == FullYear
}

// MonthName returns the English month name, or "Full-Year" for the sentinel.
func (p Period) MonthName() string {
	if p.IsFullYear() {
		return "Full-Year"
	}
	if p.Month < 0 || p.Month > 11 {
		return ""
	}
	return time.Month(p.Month + 1).String()
}

// ComparisonLabel is the phrase shown next to a percentage change.
func (p Period) ComparisonLabel() string {
	if p.IsFullYear() {
		return "from last year"
	}
	return "from last month"
}

// ResolvePeriods returns the current window and the comparison window. The
// full-year view compares against the previous year; a single month compares
// against the month before it, rolling the year back for January.
func ResolvePeriods(p Period) (current, previous Window) {
	if p.IsFullYear() {
		return Window{Year: p.Year}, Window{Year: p.Year - 1}
	}
	month := p.Month
	prevMonth, prevYear := month-1, p.Year
	if prevMonth < 0 {
		prevMonth = 11
		prevYear--
	}
	return Window{Year: p.Year, Month: &month}, Window{Year: prevYear, Month: &prevMonth}
}

// Contains reports whether t falls inside the window. Zero times never match.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() || t.Year() != w.Year {
		return false
	}
	return w.Month == nil || int(t.Month())-1 == *w.Month
}

// Selector holds a user's selected period and notifies subscribers when it
// changes. Setters overwrite unconditionally.
type Selector struct {
	mu          sync.RWMutex
	period      Period
	subscribers []func(Period)
}

func NewSelector(initial Period) *Selector {
	return &Selector{period: initial}
}

func (s *Selector) Period() Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

func (s *Selector) SetYear(year int) {
	s.update(func(p *Period) { p.Year = year })
}

func (s *Selector) SetMonth(month int) {
	s.update(func(p *Period) { p.Month = month })
}

// Subscribe registers fn to be called after every change.
func (s *Selector) Subscribe(fn func(Period)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Selector) update(apply func(*Period)) {
	s.mu.Lock()
	apply(&s.period)
	p := s.period
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
}
