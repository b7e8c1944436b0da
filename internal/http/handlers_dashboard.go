package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/log"
)

var errNoTemplates = errors.New("templates not loaded")

// handleDashboard returns the period summary: cards, pies and monthly silage
// weights.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := s.state.period(currentUser(r.Context()), ParsePeriodParams(r.URL.Query()))
	NewResponse().JSON(s.ledger.Dashboard.Summary(r.Context(), p)).Write(w)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	acts, err := s.ledger.RecentActivity(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(acts).Write(w)
}

// handleGetPeriod returns the caller's current selection.
func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	p := s.state.period(currentUser(r.Context()), PeriodParams{})
	NewResponse().JSON(periodView(p)).Write(w)
}

// handleSetPeriod overwrites year and/or month from the body.
func (s *Server) handleSetPeriod(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	params := ParsePeriodParams(map[string][]string{
		"year":  {parser.Get("year")},
		"month": {parser.Get("month")},
	})
	p := s.state.period(currentUser(r.Context()), params)
	NewResponse().JSON(periodView(p)).Write(w)
}

type periodJSON struct {
	core.Period
	MonthName  string `json:"month_name"`
	Comparison string `json:"comparison"`
}

func periodView(p core.Period) periodJSON {
	return periodJSON{Period: p, MonthName: p.MonthName(), Comparison: p.ComparisonLabel()}
}

type monthOption struct {
	Value    int
	Name     string
	Selected bool
}

type categoryLink struct {
	Slug  string
	Label string
}

type dashboardPage struct {
	User       string
	Period     core.Period
	Years      []int
	Months     []monthOption
	Summary    core.Summary
	Activity   []core.Activity
	Categories []categoryLink
	Error      string
}

// handleIndex renders the dashboard for the caller's selected period.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)
	p := s.state.period(user, ParsePeriodParams(r.URL.Query()))

	data := dashboardPage{
		User:    user,
		Period:  p,
		Years:   yearOptions(time.Now().Year(), p.Year),
		Months:  monthOptions(p),
		Summary: s.ledger.Dashboard.Summary(ctx, p),
	}
	for _, c := range core.Categories() {
		data.Categories = append(data.Categories, categoryLink{Slug: c.String(), Label: c.Label()})
	}

	acts, err := s.ledger.RecentActivity(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Activity feed unavailable", log.FieldError, err)
		data.Error = "Recent activity could not be loaded."
	}
	data.Activity = acts

	s.render(w, r, http.StatusOK, "index.html", data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, "")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "login.html", struct{ Error string }{Error: msg})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Cannot render page", "template", name, log.FieldError, errNoTemplates)
		http.Error(w, errNoTemplates.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed", "template", name, log.FieldError, err)
	}
}

// yearOptions lists the last five years, plus selected when it is outside
// that range.
func yearOptions(current, selected int) []int {
	years := make([]int, 0, 6)
	for y := current; y > current-5; y-- {
		years = append(years, y)
	}
	if selected > current || selected <= current-5 {
		years = append(years, selected)
	}
	return years
}

func monthOptions(p core.Period) []monthOption {
	opts := make([]monthOption, 0, 13)
	for m := 0; m <= core.FullYear; m++ {
		name := core.Period{Month: m}.MonthName()
		if m == core.FullYear {
			name = "Full Year"
		}
		opts = append(opts, monthOption{Value: m, Name: name, Selected: m == p.Month})
	}
	return opts
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and the record store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "store": "ok"}
	if s.templates == nil {
		checks["templates"] = "failed: " + errNoTemplates.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if _, err := s.ledger.RecentActivity(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewResponse().Status(code).JSON(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in a Prometheus-like
// text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.loginLimiter.GetMetrics()
	secMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP login_rate_limited_total Login attempts rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE login_rate_limited_total counter\n")
	fmt.Fprintf(w, "login_rate_limited_total %d\n\n", limitMetrics.Rejected)

	fmt.Fprintf(w, "# HELP login_rate_limit_clients Clients tracked by the login rate limiter\n")
	fmt.Fprintf(w, "# TYPE login_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "login_rate_limit_clients %d\n\n", limitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Requests matching probe patterns\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", secMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Time since server start\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.startedAt).Seconds())
}
