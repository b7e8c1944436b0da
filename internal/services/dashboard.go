package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"suryasakshi/internal/core"

	gocache "github.com/patrickmn/go-cache"
)

const (
	summaryTTL     = 5 * time.Minute
	summaryCleanup = 10 * time.Minute
)

// DashboardService computes period summaries and caches them until the next
// mutation. A summary whose load overlapped a mutation is returned but not
// cached.
type DashboardService struct {
	loader *Loader
	cache  *gocache.Cache

	mu         sync.Mutex
	generation uint64
}

func NewDashboardService(loader *Loader) *DashboardService {
	return &DashboardService{
		loader: loader,
		cache:  gocache.New(summaryTTL, summaryCleanup),
	}
}

func (d *DashboardService) Summary(ctx context.Context, p core.Period) core.Summary {
	key := fmt.Sprintf("summary:%d:%d", p.Year, p.Month)
	if v, ok := d.cache.Get(key); ok {
		slog.DebugContext(ctx, "Dashboard cache hit", "year", p.Year, "month", p.Month)
		return v.(core.Summary)
	}

	d.mu.Lock()
	gen := d.generation
	d.mu.Unlock()

	s := core.Summarize(d.loader.Load(ctx), p)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation != gen {
		slog.DebugContext(ctx, "Records changed during summary load, not caching", "year", p.Year, "month", p.Month)
		return s
	}
	d.cache.Set(key, s, gocache.DefaultExpiration)
	return s
}

// Invalidate drops every cached summary and any summary still being loaded.
func (d *DashboardService) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.cache.Flush()
}
