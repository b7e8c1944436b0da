package services

import (
	"context"
	"log/slog"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"

	"golang.org/x/sync/errgroup"
)

// Repositories groups the stores of every record kind plus the activity log.
type Repositories struct {
	SilageSales      ledger.Repository[core.SilageSale]
	MaizePurchases   ledger.Repository[core.MaizePurchase]
	OtherExpenses    ledger.Repository[core.OtherExpense]
	SoybeanPurchases ledger.Repository[core.SoybeanPurchase]
	SoybeanSales     ledger.Repository[core.SoybeanSale]
	Purchases        ledger.Repository[core.Purchase]
	Activity         ledger.ActivityLog
}

// Loader reads every collection concurrently.
type Loader struct {
	repos Repositories
}

func NewLoader(repos Repositories) *Loader {
	return &Loader{repos: repos}
}

// Load issues all six list calls at once and waits for every one of them.
// A failing collection is logged and left empty; the others still load.
// Failures are not retried.
func (l *Loader) Load(ctx context.Context) core.RecordSet {
	var (
		set   core.RecordSet
		g     errgroup.Group
		start = time.Now()
	)

	g.Go(loadInto(ctx, core.SilageSales, l.repos.SilageSales, &set.SilageSales))
	g.Go(loadInto(ctx, core.MaizePurchases, l.repos.MaizePurchases, &set.MaizePurchases))
	g.Go(loadInto(ctx, core.OtherExpenses, l.repos.OtherExpenses, &set.OtherExpenses))
	g.Go(loadInto(ctx, core.SoybeanPurchases, l.repos.SoybeanPurchases, &set.SoybeanPurchases))
	g.Go(loadInto(ctx, core.SoybeanSales, l.repos.SoybeanSales, &set.SoybeanSales))
	g.Go(loadInto(ctx, core.Purchases, l.repos.Purchases, &set.Purchases))

	// loadInto never returns an error.
	_ = g.Wait()

	slog.DebugContext(ctx, "Loaded record set", "duration", time.Since(start))
	return set
}

func loadInto[T core.Record](ctx context.Context, category core.Category, repo ledger.Repository[T], dst *[]T) func() error {
	return func() error {
		if repo == nil {
			return nil
		}
		recs, err := repo.List(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load collection", "category", category, "error", err)
			return nil
		}
		*dst = recs
		return nil
	}
}
