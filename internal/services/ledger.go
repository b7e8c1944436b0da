package services

import (
	"context"
	"fmt"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
)

// Ledger wires one LedgerService per record kind to a shared loader and
// dashboard cache.
type Ledger struct {
	SilageSales      *LedgerService[core.SilageSale, *core.SilageSale]
	MaizePurchases   *LedgerService[core.MaizePurchase, *core.MaizePurchase]
	OtherExpenses    *LedgerService[core.OtherExpense, *core.OtherExpense]
	SoybeanPurchases *LedgerService[core.SoybeanPurchase, *core.SoybeanPurchase]
	SoybeanSales     *LedgerService[core.SoybeanSale, *core.SoybeanSale]
	Purchases        *LedgerService[core.Purchase, *core.Purchase]

	Loader    *Loader
	Dashboard *DashboardService
	activity  ledger.ActivityLog
}

func NewLedger(repos Repositories, files ledger.AttachmentStore, publisher ActivityPublisher) *Ledger {
	loader := NewLoader(repos)
	l := &Ledger{
		SilageSales:      NewLedgerService[core.SilageSale](core.SilageSales, repos.SilageSales, files, publisher),
		MaizePurchases:   NewLedgerService[core.MaizePurchase](core.MaizePurchases, repos.MaizePurchases, files, publisher),
		OtherExpenses:    NewLedgerService[core.OtherExpense](core.OtherExpenses, repos.OtherExpenses, files, publisher),
		SoybeanPurchases: NewLedgerService[core.SoybeanPurchase](core.SoybeanPurchases, repos.SoybeanPurchases, files, publisher),
		SoybeanSales:     NewLedgerService[core.SoybeanSale](core.SoybeanSales, repos.SoybeanSales, files, publisher),
		Purchases:        NewLedgerService[core.Purchase](core.Purchases, repos.Purchases, files, publisher),
		Loader:           loader,
		Dashboard:        NewDashboardService(loader),
		activity:         repos.Activity,
	}

	invalidate := l.Dashboard.Invalidate
	l.SilageSales.OnChange(invalidate)
	l.MaizePurchases.OnChange(invalidate)
	l.OtherExpenses.OnChange(invalidate)
	l.SoybeanPurchases.OnChange(invalidate)
	l.SoybeanSales.OnChange(invalidate)
	l.Purchases.OnChange(invalidate)
	return l
}

// RecentActivity returns the activity feed, newest first.
func (l *Ledger) RecentActivity(ctx context.Context) ([]core.Activity, error) {
	acts, err := l.activity.Recent(ctx, core.ActivityFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	if acts == nil {
		acts = []core.Activity{}
	}
	return acts, nil
}
