package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
	"suryasakshi/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func repositories(store *memory.Store) Repositories {
	return Repositories{
		SilageSales:      store.SilageSales(),
		MaizePurchases:   store.MaizePurchases(),
		OtherExpenses:    store.OtherExpenses(),
		SoybeanPurchases: store.SoybeanPurchases(),
		SoybeanSales:     store.SoybeanSales(),
		Purchases:        store.Purchases(),
		Activity:         store,
	}
}

func TestLoader_PartialFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	act := core.Activity{UserName: "ADMIN", Action: core.ActionCreated}
	store.SilageSales().Add(ctx, core.SilageSale{BuyerName: "Ram", PurchaseDate: core.NewDate(2024, 3, 1)}, act)
	store.Purchases().Add(ctx, core.Purchase{SellerName: "Krishi", PurchaseDate: core.NewDate(2024, 3, 1)}, act)

	repos := repositories(store)
	repos.MaizePurchases = failingRepo[core.MaizePurchase]{}

	set := NewLoader(repos).Load(ctx)
	if len(set.SilageSales) != 1 || len(set.Purchases) != 1 {
		t.Fatalf("healthy collections should load: %+v", set)
	}
	if len(set.MaizePurchases) != 0 {
		t.Fatalf("failed collection should be empty, got %d", len(set.MaizePurchases))
	}
}

func TestDashboard_CacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := NewLedger(repositories(store), nil, nil)
	period := core.Period{Year: 2024, Month: 2}

	first := l.Dashboard.Summary(ctx, period)
	if !first.Cards[0].Amount.IsZero() {
		t.Fatalf("expected empty summary, got %+v", first.Cards[0])
	}

	_, err := l.SilageSales.Add(ctx, "ADMIN", core.SilageSale{
		BuyerName:     "Ram",
		PurchaseDate:  core.NewDate(2024, 3, 5),
		WeightKg:      decimal.NewFromInt(2500),
		Rate:          decimal.NewFromInt(4),
		PaymentStatus: core.StatusCash,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	second := l.Dashboard.Summary(ctx, period)
	if !second.Cards[0].Amount.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("summary should reflect the new sale, got %s", second.Cards[0].Amount)
	}

	acts, err := l.RecentActivity(ctx)
	if err != nil || len(acts) != 1 {
		t.Fatalf("activity = %+v, %v", acts, err)
	}
}

// gatedRepo blocks its first List until release is closed, after closing
// entered.
type gatedRepo struct {
	ledger.Repository[core.SilageSale]
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRepo) List(ctx context.Context) ([]core.SilageSale, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Repository.List(ctx)
}

func TestDashboard_MutationDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	gate := &gatedRepo{
		Repository: store.SilageSales(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	repos := repositories(store)
	repos.SilageSales = gate
	l := NewLedger(repos, nil, nil)
	period := core.Period{Year: 2024, Month: 2}

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Dashboard.Summary(ctx, period)
	}()

	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("summary load never reached the silage list")
	}

	_, err := l.SilageSales.Add(ctx, "ADMIN", core.SilageSale{
		BuyerName:     "Ram",
		PurchaseDate:  core.NewDate(2024, 3, 5),
		WeightKg:      decimal.NewFromInt(2500),
		Rate:          decimal.NewFromInt(4),
		PaymentStatus: core.StatusCash,
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	close(gate.release)
	<-done

	got := l.Dashboard.Summary(ctx, period)
	if !got.Cards[0].Amount.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("summary after committed add = %s, want 10000", got.Cards[0].Amount)
	}
}
