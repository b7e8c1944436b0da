// Package memory keeps every collection in process memory. It backs tests and
// the memory data backend.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	activities []core.Activity
	nextAct    int64

	silage      *Table[core.SilageSale, *core.SilageSale]
	maize       *Table[core.MaizePurchase, *core.MaizePurchase]
	expenses    *Table[core.OtherExpense, *core.OtherExpense]
	soyPurchase *Table[core.SoybeanPurchase, *core.SoybeanPurchase]
	soySale     *Table[core.SoybeanSale, *core.SoybeanSale]
	purchases   *Table[core.Purchase, *core.Purchase]
}

func New() *Store {
	s := &Store{}
	s.silage = newTable[core.SilageSale](s)
	s.maize = newTable[core.MaizePurchase](s)
	s.expenses = newTable[core.OtherExpense](s)
	s.soyPurchase = newTable[core.SoybeanPurchase](s)
	s.soySale = newTable[core.SoybeanSale](s)
	s.purchases = newTable[core.Purchase](s)
	return s
}

// NewFromFile seeds a store from a JSON record set. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var set core.RecordSet
	if err := json.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	s.silage.seed(set.SilageSales)
	s.maize.seed(set.MaizePurchases)
	s.expenses.seed(set.OtherExpenses)
	s.soyPurchase.seed(set.SoybeanPurchases)
	s.soySale.seed(set.SoybeanSales)
	s.purchases.seed(set.Purchases)
	return s, nil
}

func (s *Store) SilageSales() *Table[core.SilageSale, *core.SilageSale] {
	return s.silage
}

func (s *Store) MaizePurchases() *Table[core.MaizePurchase, *core.MaizePurchase] {
	return s.maize
}

func (s *Store) OtherExpenses() *Table[core.OtherExpense, *core.OtherExpense] {
	return s.expenses
}

func (s *Store) SoybeanPurchases() *Table[core.SoybeanPurchase, *core.SoybeanPurchase] {
	return s.soyPurchase
}

func (s *Store) SoybeanSales() *Table[core.SoybeanSale, *core.SoybeanSale] {
	return s.soySale
}

func (s *Store) Purchases() *Table[core.Purchase, *core.Purchase] {
	return s.purchases
}

// Append implements ledger.ActivityLog
func (s *Store) Append(_ context.Context, a core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAct++
	a.ID = s.nextAct
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.activities = append(s.activities, a)
	return nil
}

// Recent implements ledger.ActivityLog
func (s *Store) Recent(_ context.Context, limit int) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.activities)
	if limit > n || limit < 0 {
		limit = n
	}
	out := make([]core.Activity, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.activities[i])
	}
	return out, nil
}

// Table is a mutex-guarded slice of one record kind.
type Table[T any, P core.Mutable[T]] struct {
	mu     sync.Mutex
	items  []T
	nextID int64
	log    *Store
}

var _ ledger.Repository[core.Purchase] = (*Table[core.Purchase, *core.Purchase])(nil)

func newTable[T any, P core.Mutable[T]](log *Store) *Table[T, P] {
	return &Table[T, P]{log: log}
}

func (t *Table[T, P]) seed(items []T) {
	for _, rec := range items {
		p := P(&rec)
		if p.RecordID() == 0 {
			t.nextID++
			p.SetRecordID(t.nextID)
		} else if p.RecordID() > t.nextID {
			t.nextID = p.RecordID()
		}
		t.items = append(t.items, rec)
	}
}

func (t *Table[T, P]) List(_ context.Context) ([]T, error) {
	t.mu.Lock()
	out := append([]T(nil), t.items...)
	t.mu.Unlock()

	slices.SortStableFunc(out, func(a, b T) int {
		pa, pb := P(&a), P(&b)
		if c := pb.RecordDate().Compare(pa.RecordDate()); c != 0 {
			return c
		}
		return cmp.Compare(pb.RecordID(), pa.RecordID())
	})
	return out, nil
}

func (t *Table[T, P]) Get(_ context.Context, id int64) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := t.index(id); i >= 0 {
		return t.items[i], nil
	}
	var zero T
	return zero, ledger.ErrNotFound
}

func (t *Table[T, P]) Add(ctx context.Context, rec T, entry core.Activity) (T, error) {
	t.mu.Lock()
	t.nextID++
	P(&rec).SetRecordID(t.nextID)
	t.items = append(t.items, rec)
	t.mu.Unlock()
	return rec, t.log.Append(ctx, entry)
}

func (t *Table[T, P]) Update(ctx context.Context, rec T, entry core.Activity) (T, error) {
	id := P(&rec).RecordID()
	if id <= 0 {
		var zero T
		return zero, ledger.ErrMissingID
	}
	t.mu.Lock()
	i := t.index(id)
	if i < 0 {
		t.mu.Unlock()
		var zero T
		return zero, ledger.ErrNotFound
	}
	t.items[i] = rec
	t.mu.Unlock()
	return rec, t.log.Append(ctx, entry)
}

func (t *Table[T, P]) Delete(ctx context.Context, id int64, entry core.Activity) error {
	t.mu.Lock()
	i := t.index(id)
	if i < 0 {
		t.mu.Unlock()
		return ledger.ErrNotFound
	}
	t.items = slices.Delete(t.items, i, i+1)
	t.mu.Unlock()
	return t.log.Append(ctx, entry)
}

// index must be called with mu held.
func (t *Table[T, P]) index(id int64) int {
	for i := range t.items {
		if P(&t.items[i]).RecordID() == id {
			return i
		}
	}
	return -1
}
