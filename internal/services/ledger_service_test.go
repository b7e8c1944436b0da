package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"
	"suryasakshi/internal/storage/memory"

	"github.com/shopspring/decimal"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []core.Activity
	err  error
}

func (f *fakePublisher) PublishActivity(_ context.Context, a core.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, a)
	return f.err
}

type fakeFiles struct {
	objects map[string]string
}

func newFakeFiles() *fakeFiles { return &fakeFiles{objects: map[string]string{}} }

func (f *fakeFiles) Put(_ context.Context, c core.Category, id int64, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "/attachments/" + string(c) + "/" + strconv.FormatInt(id, 10) + ".pdf"
	f.objects[url] = string(b)
	return url, nil
}

func (f *fakeFiles) Delete(_ context.Context, url string) error {
	delete(f.objects, url)
	return nil
}

func (f *fakeFiles) Open(_ context.Context, url string) (io.ReadCloser, error) {
	s, ok := f.objects[url]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

// failingRepo fails every call.
type failingRepo[T any] struct{}

var errStore = errors.New("disk full")

func (failingRepo[T]) List(context.Context) ([]T, error) { return nil, errStore }
func (failingRepo[T]) Get(context.Context, int64) (T, error) {
	var zero T
	return zero, errStore
}
func (failingRepo[T]) Add(_ context.Context, rec T, _ core.Activity) (T, error) {
	return rec, errStore
}
func (failingRepo[T]) Update(_ context.Context, rec T, _ core.Activity) (T, error) {
	return rec, errStore
}
func (failingRepo[T]) Delete(context.Context, int64, core.Activity) error { return errStore }

// updateFailingRepo fails Update and delegates everything else.
type updateFailingRepo[T core.Record] struct {
	ledger.Repository[T]
}

func (updateFailingRepo[T]) Update(_ context.Context, rec T, _ core.Activity) (T, error) {
	return rec, errStore
}

func newMaizeService(store *memory.Store, pub ActivityPublisher, files ledger.AttachmentStore) *LedgerService[core.MaizePurchase, *core.MaizePurchase] {
	return NewLedgerService[core.MaizePurchase](core.MaizePurchases, store.MaizePurchases(), files, pub)
}

func maize(name string) core.MaizePurchase {
	return core.MaizePurchase{
		FarmerName:    name,
		PurchaseDate:  core.NewDate(2024, 3, 10),
		WeightKg:      decimal.NewFromInt(500),
		Rate:          decimal.RequireFromString("15"),
		TotalAmount:   decimal.NewFromInt(1),
		PaymentStatus: core.StatusPaid,
	}
}

func TestLedgerService_AddDerivesAndLogs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := newMaizeService(store, pub, nil)

	changed := 0
	svc.OnChange(func() { changed++ })

	rec := maize("Gopal")
	rec.ID = 42
	got, err := svc.Add(ctx, "ADMIN", rec)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("expected store-assigned id 1, got %d", got.ID)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("total = %s, want 7500", got.TotalAmount)
	}

	acts, _ := store.Recent(ctx, 10)
	if len(acts) != 1 || acts[0].Action != core.ActionCreated || acts[0].UserName != "ADMIN" ||
		acts[0].Category != core.MaizePurchases || acts[0].Target != "maize purchase from Gopal" {
		t.Fatalf("unexpected activity: %+v", acts)
	}
	if len(pub.msgs) != 1 || changed != 1 {
		t.Fatalf("published=%d changed=%d", len(pub.msgs), changed)
	}

	list, _ := svc.List(ctx)
	if len(list) != 1 || list[0].FarmerName != "Gopal" || !list[0].WeightKg.Equal(rec.WeightKg) {
		t.Fatalf("round trip mismatch: %+v", list)
	}
}

func TestLedgerService_ValidationFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := newMaizeService(store, pub, nil)

	bad := maize("Gopal")
	bad.PaymentStatus = core.StatusCash
	_, err := svc.Add(ctx, "ADMIN", bad)
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalid wrapping ErrInvalidStatus, got %v", err)
	}
	if acts, _ := store.Recent(ctx, 10); len(acts) != 0 {
		t.Fatalf("validation failure must not log activity: %+v", acts)
	}
	if len(pub.msgs) != 0 {
		t.Fatal("validation failure must not publish")
	}
}

func TestLedgerService_PublishFailureDoesNotFail(t *testing.T) {
	svc := newMaizeService(memory.New(), &fakePublisher{err: errors.New("broker down")}, nil)
	if _, err := svc.Add(context.Background(), "ADMIN", maize("Gopal")); err != nil {
		t.Fatalf("publish failure must not fail the mutation: %v", err)
	}
}

func TestLedgerService_StoreFailure(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewLedgerService[core.OtherExpense](core.OtherExpenses, failingRepo[core.OtherExpense]{}, nil, pub)

	_, err := svc.Add(context.Background(), "ADMIN", core.OtherExpense{
		ExpenseName: "Diesel",
		ExpenseDate: core.NewDate(2024, 1, 1),
		Amount:      decimal.NewFromInt(10),
	})
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatal("store failure must not publish")
	}
	if err := svc.Delete(context.Background(), "ADMIN", 1); !errors.Is(err, errStore) {
		t.Fatalf("expected store error on delete, got %v", err)
	}
}

func TestLedgerService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newMaizeService(store, nil, nil)

	rec, _ := svc.Add(ctx, "ADMIN", maize("Gopal"))
	rec.WeightKg = decimal.NewFromInt(1000)
	updated, err := svc.Update(ctx, "SURYA", rec)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("update must recompute total, got %s", updated.TotalAmount)
	}

	missing := maize("Ghost")
	missing.ID = 99
	if _, err := svc.Update(ctx, "ADMIN", missing); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, "ADMIN", rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "ADMIN", rec.ID); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}

	acts, _ := store.Recent(ctx, 10)
	want := []core.ActionKind{core.ActionDeleted, core.ActionUpdated, core.ActionCreated}
	if len(acts) != len(want) {
		t.Fatalf("expected %d activity entries, got %+v", len(want), acts)
	}
	for i, a := range want {
		if acts[i].Action != a {
			t.Fatalf("activity[%d] = %s, want %s", i, acts[i].Action, a)
		}
	}
	if acts[1].UserName != "SURYA" {
		t.Fatalf("update should be attributed to SURYA, got %s", acts[1].UserName)
	}
}

func TestLedgerService_Attachments(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	files := newFakeFiles()
	svc := newMaizeService(store, nil, files)

	rec, _ := svc.Add(ctx, "ADMIN", maize("Gopal"))
	got, err := svc.AttachFile(ctx, "ADMIN", rec.ID, "bill.pdf", bytes.NewBufferString("v1"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got.AttachmentURL != "/attachments/maize_purchases/1.pdf" {
		t.Fatalf("url = %q", got.AttachmentURL)
	}
	if _, err := svc.AttachFile(ctx, "ADMIN", rec.ID, "bill.pdf", bytes.NewBufferString("v2")); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	if len(files.objects) != 1 || files.objects[got.AttachmentURL] != "v2" {
		t.Fatalf("upload should overwrite: %+v", files.objects)
	}

	if err := svc.Delete(ctx, "ADMIN", rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(files.objects) != 0 {
		t.Fatal("deleting the record should delete its attachment")
	}

	expenses := NewLedgerService[core.OtherExpense](core.OtherExpenses, store.OtherExpenses(), files, nil)
	if _, err := expenses.AttachFile(ctx, "ADMIN", 1, "x.pdf", strings.NewReader("x")); !errors.Is(err, ErrNoAttachments) {
		t.Fatalf("expected ErrNoAttachments, got %v", err)
	}
}

func TestLedgerService_AttachFileRestoresOnUpdateFailure(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		want     map[string]string
	}{
		{
			name:     "previous file is put back",
			existing: "v1",
			want:     map[string]string{"/attachments/maize_purchases/1.pdf": "v1"},
		},
		{
			name: "new file is removed when there was none",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			files := newFakeFiles()
			svc := newMaizeService(store, nil, files)

			rec, err := svc.Add(ctx, "ADMIN", maize("Gopal"))
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			if tt.existing != "" {
				if _, err := svc.AttachFile(ctx, "ADMIN", rec.ID, "bill.pdf", strings.NewReader(tt.existing)); err != nil {
					t.Fatalf("attach: %v", err)
				}
			}

			broken := NewLedgerService[core.MaizePurchase](core.MaizePurchases,
				updateFailingRepo[core.MaizePurchase]{store.MaizePurchases()}, files, nil)
			if _, err := broken.AttachFile(ctx, "ADMIN", rec.ID, "bill.pdf", strings.NewReader("v2")); !errors.Is(err, errStore) {
				t.Fatalf("expected errStore, got %v", err)
			}

			if len(files.objects) != len(tt.want) {
				t.Fatalf("objects = %+v, want %+v", files.objects, tt.want)
			}
			for url, body := range tt.want {
				if files.objects[url] != body {
					t.Errorf("%s = %q, want %q", url, files.objects[url], body)
				}
			}
		})
	}
}
