package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"suryasakshi/internal/core"
	"suryasakshi/internal/ledger"

	_ "modernc.org/sqlite"
)

// busyTimeout lets concurrent loaders wait for a writer instead of failing
// with SQLITE_BUSY.
const busyTimeout = "?_pragma=busy_timeout(5000)"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) SilageSales() *Table[core.SilageSale, *core.SilageSale] {
	return &Table[core.SilageSale, *core.SilageSale]{db: r.db, spec: silageSpec}
}

func (r *SQLiteRepository) MaizePurchases() *Table[core.MaizePurchase, *core.MaizePurchase] {
	return &Table[core.MaizePurchase, *core.MaizePurchase]{db: r.db, spec: maizeSpec}
}

func (r *SQLiteRepository) OtherExpenses() *Table[core.OtherExpense, *core.OtherExpense] {
	return &Table[core.OtherExpense, *core.OtherExpense]{db: r.db, spec: expenseSpec}
}

func (r *SQLiteRepository) SoybeanPurchases() *Table[core.SoybeanPurchase, *core.SoybeanPurchase] {
	return &Table[core.SoybeanPurchase, *core.SoybeanPurchase]{db: r.db, spec: soyPurchaseSpec}
}

func (r *SQLiteRepository) SoybeanSales() *Table[core.SoybeanSale, *core.SoybeanSale] {
	return &Table[core.SoybeanSale, *core.SoybeanSale]{db: r.db, spec: soySaleSpec}
}

func (r *SQLiteRepository) Purchases() *Table[core.Purchase, *core.Purchase] {
	return &Table[core.Purchase, *core.Purchase]{db: r.db, spec: purchaseSpec}
}

// Append implements ledger.ActivityLog
func (r *SQLiteRepository) Append(ctx context.Context, a core.Activity) error {
	return appendActivity(ctx, r.db, a)
}

// Recent implements ledger.ActivityLog
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_name, action, category, target, created_at
		 FROM activities ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []core.Activity
	for rows.Next() {
		var (
			a       core.Activity
			created string
		)
		if err := rows.Scan(&a.ID, &a.UserName, &a.Action, &a.Category, &a.Target, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse activity time: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendActivity(ctx context.Context, db execer, a core.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO activities (user_name, action, category, target, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.UserName, string(a.Action), string(a.Category), a.Target, a.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Table is the SQLite repository for one record kind. Every mutation and its
// activity entry are written in a single transaction.
type Table[T any, P core.Mutable[T]] struct {
	db   *sql.DB
	spec tableSpec[T]
}

var _ ledger.Repository[core.SilageSale] = (*Table[core.SilageSale, *core.SilageSale])(nil)

func (t *Table[T, P]) List(ctx context.Context) ([]T, error) {
	q := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY %s DESC, id DESC",
		strings.Join(t.spec.columns, ", "), t.spec.name, t.spec.dateColumn)
	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.spec.name, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		rec, err := t.spec.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.spec.name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t *Table[T, P]) Get(ctx context.Context, id int64) (T, error) {
	q := fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ?", strings.Join(t.spec.columns, ", "), t.spec.name)
	rec, err := t.spec.scan(t.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, ledger.ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("get %s %d: %w", t.spec.name, id, err)
	}
	return rec, nil
}

func (t *Table[T, P]) Add(ctx context.Context, rec T, entry core.Activity) (T, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.spec.columns)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.spec.name, strings.Join(t.spec.columns, ", "), placeholders)

	err := t.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, t.spec.values(rec)...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", t.spec.name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		P(&rec).SetRecordID(id)
		return appendActivity(ctx, tx, entry)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	slog.DebugContext(ctx, "Record saved to SQLite", "table", t.spec.name, "id", P(&rec).RecordID())
	return rec, nil
}

func (t *Table[T, P]) Update(ctx context.Context, rec T, entry core.Activity) (T, error) {
	id := P(&rec).RecordID()
	if id <= 0 {
		var zero T
		return zero, ledger.ErrMissingID
	}
	sets := make([]string, len(t.spec.columns))
	for i, c := range t.spec.columns {
		sets[i] = c + " = ?"
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.spec.name, strings.Join(sets, ", "))
	args := append(t.spec.values(rec), id)

	err := t.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("update %s: %w", t.spec.name, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return ledger.ErrNotFound
		}
		return appendActivity(ctx, tx, entry)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

func (t *Table[T, P]) Delete(ctx context.Context, id int64, entry core.Activity) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.spec.name)
	return t.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", t.spec.name, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n == 0 {
			return ledger.ErrNotFound
		}
		return appendActivity(ctx, tx, entry)
	})
}

func (t *Table[T, P]) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
