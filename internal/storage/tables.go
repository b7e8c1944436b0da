package storage

import (
	"fmt"
	"time"

	"suryasakshi/internal/core"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// tableSpec maps one record kind to its table. columns excludes id; values
// must return arguments in the same order and scan reads id first.
type tableSpec[T any] struct {
	name       string
	dateColumn string
	columns    []string
	values     func(T) []any
	scan       func(rowScanner) (T, error)
}

var silageSpec = tableSpec[core.SilageSale]{
	name:       "silage_sales",
	dateColumn: "date_of_purchase",
	columns: []string{
		"buyer_name", "mobile_no", "date_of_purchase", "weight_kg", "rate", "total_amount",
		"payment_status", "paid_amount", "invoice_no", "address", "attachment_url",
	},
	values: func(s core.SilageSale) []any {
		return []any{
			s.BuyerName, s.MobileNo, storeDate(s.PurchaseDate), s.WeightKg, s.Rate, s.TotalAmount,
			string(s.PaymentStatus), s.PaidAmount, s.InvoiceNo, s.Address, s.AttachmentURL,
		}
	},
	scan: func(row rowScanner) (core.SilageSale, error) {
		var (
			s    core.SilageSale
			date string
		)
		err := row.Scan(&s.ID, &s.BuyerName, &s.MobileNo, &date, &s.WeightKg, &s.Rate, &s.TotalAmount,
			&s.PaymentStatus, &s.PaidAmount, &s.InvoiceNo, &s.Address, &s.AttachmentURL)
		if err != nil {
			return s, err
		}
		s.PurchaseDate, err = loadDate(date)
		return s, err
	},
}

var maizeSpec = tableSpec[core.MaizePurchase]{
	name:       "maize_purchases",
	dateColumn: "date_of_purchase",
	columns: []string{
		"farmer_name", "date_of_purchase", "address", "weight_kg", "rate", "total_amount",
		"payment_status", "attachment_url",
	},
	values: func(m core.MaizePurchase) []any {
		return []any{
			m.FarmerName, storeDate(m.PurchaseDate), m.Address, m.WeightKg, m.Rate, m.TotalAmount,
			string(m.PaymentStatus), m.AttachmentURL,
		}
	},
	scan: func(row rowScanner) (core.MaizePurchase, error) {
		var (
			m    core.MaizePurchase
			date string
		)
		err := row.Scan(&m.ID, &m.FarmerName, &date, &m.Address, &m.WeightKg, &m.Rate, &m.TotalAmount,
			&m.PaymentStatus, &m.AttachmentURL)
		if err != nil {
			return m, err
		}
		m.PurchaseDate, err = loadDate(date)
		return m, err
	},
}

var expenseSpec = tableSpec[core.OtherExpense]{
	name:       "other_expenses",
	dateColumn: "date_of_expense",
	columns:    []string{"expense_name", "date_of_expense", "amount"},
	values: func(e core.OtherExpense) []any {
		return []any{e.ExpenseName, storeDate(e.ExpenseDate), e.Amount}
	},
	scan: func(row rowScanner) (core.OtherExpense, error) {
		var (
			e    core.OtherExpense
			date string
		)
		if err := row.Scan(&e.ID, &e.ExpenseName, &date, &e.Amount); err != nil {
			return e, err
		}
		var err error
		e.ExpenseDate, err = loadDate(date)
		return e, err
	},
}

var soyPurchaseSpec = tableSpec[core.SoybeanPurchase]{
	name:       "soybean_purchases",
	dateColumn: "date_of_purchase",
	columns:    []string{"seller_name", "date_of_purchase", "weight_quintal", "rate", "total_price", "payment_status"},
	values: func(p core.SoybeanPurchase) []any {
		return []any{p.SellerName, storeDate(p.PurchaseDate), p.WeightQuintal, p.Rate, p.TotalPrice, string(p.PaymentStatus)}
	},
	scan: func(row rowScanner) (core.SoybeanPurchase, error) {
		var (
			p    core.SoybeanPurchase
			date string
		)
		if err := row.Scan(&p.ID, &p.SellerName, &date, &p.WeightQuintal, &p.Rate, &p.TotalPrice, &p.PaymentStatus); err != nil {
			return p, err
		}
		var err error
		p.PurchaseDate, err = loadDate(date)
		return p, err
	},
}

var soySaleSpec = tableSpec[core.SoybeanSale]{
	name:       "soybean_sales",
	dateColumn: "date_of_sale",
	columns:    []string{"buyer_name", "date_of_sale", "quantity", "rate", "total_price", "payment_status"},
	values: func(s core.SoybeanSale) []any {
		return []any{s.BuyerName, storeDate(s.SaleDate), s.Quantity, s.Rate, s.TotalPrice, string(s.PaymentStatus)}
	},
	scan: func(row rowScanner) (core.SoybeanSale, error) {
		var (
			s    core.SoybeanSale
			date string
		)
		if err := row.Scan(&s.ID, &s.BuyerName, &date, &s.Quantity, &s.Rate, &s.TotalPrice, &s.PaymentStatus); err != nil {
			return s, err
		}
		var err error
		s.SaleDate, err = loadDate(date)
		return s, err
	},
}

var purchaseSpec = tableSpec[core.Purchase]{
	name:       "purchases",
	dateColumn: "purchase_date",
	columns:    []string{"seller_name", "mobile_no", "purchase_date", "product", "amount"},
	values: func(p core.Purchase) []any {
		return []any{p.SellerName, p.MobileNo, storeDate(p.PurchaseDate), p.Product, p.Amount}
	},
	scan: func(row rowScanner) (core.Purchase, error) {
		var (
			p    core.Purchase
			date string
		)
		if err := row.Scan(&p.ID, &p.SellerName, &p.MobileNo, &date, &p.Product, &p.Amount); err != nil {
			return p, err
		}
		var err error
		p.PurchaseDate, err = loadDate(date)
		return p, err
	},
}

// Dates are stored as the record's calendar day at midnight UTC in RFC3339,
// so lexical order is chronological.
func storeDate(d core.Date) string {
	return core.DateOf(d.Time).Format(time.RFC3339)
}

func loadDate(s string) (core.Date, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}
