package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// SilageSale is silage sold to a buyer, priced per kilogram.
	SilageSale struct {
		ID            int64           `json:"id"`
		BuyerName     string          `json:"buyer_name"`
		MobileNo      string          `json:"mobile_no"`
		PurchaseDate  Date            `json:"date_of_purchase"`
		WeightKg      decimal.Decimal `json:"weight_kg"`
		Rate          decimal.Decimal `json:"rate"`
		TotalAmount   decimal.Decimal `json:"total_amount"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
		PaidAmount    decimal.Decimal `json:"paid_amount"`
		InvoiceNo     int64           `json:"invoice_no"`
		Address       string          `json:"address"`
		AttachmentURL string          `json:"attachment_url,omitempty"`
	}

	// MaizePurchase is maize bought from a farmer, priced per kilogram.
	MaizePurchase struct {
		ID            int64           `json:"id"`
		FarmerName    string          `json:"farmer_name"`
		PurchaseDate  Date            `json:"date_of_purchase"`
		Address       string          `json:"address"`
		WeightKg      decimal.Decimal `json:"weight_kg"`
		Rate          decimal.Decimal `json:"rate"`
		TotalAmount   decimal.Decimal `json:"total_amount"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
		AttachmentURL string          `json:"attachment_url,omitempty"`
	}

	OtherExpense struct {
		ID          int64           `json:"id"`
		ExpenseName string          `json:"expense_name"`
		ExpenseDate Date            `json:"date_of_expense"`
		Amount      decimal.Decimal `json:"amount"`
	}

	// SoybeanPurchase is soybean bought from a seller, priced per quintal.
	SoybeanPurchase struct {
		ID            int64           `json:"id"`
		SellerName    string          `json:"seller_name"`
		PurchaseDate  Date            `json:"date_of_purchase"`
		WeightQuintal decimal.Decimal `json:"weight_quintal"`
		Rate          decimal.Decimal `json:"rate"`
		TotalPrice    decimal.Decimal `json:"total_price"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
	}

	SoybeanSale struct {
		ID            int64           `json:"id"`
		BuyerName     string          `json:"buyer_name"`
		SaleDate      Date            `json:"date_of_sale"`
		Quantity      decimal.Decimal `json:"quantity"`
		Rate          decimal.Decimal `json:"rate"`
		TotalPrice    decimal.Decimal `json:"total_price"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
	}

	// Purchase is a general purchase with a flat amount.
	Purchase struct {
		ID           int64           `json:"id"`
		SellerName   string          `json:"seller_name"`
		MobileNo     string          `json:"mobile_no"`
		PurchaseDate Date            `json:"purchase_date"`
		Product      string          `json:"product"`
		Amount       decimal.Decimal `json:"amount"`
	}
)

// Attachable is implemented by pointers to record kinds that carry an
// invoice or bill file.
type Attachable interface {
	Attachment() string
	SetAttachment(url string)
}

// Silage sales

func (s SilageSale) RecordID() int64               { return s.ID }
func (s SilageSale) RecordDate() time.Time         { return s.PurchaseDate.Time }
func (s SilageSale) RecordAmount() decimal.Decimal { return s.TotalAmount }
func (s SilageSale) RecordWeight() decimal.Decimal { return s.WeightKg }
func (s *SilageSale) SetRecordID(id int64)         { s.ID = id }
func (s SilageSale) Attachment() string            { return s.AttachmentURL }
func (s *SilageSale) SetAttachment(url string)     { s.AttachmentURL = url }

func (s SilageSale) Describe() string {
	return fmt.Sprintf("silage sale #%d for %s", s.InvoiceNo, s.BuyerName)
}

// Derive recomputes the total and the paid amount. A pending sale has paid
// nothing; a settled sale without an explicit paid amount is paid in full.
func (s *SilageSale) Derive() {
	s.TotalAmount = s.WeightKg.Mul(s.Rate)
	switch {
	case s.PaymentStatus == StatusPending:
		s.PaidAmount = decimal.Zero
	case s.PaidAmount.IsZero():
		s.PaidAmount = s.TotalAmount
	}
}

func (s SilageSale) Validate() error {
	if err := validateName(s.BuyerName); err != nil {
		return err
	}
	if err := validateDate(s.PurchaseDate.Time); err != nil {
		return err
	}
	if err := validatePositive(s.WeightKg, ErrInvalidQuantity); err != nil {
		return err
	}
	if err := validatePositive(s.Rate, ErrInvalidRate); err != nil {
		return err
	}
	if s.PaidAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return validateStatus(s.PaymentStatus, StatusPending, StatusCash, StatusOnline)
}

func (s SilageSale) Matches(term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return containsFold(s.BuyerName, term) || strings.Contains(strconv.FormatInt(s.InvoiceNo, 10), term)
}

func (s SilageSale) Fields() map[string]any {
	return map[string]any{
		"id":               s.ID,
		"invoice_no":       s.InvoiceNo,
		"buyer_name":       s.BuyerName,
		"mobile_no":        s.MobileNo,
		"date_of_purchase": s.PurchaseDate.String(),
		"weight_kg":        s.WeightKg,
		"rate":             s.Rate,
		"payment_status":   string(s.PaymentStatus),
		"total_amount":     s.TotalAmount,
		"paid_amount":      s.PaidAmount,
		"address":          s.Address,
	}
}

// Maize purchases

func (m MaizePurchase) RecordID() int64               { return m.ID }
func (m MaizePurchase) RecordDate() time.Time         { return m.PurchaseDate.Time }
func (m MaizePurchase) RecordAmount() decimal.Decimal { return m.TotalAmount }
func (m MaizePurchase) RecordWeight() decimal.Decimal { return m.WeightKg }
func (m *MaizePurchase) SetRecordID(id int64)         { m.ID = id }
func (m MaizePurchase) Attachment() string            { return m.AttachmentURL }
func (m *MaizePurchase) SetAttachment(url string)     { m.AttachmentURL = url }
func (m *MaizePurchase) Derive()                      { m.TotalAmount = m.WeightKg.Mul(m.Rate) }

func (m MaizePurchase) Describe() string {
	return fmt.Sprintf("maize purchase from %s", m.FarmerName)
}

func (m MaizePurchase) Validate() error {
	if err := validateName(m.FarmerName); err != nil {
		return err
	}
	if err := validateDate(m.PurchaseDate.Time); err != nil {
		return err
	}
	if err := validatePositive(m.WeightKg, ErrInvalidQuantity); err != nil {
		return err
	}
	if err := validatePositive(m.Rate, ErrInvalidRate); err != nil {
		return err
	}
	return validateStatus(m.PaymentStatus, StatusPaid, StatusPending)
}

func (m MaizePurchase) Matches(term string) bool {
	return containsFold(m.FarmerName, strings.TrimSpace(term))
}

func (m MaizePurchase) Fields() map[string]any {
	return map[string]any{
		"id":               m.ID,
		"farmer_name":      m.FarmerName,
		"date_of_purchase": m.PurchaseDate.String(),
		"address":          m.Address,
		"weight_kg":        m.WeightKg,
		"rate":             m.Rate,
		"total_amount":     m.TotalAmount,
		"payment_status":   string(m.PaymentStatus),
	}
}

// Other expenses

func (e OtherExpense) RecordID() int64               { return e.ID }
func (e OtherExpense) RecordDate() time.Time         { return e.ExpenseDate.Time }
func (e OtherExpense) RecordAmount() decimal.Decimal { return e.Amount }
func (e OtherExpense) RecordWeight() decimal.Decimal { return decimal.Zero }
func (e *OtherExpense) SetRecordID(id int64)         { e.ID = id }
func (e *OtherExpense) Derive()                      {}

func (e OtherExpense) Describe() string {
	return fmt.Sprintf("expense %q", e.ExpenseName)
}

func (e OtherExpense) Validate() error {
	if err := validateName(e.ExpenseName); err != nil {
		return err
	}
	if err := validateDate(e.ExpenseDate.Time); err != nil {
		return err
	}
	return validatePositive(e.Amount, ErrInvalidAmount)
}

func (e OtherExpense) Matches(term string) bool {
	return containsFold(e.ExpenseName, strings.TrimSpace(term))
}

func (e OtherExpense) Fields() map[string]any {
	return map[string]any{
		"id":              e.ID,
		"expense_name":    e.ExpenseName,
		"date_of_expense": e.ExpenseDate.String(),
		"amount":          e.Amount,
	}
}

// Soybean purchases

func (p SoybeanPurchase) RecordID() int64               { return p.ID }
func (p SoybeanPurchase) RecordDate() time.Time         { return p.PurchaseDate.Time }
func (p SoybeanPurchase) RecordAmount() decimal.Decimal { return p.TotalPrice }
func (p SoybeanPurchase) RecordWeight() decimal.Decimal { return p.WeightQuintal }
func (p *SoybeanPurchase) SetRecordID(id int64)         { p.ID = id }
func (p *SoybeanPurchase) Derive()                      { p.TotalPrice = p.WeightQuintal.Mul(p.Rate) }

func (p SoybeanPurchase) Describe() string {
	return fmt.Sprintf("soybean purchase from %s", p.SellerName)
}

func (p SoybeanPurchase) Validate() error {
	if err := validateName(p.SellerName); err != nil {
		return err
	}
	if err := validateDate(p.PurchaseDate.Time); err != nil {
		return err
	}
	if err := validatePositive(p.WeightQuintal, ErrInvalidQuantity); err != nil {
		return err
	}
	if err := validatePositive(p.Rate, ErrInvalidRate); err != nil {
		return err
	}
	return validateStatus(p.PaymentStatus, StatusPaid, StatusPending)
}

func (p SoybeanPurchase) Matches(term string) bool {
	return containsFold(p.SellerName, strings.TrimSpace(term))
}

func (p SoybeanPurchase) Fields() map[string]any {
	return map[string]any{
		"id":               p.ID,
		"seller_name":      p.SellerName,
		"date_of_purchase": p.PurchaseDate.String(),
		"weight_quintal":   p.WeightQuintal,
		"rate":             p.Rate,
		"total_price":      p.TotalPrice,
		"payment_status":   string(p.PaymentStatus),
	}
}

// Soybean sales

func (s SoybeanSale) RecordID() int64               { return s.ID }
func (s SoybeanSale) RecordDate() time.Time         { return s.SaleDate.Time }
func (s SoybeanSale) RecordAmount() decimal.Decimal { return s.TotalPrice }
func (s SoybeanSale) RecordWeight() decimal.Decimal { return s.Quantity }
func (s *SoybeanSale) SetRecordID(id int64)         { s.ID = id }
func (s *SoybeanSale) Derive()                      { s.TotalPrice = s.Quantity.Mul(s.Rate) }

func (s SoybeanSale) Describe() string {
	return fmt.Sprintf("soybean sale to %s", s.BuyerName)
}

func (s SoybeanSale) Validate() error {
	if err := validateName(s.BuyerName); err != nil {
		return err
	}
	if err := validateDate(s.SaleDate.Time); err != nil {
		return err
	}
	if err := validatePositive(s.Quantity, ErrInvalidQuantity); err != nil {
		return err
	}
	if err := validatePositive(s.Rate, ErrInvalidRate); err != nil {
		return err
	}
	return validateStatus(s.PaymentStatus, StatusPaid, StatusPending)
}

func (s SoybeanSale) Matches(term string) bool {
	return containsFold(s.BuyerName, strings.TrimSpace(term))
}

func (s SoybeanSale) Fields() map[string]any {
	return map[string]any{
		"id":             s.ID,
		"buyer_name":     s.BuyerName,
		"date_of_sale":   s.SaleDate.String(),
		"quantity":       s.Quantity,
		"rate":           s.Rate,
		"total_price":    s.TotalPrice,
		"payment_status": string(s.PaymentStatus),
	}
}

// General purchases

func (p Purchase) RecordID() int64               { return p.ID }
func (p Purchase) RecordDate() time.Time         { return p.PurchaseDate.Time }
func (p Purchase) RecordAmount() decimal.Decimal { return p.Amount }
func (p Purchase) RecordWeight() decimal.Decimal { return decimal.Zero }
func (p *Purchase) SetRecordID(id int64)         { p.ID = id }
func (p *Purchase) Derive()                      {}

func (p Purchase) Describe() string {
	return fmt.Sprintf("purchase of %s from %s", p.Product, p.SellerName)
}

func (p Purchase) Validate() error {
	if err := validateName(p.SellerName); err != nil {
		return err
	}
	if strings.TrimSpace(p.Product) == "" {
		return ErrEmptyProduct
	}
	if err := validateDate(p.PurchaseDate.Time); err != nil {
		return err
	}
	return validatePositive(p.Amount, ErrInvalidAmount)
}

func (p Purchase) Matches(term string) bool {
	term = strings.TrimSpace(term)
	return containsFold(p.SellerName, term) || containsFold(p.Product, term)
}

func (p Purchase) Fields() map[string]any {
	return map[string]any{
		"id":            p.ID,
		"seller_name":   p.SellerName,
		"mobile_no":     p.MobileNo,
		"purchase_date": p.PurchaseDate.String(),
		"product":       p.Product,
		"amount":        p.Amount,
	}
}
