package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SilageSales      Category = "silage_sales"
	MaizePurchases   Category = "maize_purchases"
	OtherExpenses    Category = "other_expenses"
	SoybeanPurchases Category = "soybean_purchases"
	SoybeanSales     Category = "soybean_sales"
	Purchases        Category = "purchases"
)

const (
	StatusPending PaymentStatus = "PENDING"
	StatusCash    PaymentStatus = "CASH"
	StatusOnline  PaymentStatus = "ONLINE"
	StatusPaid    PaymentStatus = "PAID"
)

const (
	ActionCreated ActionKind = "created"
	ActionUpdated ActionKind = "updated"
	ActionDeleted ActionKind = "deleted"
)

// ActivityFeedLimit is the number of entries the activity feed exposes.
const ActivityFeedLimit = 50

type (
	// Category names one of the six record collections.
	Category string

	PaymentStatus string

	ActionKind string

	// Activity is an append-only audit entry produced by every mutation.
	Activity struct {
		ID        int64      `json:"id"`
		UserName  string     `json:"user_name"`
		Action    ActionKind `json:"action"`
		Category  Category   `json:"category"`
		Target    string     `json:"target"`
		CreatedAt time.Time  `json:"created_at"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidRate     = errors.New("invalid rate")
	ErrInvalidStatus   = errors.New("invalid payment status")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyProduct    = errors.New("empty product")
	ErrUnknownCategory = errors.New("unknown category")
)

// Record is the behaviour shared by every record kind. Methods use value
// receivers so records can be copied freely between stores and views.
type Record interface {
	RecordID() int64
	RecordDate() time.Time
	// RecordAmount is the monetary value used by aggregation.
	RecordAmount() decimal.Decimal
	// RecordWeight is the physical quantity, zero for kinds without one.
	RecordWeight() decimal.Decimal
	// Describe is the human-readable target written to the activity log.
	Describe() string
	Validate() error
	// Matches reports whether the record satisfies a free-text search term.
	Matches(term string) bool
	// Fields exposes the record as a flat key/value map for export.
	Fields() map[string]any
}

// Mutable is satisfied by a pointer to a record kind. Stores use it to assign
// identifiers and services use it to recompute derived totals.
type Mutable[T any] interface {
	*T
	Record
	SetRecordID(id int64)
	Derive()
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{SilageSales, MaizePurchases, OtherExpenses, SoybeanPurchases, SoybeanSales, Purchases}
}

// ParseCategory converts a path segment into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

func (c Category) IsValid() bool {
	switch c {
	case SilageSales, MaizePurchases, OtherExpenses, SoybeanPurchases, SoybeanSales, Purchases:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// Label is the display name used in summaries and export filenames.
func (c Category) Label() string {
	switch c {
	case SilageSales:
		return "Silage Sales"
	case MaizePurchases:
		return "Maize Purchase"
	case OtherExpenses:
		return "Other Expenses"
	case SoybeanPurchases:
		return "Soybean Purchase"
	case SoybeanSales:
		return "Soybean Sales"
	case Purchases:
		return "Purchases"
	default:
		return string(c)
	}
}

// HasAttachments reports whether records of this category may carry an
// invoice or bill file.
func (c Category) HasAttachments() bool {
	return c == SilageSales || c == MaizePurchases
}

func (a ActionKind) IsValid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	default:
		return false
	}
}

func validateStatus(s PaymentStatus, allowed ...PaymentStatus) error {
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return ErrInvalidStatus
}

func validateDate(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyName
	}
	if len(s) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func validatePositive(d decimal.Decimal, err error) error {
	if !d.IsPositive() {
		return err
	}
	return nil
}

func containsFold(s, term string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(term))
}
