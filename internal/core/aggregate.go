package core

import "github.com/shopspring/decimal"

const (
	Revenue CardKind = "revenue"
	Cost    CardKind = "cost"
)

var kgPerTonne = decimal.NewFromInt(1000)

type (
	// CardKind decides how a change is interpreted: more revenue is good,
	// more cost is not.
	CardKind string

	// Totals is the aggregate of a filtered record subset.
	Totals struct {
		Amount decimal.Decimal `json:"amount"`
		Weight decimal.Decimal `json:"weight"`
		Count  int             `json:"count"`
	}

	// RecordSet holds every collection the dashboard reads.
	RecordSet struct {
		SilageSales      []SilageSale      `json:"silage_sales"`
		MaizePurchases   []MaizePurchase   `json:"maize_purchases"`
		OtherExpenses    []OtherExpense    `json:"other_expenses"`
		SoybeanPurchases []SoybeanPurchase `json:"soybean_purchases"`
		SoybeanSales     []SoybeanSale     `json:"soybean_sales"`
		Purchases        []Purchase        `json:"purchases"`
	}

	// Card is one top-line statistic with its comparison. Weight fields are
	// only set for weight-bearing cards.
	Card struct {
		Title          string           `json:"title"`
		Kind           CardKind         `json:"kind"`
		Amount         decimal.Decimal  `json:"amount"`
		PreviousAmount decimal.Decimal  `json:"previous_amount"`
		Change         float64          `json:"change"`
		Weight         *decimal.Decimal `json:"weight,omitempty"`
		PreviousWeight *decimal.Decimal `json:"previous_weight,omitempty"`
		WeightChange   *float64         `json:"weight_change,omitempty"`
		Increase       bool             `json:"increase"`
		Favorable      bool             `json:"favorable"`
	}

	Slice struct {
		Label string          `json:"label"`
		Value decimal.Decimal `json:"value"`
	}

	// Summary is everything the dashboard renders for one period.
	Summary struct {
		Period             Period     `json:"period"`
		Current            Window     `json:"current"`
		Previous           Window     `json:"previous"`
		Comparison         string     `json:"comparison"`
		Cards              []Card     `json:"cards"`
		SalesByProduct     []Slice    `json:"sales_by_product"`
		PurchasesByProduct []Slice    `json:"purchases_by_product"`
		MonthlySilageTons  [12]string `json:"monthly_silage_tonnes"`
	}
)

// ComputeTotals sums amount and weight over the records dated in year (and in
// month when non-nil, 0-based). Records without a date are skipped.
func ComputeTotals[T Record](records []T, month *int, year int) Totals {
	w := Window{Year: year, Month: month}
	t := Totals{Amount: decimal.Zero, Weight: decimal.Zero}
	for _, r := range records {
		if !w.Contains(r.RecordDate()) {
			continue
		}
		t.Amount = t.Amount.Add(r.RecordAmount())
		t.Weight = t.Weight.Add(r.RecordWeight())
		t.Count++
	}
	return t
}

// Change is the percentage change from previous to current. A zero previous
// value yields 100 when current grew and 0 otherwise; a drop to zero is -100.
func Change(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	if current.IsZero() && previous.IsPositive() {
		return -100
	}
	f, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	return f
}

// Favorable interprets a change for a card kind. A zero change counts as an
// increase.
func (k CardKind) Favorable(change float64) bool {
	increase := change >= 0
	if k == Cost {
		return !increase
	}
	return increase
}

// FilterPeriod keeps the records dated inside the period.
func FilterPeriod[T Record](records []T, p Period) []T {
	w, _ := ResolvePeriods(p)
	out := make([]T, 0, len(records))
	for _, r := range records {
		if w.Contains(r.RecordDate()) {
			out = append(out, r)
		}
	}
	return out
}

// Search keeps the records matching term. An empty term keeps everything.
func Search[T Record](records []T, term string) []T {
	if term == "" {
		return records
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

// MonthlyWeights buckets silage weight per month of year, in tonnes rounded
// to two decimals.
func MonthlyWeights(sales []SilageSale, year int) [12]decimal.Decimal {
	var kg [12]decimal.Decimal
	for _, s := range sales {
		d := s.RecordDate()
		if d.IsZero() || d.Year() != year {
			continue
		}
		m := int(d.Month()) - 1
		kg[m] = kg[m].Add(s.WeightKg)
	}
	var out [12]decimal.Decimal
	for i, v := range kg {
		out[i] = v.Div(kgPerTonne).Round(2)
	}
	return out
}

// Summarize computes the dashboard for period p.
func Summarize(set RecordSet, p Period) Summary {
	cur, prev := ResolvePeriods(p)

	silageCur := ComputeTotals(set.SilageSales, cur.Month, cur.Year)
	silagePrev := ComputeTotals(set.SilageSales, prev.Month, prev.Year)
	maizeCur := ComputeTotals(set.MaizePurchases, cur.Month, cur.Year)
	maizePrev := ComputeTotals(set.MaizePurchases, prev.Month, prev.Year)

	expensesCur := ComputeTotals(set.OtherExpenses, cur.Month, cur.Year).Amount.
		Add(ComputeTotals(set.Purchases, cur.Month, cur.Year).Amount)
	expensesPrev := ComputeTotals(set.OtherExpenses, prev.Month, prev.Year).Amount.
		Add(ComputeTotals(set.Purchases, prev.Month, prev.Year).Amount)

	soySales := ComputeTotals(set.SoybeanSales, cur.Month, cur.Year)
	soyPurchases := ComputeTotals(set.SoybeanPurchases, cur.Month, cur.Year)

	s := Summary{
		Period:     p,
		Current:    cur,
		Previous:   prev,
		Comparison: p.ComparisonLabel(),
		Cards: []Card{
			weightCard(SilageSales.Label(), Revenue, silageCur, silagePrev),
			weightCard(MaizePurchases.Label(), Cost, maizeCur, maizePrev),
			amountCard(OtherExpenses.Label(), Cost, expensesCur, expensesPrev),
		},
		SalesByProduct: nonZero(
			Slice{Label: "Silage", Value: silageCur.Amount},
			Slice{Label: "Soybean", Value: soySales.Amount},
		),
		PurchasesByProduct: nonZero(
			Slice{Label: "Maize", Value: maizeCur.Amount},
			Slice{Label: "Soybean", Value: soyPurchases.Amount},
		),
	}
	for i, v := range MonthlyWeights(set.SilageSales, p.Year) {
		s.MonthlySilageTons[i] = v.StringFixed(2)
	}
	return s
}

func amountCard(title string, kind CardKind, cur, prev decimal.Decimal) Card {
	change := Change(cur, prev)
	return Card{
		Title:          title,
		Kind:           kind,
		Amount:         cur,
		PreviousAmount: prev,
		Change:         change,
		Increase:       change >= 0,
		Favorable:      kind.Favorable(change),
	}
}

func weightCard(title string, kind CardKind, cur, prev Totals) Card {
	c := amountCard(title, kind, cur.Amount, prev.Amount)
	wc := Change(cur.Weight, prev.Weight)
	c.Weight = &cur.Weight
	c.PreviousWeight = &prev.Weight
	c.WeightChange = &wc
	return c
}

func nonZero(slices ...Slice) []Slice {
	out := make([]Slice, 0, len(slices))
	for _, s := range slices {
		if !s.Value.IsZero() {
			out = append(out, s)
		}
	}
	return out
}
