package export

import (
	"strings"
	"testing"

	"suryasakshi/internal/core"

	"github.com/shopspring/decimal"
)

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name    string
		headers []Column
		rows    []map[string]any
		want    string
	}{
		{
			name:    "basic",
			headers: []Column{{"id", "ID"}, {"amount", "Amount"}},
			rows:    []map[string]any{{"id": 1, "amount": 250.5}},
			want:    `"ID","Amount"` + "\n" + `"1","250.5"`,
		},
		{
			name:    "embedded quotes and missing keys",
			headers: []Column{{"name", `Name "full"`}, {"note", "Note"}},
			rows:    []map[string]any{{"name": `Ram "Bhai"`}},
			want:    `"Name ""full""","Note"` + "\n" + `"Ram ""Bhai""",""`,
		},
		{
			name:    "header only",
			headers: []Column{{"id", "ID"}},
			want:    `"ID"`,
		},
		{
			name:    "formula guard leaves numbers alone",
			headers: []Column{{"a", "A"}, {"b", "B"}, {"c", "C"}},
			rows:    []map[string]any{{"a": "=SUM(A1)", "b": "-12.5", "c": decimal.RequireFromString("-3")}},
			want:    `"A","B","C"` + "\n" + `"'=SUM(A1)","-12.5","-3"`,
		},
		{
			name:    "formula guard on other prefixes",
			headers: []Column{{"a", "A"}, {"b", "B"}, {"c", "C"}},
			rows:    []map[string]any{{"a": "@cmd", "b": "-x", "c": "+91"}},
			want:    `"A","B","C"` + "\n" + `"'@cmd","'-x","+91"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := WriteCSV(&b, tt.headers, tt.rows); err != nil {
				t.Fatal(err)
			}
			if b.String() != tt.want {
				t.Fatalf("got\n%s\nwant\n%s", b.String(), tt.want)
			}
		})
	}
}

func TestRowsUseJSONKeys(t *testing.T) {
	rows, err := Rows([]core.OtherExpense{{
		ID:          3,
		ExpenseName: "Diesel",
		ExpenseDate: core.NewDate(2024, 3, 9),
		Amount:      decimal.RequireFromString("1200.50"),
	}})
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	if err := WriteCSV(&b, Columns(core.OtherExpenses), rows); err != nil {
		t.Fatal(err)
	}
	want := `"Date","Expense","Amount"` + "\n" + `"2024-03-09","Diesel","1200.5"`
	if b.String() != want {
		t.Fatalf("got %q want %q", b.String(), want)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(core.SilageSales, core.Period{Year: 2024, Month: 2}); got != "silage_sales_March_2024.csv" {
		t.Errorf("month filename = %q", got)
	}
	if got := Filename(core.Purchases, core.Period{Year: 2023, Month: core.FullYear}); got != "purchases_Full-Year_2023.csv" {
		t.Errorf("full-year filename = %q", got)
	}
}

func TestColumnsCoverEveryCategory(t *testing.T) {
	for _, c := range core.Categories() {
		if len(Columns(c)) == 0 {
			t.Errorf("no columns for %s", c)
		}
	}
}
