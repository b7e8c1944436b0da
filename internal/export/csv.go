// Package export renders ledger records as downloadable CSV files.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"suryasakshi/internal/core"

	"github.com/shopspring/decimal"
)

// NoDataMessage is returned to the user when the filtered set is empty.
const NoDataMessage = "No data available to export for the selected period."

// Column maps a record key to its header label.
type Column struct {
	Key   string
	Label string
}

// WriteCSV writes a header row followed by one row per record. Every field
// is double-quoted with embedded quotes doubled. Rows are separated by "\n"
// with no trailing newline.
func WriteCSV(w io.Writer, headers []Column, rows []map[string]any) error {
	var b strings.Builder

	for i, h := range headers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(h.Label))
	}
	for _, row := range rows {
		b.WriteByte('\n')
		for i, h := range headers {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(formatValue(row[h.Key])))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return guardFormula(x)
	case decimal.Decimal:
		return x.String()
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.DateOnly)
	case fmt.Stringer:
		return guardFormula(x.String())
	default:
		return guardFormula(fmt.Sprint(x))
	}
}

// guardFormula neutralises cells a spreadsheet would evaluate as a formula.
// Plain numbers pass through.
func guardFormula(s string) string {
	if s == "" {
		return s
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// Rows flattens records into key/value maps using their JSON field names.
func Rows[T core.Record](records []T) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", rec.RecordID(), err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		row := map[string]any{}
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", rec.RecordID(), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Filename returns <category>_<month name or Full-Year>_<year>.csv.
func Filename(category core.Category, p core.Period) string {
	return fmt.Sprintf("%s_%s_%d.csv", category, p.MonthName(), p.Year)
}
