package export

import "suryasakshi/internal/core"

var columns = map[core.Category][]Column{
	core.SilageSales: {
		{"invoice_no", "Invoice No"},
		{"date_of_purchase", "Date"},
		{"buyer_name", "Buyer Name"},
		{"mobile_no", "Mobile No"},
		{"address", "Address"},
		{"weight_kg", "Weight (Kg)"},
		{"rate", "Rate"},
		{"total_amount", "Total Amount"},
		{"payment_status", "Payment Status"},
		{"paid_amount", "Paid Amount"},
	},
	core.MaizePurchases: {
		{"date_of_purchase", "Date"},
		{"farmer_name", "Farmer Name"},
		{"address", "Address"},
		{"weight_kg", "Weight (Kg)"},
		{"rate", "Rate"},
		{"total_amount", "Total Amount"},
		{"payment_status", "Payment Status"},
	},
	core.OtherExpenses: {
		{"date_of_expense", "Date"},
		{"expense_name", "Expense"},
		{"amount", "Amount"},
	},
	core.SoybeanPurchases: {
		{"date_of_purchase", "Date"},
		{"seller_name", "Seller Name"},
		{"weight_quintal", "Weight (Quintal)"},
		{"rate", "Rate"},
		{"total_price", "Total Price"},
		{"payment_status", "Payment Status"},
	},
	core.SoybeanSales: {
		{"date_of_sale", "Date"},
		{"buyer_name", "Buyer Name"},
		{"quantity", "Quantity"},
		{"rate", "Rate"},
		{"total_price", "Total Price"},
		{"payment_status", "Payment Status"},
	},
	core.Purchases: {
		{"purchase_date", "Date"},
		{"seller_name", "Seller Name"},
		{"mobile_no", "Mobile No"},
		{"product", "Product"},
		{"amount", "Amount"},
	},
}

// Columns returns the export headers for a category.
func Columns(c core.Category) []Column {
	return columns[c]
}
