package constants

// Expense categories assigned to exported bill rows.
const (
	PurchasesCategory = "Purchases"
	FreightCategory   = "Freight and shipping costs"
)

// Product/service labels for non-stock line items. These exact strings are
// what the accounting import expects, and the comparator treats them as
// non-SKU rows.
const (
	ProductServiceCore     = "Core"
	ProductServiceERE      = "E.R.E."
	ProductServiceDiscount = "DPP Discount"
	ProductServiceShipping = "Shipping"
)

// ProductServiceInventory labels a regular sellable product row.
const ProductServiceInventory = "Inventory Item (Sellable Item)"

// Row types recognized by the accounting import.
const (
	RowTypeCategory = "Category Details"
	RowTypeItem     = "Item Details"
)

// DefaultUnits is the unit-of-measure used when an invoice does not state one.
const DefaultUnits = "Each"
