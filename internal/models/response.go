package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplierResponse is a supplier's priced reply to a quotation. One per
// (quotation, supplier); never mutated after submission. Rejected responses
// stay stored but are excluded from evaluation.
type SupplierResponse struct {
	ID              string           `json:"id"`
	QuotationID     string           `json:"quotationId"`
	SupplierID      string           `json:"supplierId"`
	Total           decimal.Decimal  `json:"total"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	Rejected        bool             `json:"rejected"`
	SubmittedAt     time.Time        `json:"submittedAt"`
}

// ItemResponse is the per-item breakdown of a supplier response. A response
// without an ItemResponse for some item is incomplete for that item.
type ItemResponse struct {
	ResponseID string          `json:"responseId"`
	ItemID     string          `json:"itemId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// ResponseRequest represents the request body for submitting a response.
// ItemPrices maps item id to offered unit price; items may be omitted, which
// leaves the response incomplete for those items.
type ResponseRequest struct {
	SupplierID      string                     `json:"supplierId" validate:"required"`
	ItemPrices      map[string]decimal.Decimal `json:"itemPrices"`
	DiscountPercent *decimal.Decimal           `json:"discountPercent,omitempty"`
}
