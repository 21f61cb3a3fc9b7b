package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	QuotationStatus string // Lifecycle status of a quotation
	AwardCriterion  string // Rule used to pick winners
)

const (
	OpenQuotation      QuotationStatus = "open"      // Accepting supplier responses
	ClosedQuotation    QuotationStatus = "closed"    // Frozen, ready for evaluation and auction
	CancelledQuotation QuotationStatus = "cancelled" // Abandoned, terminal

	CriterionGlobal   AwardCriterion = "global"   // Lowest complete total wins all items
	CriterionPerItem  AwardCriterion = "per_item" // Lowest unit price wins each item independently
	CriterionPerLot   AwardCriterion = "per_lot"  // Lowest lot sum wins each lot
	CriterionDiscount AwardCriterion = "discount" // Highest discount percentage wins globally
)

// ValidAwardCriterion reports whether c is one of the supported criteria.
func ValidAwardCriterion(c AwardCriterion) bool {
	switch c {
	case CriterionGlobal, CriterionPerItem, CriterionPerLot, CriterionDiscount:
		return true
	default:
		return false
	}
}

// Quotation represents a request for priced responses from invited suppliers.
type Quotation struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      QuotationStatus `json:"status"`
	Criterion   AwardCriterion  `json:"criterion"`
	Deadline    time.Time       `json:"deadline"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Item is a single line being priced. Seq is dense and unique within the
// quotation; deleting an item renumbers the remainder.
type Item struct {
	ID             string          `json:"id"`
	QuotationID    string          `json:"quotationId"`
	Seq            int             `json:"seq"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	LotID          *string         `json:"lotId,omitempty"`
	EstimatedPrice decimal.Decimal `json:"estimatedPrice"`
}

// Lot is an optional grouping of items priced and awarded together.
type Lot struct {
	ID          string `json:"id"`
	QuotationID string `json:"quotationId"`
	Seq         int    `json:"seq"`
	Description string `json:"description"`
}

// QuotationRequest represents the request body for creating a quotation.
type QuotationRequest struct {
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Criterion   AwardCriterion `json:"criterion" validate:"required"`
	Deadline    time.Time      `json:"deadline" validate:"required"`
}

// ItemRequest represents the request body for adding an item to a quotation.
type ItemRequest struct {
	Description    string          `json:"description" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit" validate:"required"`
	LotID          *string         `json:"lotId,omitempty"`
	EstimatedPrice decimal.Decimal `json:"estimatedPrice"`
}

// LotRequest represents the request body for adding a lot to a quotation.
type LotRequest struct {
	Description string `json:"description" validate:"required"`
}
