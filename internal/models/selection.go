package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SelectionStatus string // Lifecycle status of an auction session

const (
	PlannedSelection   SelectionStatus = "planned"   // Created, not yet accepting bids
	DisputingSelection SelectionStatus = "disputing" // Bidding window, gated by scheduled time
	ClosedSelection    SelectionStatus = "closed"    // Finished, terminal
	CancelledSelection SelectionStatus = "cancelled" // Abandoned, terminal; bids retained
)

// ValidSelectionStatus reports whether s is one of the supported statuses.
func ValidSelectionStatus(s SelectionStatus) bool {
	switch s {
	case PlannedSelection, DisputingSelection, ClosedSelection, CancelledSelection:
		return true
	default:
		return false
	}
}

// Selection is a scheduled reverse-auction session derived from a closed
// quotation. BaselineTotal is the opening ceiling, snapshotted at open time.
type Selection struct {
	ID            string           `json:"id"`
	QuotationID   string           `json:"quotationId"`
	Status        SelectionStatus  `json:"status"`
	Criterion     AwardCriterion   `json:"criterion"`
	ScheduledAt   time.Time        `json:"scheduledAt"`
	BaselineTotal *decimal.Decimal `json:"baselineTotal,omitempty"`
	CancelReason  *string          `json:"cancelReason,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Active reports whether the selection accepts bids at the given instant.
// There is no scheduler; this predicate is re-evaluated on every bid attempt.
func (s *Selection) Active(now time.Time) bool {
	return s.Status == DisputingSelection && !now.Before(s.ScheduledAt)
}

// Bid is a supplier's strictly-lower offer within an active selection.
// Immutable once accepted; there is no retraction.
type Bid struct {
	ID          string          `json:"id"`
	SelectionID string          `json:"selectionId"`
	SupplierID  string          `json:"supplierId"`
	Value       decimal.Decimal `json:"value"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// BidResult is the outcome of an atomic bid attempt. When Accepted is false
// the bid lost the race or was not below the floor; CurrentLowest carries the
// value the caller must now beat.
type BidResult struct {
	Accepted      bool            `json:"accepted"`
	Bid           *Bid            `json:"bid,omitempty"`
	CurrentLowest decimal.Decimal `json:"currentLowest"`
}

type FloorScope string // Scope of a baseline floor snapshot row

const (
	ItemFloor   FloorScope = "item"
	LotFloor    FloorScope = "lot"
	GlobalFloor FloorScope = "global"
)

// SelectionFloor is one row of the baseline snapshot taken when a selection
// opens: the lowest valid price for an item or lot and the supplier behind it.
type SelectionFloor struct {
	SelectionID string          `json:"selectionId"`
	Scope       FloorScope      `json:"scope"`
	ScopeID     string          `json:"scopeId"`
	SupplierID  string          `json:"supplierId"`
	Price       decimal.Decimal `json:"price"`
}

// SelectionRequest represents the request body for opening a session.
type SelectionRequest struct {
	QuotationID string    `json:"quotationId" validate:"required"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// BidRequest represents the request body for submitting a bid.
type BidRequest struct {
	SupplierID string          `json:"supplierId" validate:"required"`
	Value      decimal.Decimal `json:"value"`
}
