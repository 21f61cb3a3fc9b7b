package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AwardSource string // Where the winning value came from

const (
	AwardFromBid      AwardSource = "bid"      // Lowest accepted bid
	AwardFromBaseline AwardSource = "baseline" // No bids; baseline snapshot
	AwardNone         AwardSource = "none"     // No bids and empty baseline
)

// AwardDecision is the immutable outcome written when a selection closes.
// SupplierID and Value are nil when Source is AwardNone.
type AwardDecision struct {
	ID          string           `json:"id"`
	SelectionID string           `json:"selectionId"`
	SupplierID  *string          `json:"supplierId,omitempty"`
	Value       *decimal.Decimal `json:"value,omitempty"`
	Source      AwardSource      `json:"source"`
	DecidedAt   time.Time        `json:"decidedAt"`
	Breakdown   []AwardLine      `json:"breakdown,omitempty"`
}

// AwardLine is one per-item or per-lot entry of the decision breakdown,
// present when the criterion awards scopes independently.
type AwardLine struct {
	Scope      FloorScope      `json:"scope"`
	ScopeID    string          `json:"scopeId"`
	SupplierID string          `json:"supplierId"`
	Value      decimal.Decimal `json:"value"`
}
