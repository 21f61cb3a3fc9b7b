package evaluation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/models"
)

// Quotation is the read-only view the engine evaluates: the criterion and the
// item list. It carries no storage concerns.
type Quotation struct {
	Criterion models.AwardCriterion
	Items     []Item
}

// Item is one line of the quotation as seen by the engine.
type Item struct {
	ID       string
	LotID    string // empty when the item belongs to no lot
	Quantity decimal.Decimal
}

// Response is one valid (non-rejected) supplier response. Prices maps item id
// to offered unit price; a missing key means the response is incomplete for
// that item.
type Response struct {
	SupplierID      string
	Total           decimal.Decimal
	DiscountPercent *decimal.Decimal
	SubmittedAt     time.Time
	Prices          map[string]decimal.Decimal
}

// Floor is the lowest valid price found for one scope (item, lot or the whole
// quotation) and the supplier that offered it.
type Floor struct {
	SupplierID string
	Price      decimal.Decimal
}

// Baseline is the consolidated baseline: a pure function of the criterion and
// the valid responses, recomputable at any time. Items or lots nobody priced
// are simply absent, never zero.
type Baseline struct {
	ItemFloors map[string]Floor // item id → lowest valid unit price
	LotFloors  map[string]Floor // lot id → lowest valid lot sum
	Total      *decimal.Decimal // opening ceiling for the auction, nil when empty
}

// Winner is one award attribution produced by the evaluation.
type Winner struct {
	Scope      models.FloorScope
	ScopeID    string // empty for global winners
	SupplierID string
	Value      decimal.Decimal
}

// Result bundles the baseline and the winner attributions. Zero valid
// responses yield an empty baseline and no winners, not an error.
type Result struct {
	Baseline Baseline
	Winners  []Winner
}

// Empty reports whether the evaluation produced no baseline at all.
func (b Baseline) Empty() bool {
	return len(b.ItemFloors) == 0 && len(b.LotFloors) == 0 && b.Total == nil
}
