package evaluation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/models"
)

// Evaluate runs the award criterion over the valid responses and returns the
// consolidated baseline plus the winner attributions.
//
// Semantics per criterion:
//   - global: only responses that priced every item compete; the lowest total
//     wins all items.
//   - per_item: each item goes to the lowest unit price among the responses
//     that priced it; incompleteness excludes a response for that item only.
//   - per_lot: each lot goes to the lowest sum of quantity×price over the
//     lot's items, among responses that priced the whole lot.
//   - discount: the highest discount percentage wins globally; responses
//     without a discount are excluded.
//
// Exact ties resolve to the earliest submission, then supplier id, so the
// output is fully deterministic. The per-item floors are computed for every
// criterion since they seed the auction snapshot.
func Evaluate(q Quotation, responses []Response) Result {
	// Deterministic iteration order regardless of caller ordering.
	ordered := make([]Response, len(responses))
	copy(ordered, responses)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].SubmittedAt.Equal(ordered[j].SubmittedAt) {
			return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
		}
		return ordered[i].SupplierID < ordered[j].SupplierID
	})

	result := Result{
		Baseline: Baseline{
			ItemFloors: make(map[string]Floor),
			LotFloors:  make(map[string]Floor),
		},
	}
	if len(ordered) == 0 || len(q.Items) == 0 {
		return result
	}

	fillItemFloors(q, ordered, &result.Baseline)

	switch q.Criterion {
	case models.CriterionPerItem:
		evaluatePerItem(q, &result)
	case models.CriterionPerLot:
		evaluatePerLot(q, ordered, &result)
	case models.CriterionDiscount:
		evaluateDiscount(ordered, &result)
	default: // global
		evaluateGlobal(q, ordered, &result)
	}
	return result
}

// fillItemFloors computes the lowest valid unit price per item across all
// responses. An item nobody priced gets no floor.
func fillItemFloors(q Quotation, ordered []Response, b *Baseline) {
	for _, item := range q.Items {
		for _, r := range ordered {
			price, ok := r.Prices[item.ID]
			if !ok {
				continue
			}
			current, exists := b.ItemFloors[item.ID]
			if !exists || price.LessThan(current.Price) {
				b.ItemFloors[item.ID] = Floor{SupplierID: r.SupplierID, Price: price}
			}
		}
	}
}

// responseTotal recomputes a response's comparable total from item prices
// when present, falling back to the declared total.
func responseTotal(q Quotation, r Response) decimal.Decimal {
	if len(r.Prices) == 0 {
		return r.Total
	}
	total := decimal.Zero
	for _, item := range q.Items {
		price, ok := r.Prices[item.ID]
		if !ok {
			continue
		}
		total = total.Add(item.Quantity.Mul(price))
	}
	return total
}

func evaluateGlobal(q Quotation, ordered []Response, result *Result) {
	var winner *Response
	var winnerTotal decimal.Decimal
	for i := range ordered {
		r := &ordered[i]
		if !completeForItems(*r, q.Items) {
			continue
		}
		total := responseTotal(q, *r)
		// Strict comparison keeps the earliest submission on ties, since
		// ordered is sorted by submission time.
		if winner == nil || total.LessThan(winnerTotal) {
			winner = r
			winnerTotal = total
		}
	}
	if winner == nil {
		return
	}
	result.Baseline.Total = &winnerTotal
	result.Winners = append(result.Winners, Winner{
		Scope:      models.GlobalFloor,
		SupplierID: winner.SupplierID,
		Value:      winnerTotal,
	})
}

func evaluatePerItem(q Quotation, result *Result) {
	total := decimal.Zero
	any := false
	for _, item := range q.Items {
		floor, ok := result.Baseline.ItemFloors[item.ID]
		if !ok {
			continue
		}
		any = true
		total = total.Add(item.Quantity.Mul(floor.Price))
		result.Winners = append(result.Winners, Winner{
			Scope:      models.ItemFloor,
			ScopeID:    item.ID,
			SupplierID: floor.SupplierID,
			Value:      floor.Price,
		})
	}
	if any {
		result.Baseline.Total = &total
	}
}

func evaluatePerLot(q Quotation, ordered []Response, result *Result) {
	lotItems := make(map[string][]Item)
	lotOrder := make([]string, 0)
	for _, item := range q.Items {
		if item.LotID == "" {
			continue
		}
		if _, seen := lotItems[item.LotID]; !seen {
			lotOrder = append(lotOrder, item.LotID)
		}
		lotItems[item.LotID] = append(lotItems[item.LotID], item)
	}

	total := decimal.Zero
	any := false
	for _, lotID := range lotOrder {
		items := lotItems[lotID]
		var best *Floor
		for _, r := range ordered {
			sum, ok := lotSum(r, items)
			if !ok {
				continue
			}
			if best == nil || sum.LessThan(best.Price) {
				best = &Floor{SupplierID: r.SupplierID, Price: sum}
			}
		}
		if best == nil {
			continue
		}
		any = true
		total = total.Add(best.Price)
		result.Baseline.LotFloors[lotID] = *best
		result.Winners = append(result.Winners, Winner{
			Scope:      models.LotFloor,
			ScopeID:    lotID,
			SupplierID: best.SupplierID,
			Value:      best.Price,
		})
	}
	if any {
		result.Baseline.Total = &total
	}
}

// lotSum returns the response's quantity-weighted sum over the lot's items.
// A response missing any item of the lot is excluded for that lot only.
func lotSum(r Response, items []Item) (decimal.Decimal, bool) {
	sum := decimal.Zero
	for _, item := range items {
		price, ok := r.Prices[item.ID]
		if !ok {
			return decimal.Zero, false
		}
		sum = sum.Add(item.Quantity.Mul(price))
	}
	return sum, true
}

// evaluateDiscount picks the highest discount percentage globally. How the
// percentage interacts with per-item estimates is unresolved upstream, so the
// winner's declared total stands in as the baseline ceiling when present.
func evaluateDiscount(ordered []Response, result *Result) {
	var winner *Response
	for i := range ordered {
		r := &ordered[i]
		if r.DiscountPercent == nil {
			continue
		}
		if winner == nil || r.DiscountPercent.GreaterThan(*winner.DiscountPercent) {
			winner = r
		}
	}
	if winner == nil {
		return
	}
	if winner.Total.IsPositive() {
		t := winner.Total
		result.Baseline.Total = &t
	}
	result.Winners = append(result.Winners, Winner{
		Scope:      models.GlobalFloor,
		SupplierID: winner.SupplierID,
		Value:      *winner.DiscountPercent,
	})
}

// completeForItems reports whether the response priced every item.
func completeForItems(r Response, items []Item) bool {
	for _, item := range items {
		if _, ok := r.Prices[item.ID]; !ok {
			return false
		}
	}
	return true
}
