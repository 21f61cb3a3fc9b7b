package evaluation

import (
	"reflect"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quotation(criterion models.AwardCriterion, items ...Item) Quotation {
	return Quotation{Criterion: criterion, Items: items}
}

func item(id string) Item {
	return Item{ID: id, Quantity: decimal.NewFromInt(1)}
}

func lotItem(id, lotID string) Item {
	return Item{ID: id, LotID: lotID, Quantity: decimal.NewFromInt(1)}
}

func response(supplier string, submittedAt time.Time, prices map[string]string) Response {
	p := make(map[string]decimal.Decimal, len(prices))
	total := decimal.Zero
	for id, v := range prices {
		p[id] = dec(v)
		total = total.Add(dec(v))
	}
	return Response{SupplierID: supplier, Total: total, SubmittedAt: submittedAt, Prices: p}
}

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestEvaluatePerItemScenario(t *testing.T) {
	// Two suppliers, three items: A offers (10,20,30), B offers (12,18,29).
	// Expected floors: item1→A@10, item2→B@18, item3→B@29.
	q := quotation(models.CriterionPerItem, item("i1"), item("i2"), item("i3"))
	responses := []Response{
		response("A", t0, map[string]string{"i1": "10", "i2": "20", "i3": "30"}),
		response("B", t0.Add(time.Minute), map[string]string{"i1": "12", "i2": "18", "i3": "29"}),
	}

	result := Evaluate(q, responses)

	check.Equal(t, 3, len(result.Baseline.ItemFloors))
	check.Equal(t, Floor{SupplierID: "A", Price: dec("10")}, result.Baseline.ItemFloors["i1"])
	check.Equal(t, Floor{SupplierID: "B", Price: dec("18")}, result.Baseline.ItemFloors["i2"])
	check.Equal(t, Floor{SupplierID: "B", Price: dec("29")}, result.Baseline.ItemFloors["i3"])

	check.Equal(t, 3, len(result.Winners))
	check.True(t, result.Baseline.Total.Equal(dec("57")))
}

func TestEvaluatePerItemUnpricedItemHasNoFloor(t *testing.T) {
	q := quotation(models.CriterionPerItem, item("i1"), item("i2"))
	responses := []Response{
		response("A", t0, map[string]string{"i1": "10"}),
	}

	result := Evaluate(q, responses)

	// i2 is absent from the baseline, not priced at zero.
	_, ok := result.Baseline.ItemFloors["i2"]
	check.False(t, ok)
	check.Equal(t, 1, len(result.Winners))
	check.True(t, result.Baseline.Total.Equal(dec("10")))
}

func TestEvaluateGlobalIncompleteResponseNeverWins(t *testing.T) {
	q := quotation(models.CriterionGlobal, item("i1"), item("i2"))
	responses := []Response{
		// Cheapest on its priced subset, but incomplete: excluded entirely.
		response("cheap-incomplete", t0, map[string]string{"i1": "1"}),
		response("complete", t0.Add(time.Minute), map[string]string{"i1": "10", "i2": "10"}),
	}

	result := Evaluate(q, responses)

	check.Equal(t, 1, len(result.Winners))
	check.Equal(t, "complete", result.Winners[0].SupplierID)
	check.Equal(t, models.GlobalFloor, result.Winners[0].Scope)
	check.True(t, result.Baseline.Total.Equal(dec("20")))
}

func TestEvaluateGlobalTieBreaksToEarliestSubmission(t *testing.T) {
	q := quotation(models.CriterionGlobal, item("i1"))
	responses := []Response{
		response("late", t0.Add(time.Hour), map[string]string{"i1": "10"}),
		response("early", t0, map[string]string{"i1": "10"}),
	}

	result := Evaluate(q, responses)

	check.Equal(t, "early", result.Winners[0].SupplierID)
}

func TestEvaluatePerLot(t *testing.T) {
	q := quotation(models.CriterionPerLot,
		lotItem("i1", "l1"), lotItem("i2", "l1"), lotItem("i3", "l2"))
	responses := []Response{
		response("A", t0, map[string]string{"i1": "10", "i2": "10", "i3": "50"}),
		// B misses i2, so B is excluded from lot l1 but still competes on l2.
		response("B", t0.Add(time.Minute), map[string]string{"i1": "1", "i3": "40"}),
	}

	result := Evaluate(q, responses)

	check.Equal(t, Floor{SupplierID: "A", Price: dec("20")}, result.Baseline.LotFloors["l1"])
	check.Equal(t, Floor{SupplierID: "B", Price: dec("40")}, result.Baseline.LotFloors["l2"])
	check.True(t, result.Baseline.Total.Equal(dec("60")))
	check.Equal(t, 2, len(result.Winners))
}

func TestEvaluateDiscountHighestWins(t *testing.T) {
	// The upstream rule for combining discount percentages with per-item
	// estimates is unspecified; the engine takes "highest percentage wins
	// globally" and this test pins that reading down.
	five := dec("5")
	twelve := dec("12")
	q := quotation(models.CriterionDiscount, item("i1"))
	responses := []Response{
		{SupplierID: "A", Total: dec("100"), DiscountPercent: &five, SubmittedAt: t0},
		{SupplierID: "B", Total: dec("110"), DiscountPercent: &twelve, SubmittedAt: t0.Add(time.Minute)},
		{SupplierID: "C", Total: dec("90"), SubmittedAt: t0}, // no discount, excluded
	}

	result := Evaluate(q, responses)

	check.Equal(t, 1, len(result.Winners))
	check.Equal(t, "B", result.Winners[0].SupplierID)
	check.True(t, result.Winners[0].Value.Equal(twelve))
	check.True(t, result.Baseline.Total.Equal(dec("110")))
}

func TestEvaluateZeroResponses(t *testing.T) {
	q := quotation(models.CriterionGlobal, item("i1"))

	result := Evaluate(q, nil)

	check.True(t, result.Baseline.Empty())
	check.Equal(t, 0, len(result.Winners))
}

func TestEvaluateIsIdempotent(t *testing.T) {
	q := quotation(models.CriterionPerItem, item("i1"), item("i2"))
	responses := []Response{
		response("A", t0, map[string]string{"i1": "10", "i2": "20"}),
		response("B", t0.Add(time.Minute), map[string]string{"i1": "12", "i2": "18"}),
	}

	first := Evaluate(q, responses)
	second := Evaluate(q, responses)

	check.True(t, reflect.DeepEqual(first, second))
}

func TestEvaluateQuantityWeightedTotals(t *testing.T) {
	q := quotation(models.CriterionGlobal,
		Item{ID: "i1", Quantity: dec("3")},
		Item{ID: "i2", Quantity: dec("2")},
	)
	responses := []Response{
		response("A", t0, map[string]string{"i1": "10", "i2": "5"}),
	}

	result := Evaluate(q, responses)

	// 3×10 + 2×5, recomputed from item prices rather than the declared total.
	check.True(t, result.Baseline.Total.Equal(dec("40")))
}
