package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/models"
)

func newResponseFixture() (*ResponseService, *fakeQuotationRepo, *fakeResponseRepo) {
	quotations := newFakeQuotationRepo()
	responses := newFakeResponseRepo()
	service := NewResponseService(responses, quotations, &recordingSink{})
	return service, quotations, responses
}

// seedOpenQuotation stores an open quotation with two items (quantities 2 and
// 3) and one invited supplier.
func seedOpenQuotation(quotations *fakeQuotationRepo, deadline time.Time) (string, []string) {
	ctx := context.Background()
	q := models.Quotation{
		ID:        uuid.New().String(),
		Title:     "cleaning services",
		Status:    models.OpenQuotation,
		Criterion: models.CriterionGlobal,
		Deadline:  deadline,
		CreatedAt: time.Now().UTC(),
	}
	quotations.put(q)

	var itemIDs []string
	for _, quantity := range []string{"2", "3"} {
		item, _ := quotations.AddItem(ctx, q.ID, models.ItemRequest{
			Description: "item",
			Quantity:    dec(quantity),
			Unit:        "unit",
		})
		itemIDs = append(itemIDs, item.ID)
	}
	_ = quotations.InviteSupplier(ctx, q.ID, "acme")
	return q.ID, itemIDs
}

func TestSubmitResponseComputesQuantityWeightedTotal(t *testing.T) {
	ctx := context.Background()
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	response, err := service.SubmitResponse(ctx, quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{
			itemIDs[0]: dec("10"), // qty 2
			itemIDs[1]: dec("20"), // qty 3
		},
	})
	assert.Nil(t, err)
	check.Equal(t, "acme", response.SupplierID)
	check.True(t, response.Total.Equal(dec("80")))
	check.False(t, response.Rejected)
}

func TestSubmitResponseAllowsPartialPricing(t *testing.T) {
	ctx := context.Background()
	service, quotations, responses := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	// Only the first item priced. The response is stored as-is; what the gap
	// means is the award criterion's business at evaluation time.
	response, err := service.SubmitResponse(ctx, quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	})
	assert.Nil(t, err)
	check.True(t, response.Total.Equal(dec("20")))

	prices, err := responses.GetItemResponses(ctx, quotationID)
	assert.Nil(t, err)
	check.Equal(t, 1, len(prices))
}

func TestSubmitResponseAfterDeadline(t *testing.T) {
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(-time.Minute))

	_, err := service.SubmitResponse(context.Background(), quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	})
	asKind(t, err, models.KindTiming)
}

func TestSubmitResponseRequiresInvitation(t *testing.T) {
	ctx := context.Background()
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	_, err := service.SubmitResponse(ctx, quotationID, models.ResponseRequest{
		SupplierID: "stranger",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	})
	resp := asKind(t, err, models.KindEligibility)
	check.Equal(t, 403, resp.StatusCode)

	assert.Nil(t, quotations.ExcludeSupplier(ctx, quotationID, "acme"))
	_, err = service.SubmitResponse(ctx, quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	})
	asKind(t, err, models.KindEligibility)
}

func TestSubmitResponseRejectsResubmission(t *testing.T) {
	ctx := context.Background()
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	req := models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	}
	_, err := service.SubmitResponse(ctx, quotationID, req)
	assert.Nil(t, err)

	_, err = service.SubmitResponse(ctx, quotationID, req)
	resp := asKind(t, err, models.KindValidation)
	check.Equal(t, 409, resp.StatusCode)
}

func TestSubmitResponseRejectsUnknownItem(t *testing.T) {
	service, quotations, _ := newResponseFixture()
	quotationID, _ := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	_, err := service.SubmitResponse(context.Background(), quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{uuid.New().String(): dec("10")},
	})
	asKind(t, err, models.KindValidation)
}

func TestSubmitResponseRejectsNonPositivePrice(t *testing.T) {
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	_, err := service.SubmitResponse(context.Background(), quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("0")},
	})
	asKind(t, err, models.KindValidation)
}

func TestSubmitResponseRejectsClosedQuotation(t *testing.T) {
	ctx := context.Background()
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))
	_, _ = quotations.UpdateQuotationStatus(ctx, quotationID, models.ClosedQuotation)

	_, err := service.SubmitResponse(ctx, quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	})
	asKind(t, err, models.KindState)
}

func TestRejectResponseFlagsWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	service, quotations, _ := newResponseFixture()
	quotationID, itemIDs := seedOpenQuotation(quotations, time.Now().Add(time.Hour))

	response, err := service.SubmitResponse(ctx, quotationID, models.ResponseRequest{
		SupplierID: "acme",
		ItemPrices: map[string]decimal.Decimal{itemIDs[0]: dec("10")},
	})
	assert.Nil(t, err)

	rejected, err := service.RejectResponse(ctx, response.ID)
	assert.Nil(t, err)
	check.True(t, rejected.Rejected)

	// Still listed, just excluded from evaluation.
	stored, err := service.GetResponses(ctx, quotationID)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(stored))
	check.True(t, stored[0].Rejected)
}

func TestRejectResponseNotFound(t *testing.T) {
	service, _, _ := newResponseFixture()
	_, err := service.RejectResponse(context.Background(), uuid.New().String())
	resp := asKind(t, err, models.KindNotFound)
	check.Equal(t, 404, resp.StatusCode)
}
