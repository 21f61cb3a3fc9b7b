package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/evaluation"
	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/repository"
)

// loadEvaluationInput assembles the pure evaluation view of a quotation:
// its items plus every valid (non-rejected) response with its item prices.
func loadEvaluationInput(
	ctx context.Context,
	quotation *models.Quotation,
	quotations repository.QuotationRepository,
	responses repository.ResponseRepository,
) (evaluation.Quotation, []evaluation.Response, error) {
	items, err := quotations.GetItems(ctx, quotation.ID)
	if err != nil {
		return evaluation.Quotation{}, nil, err
	}

	view := evaluation.Quotation{Criterion: quotation.Criterion}
	for _, item := range items {
		lotID := ""
		if item.LotID != nil {
			lotID = *item.LotID
		}
		view.Items = append(view.Items, evaluation.Item{
			ID:       item.ID,
			LotID:    lotID,
			Quantity: item.Quantity,
		})
	}

	supplierResponses, err := responses.GetResponses(ctx, quotation.ID)
	if err != nil {
		return evaluation.Quotation{}, nil, err
	}
	itemResponses, err := responses.GetItemResponses(ctx, quotation.ID)
	if err != nil {
		return evaluation.Quotation{}, nil, err
	}

	grouped := make(map[string]map[string]decimal.Decimal)
	for _, ir := range itemResponses {
		if grouped[ir.ResponseID] == nil {
			grouped[ir.ResponseID] = make(map[string]decimal.Decimal)
		}
		grouped[ir.ResponseID][ir.ItemID] = ir.UnitPrice
	}

	var valid []evaluation.Response
	for _, sr := range supplierResponses {
		if sr.Rejected {
			continue
		}
		prices := grouped[sr.ID]
		if prices == nil {
			prices = make(map[string]decimal.Decimal)
		}
		valid = append(valid, evaluation.Response{
			SupplierID:      sr.SupplierID,
			Total:           sr.Total,
			DiscountPercent: sr.DiscountPercent,
			SubmittedAt:     sr.SubmittedAt,
			Prices:          prices,
		})
	}
	return view, valid, nil
}
