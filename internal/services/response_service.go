package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/audit"
	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/repository"
)

// ResponseService is the response collector: it accepts one priced response
// per supplier per quotation and validates it against the item list.
type ResponseService struct {
	Repo       repository.ResponseRepository
	Quotations repository.QuotationRepository
	sink       audit.Sink
	validate   *validator.Validate
}

// NewResponseService creates a new ResponseService.
func NewResponseService(repo repository.ResponseRepository, quotations repository.QuotationRepository, sink audit.Sink) *ResponseService {
	return &ResponseService{
		Repo:       repo,
		Quotations: quotations,
		sink:       sink,
		validate:   validator.New(),
	}
}

// SubmitResponse stores a supplier's priced response. Items without a price
// are allowed and leave the response incomplete for those items; what that
// means is decided later by the award criterion, not here. A resubmission is
// rejected, never overwritten.
func (s *ResponseService) SubmitResponse(ctx context.Context, quotationID string, req models.ResponseRequest) (*models.SupplierResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "missing required fields")
	}

	quotation, err := s.Quotations.GetQuotation(ctx, quotationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "quotation not found")
	}
	if err != nil {
		return nil, err
	}
	if quotation.Status != models.OpenQuotation {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "quotation is not open")
	}
	if !time.Now().Before(quotation.Deadline) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindTiming, "response deadline has expired")
	}

	invited, excluded, err := s.Quotations.SupplierStanding(ctx, quotationID, req.SupplierID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, models.KindInternal, "failed to check supplier standing")
	}
	if !invited {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.KindEligibility, "supplier is not invited to this quotation")
	}
	if excluded {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.KindEligibility, "supplier is excluded from this quotation")
	}
	if req.DiscountPercent != nil && !req.DiscountPercent.IsPositive() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "discount percent must be positive")
	}

	items, err := s.Quotations.GetItems(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[string]models.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	total := decimal.Zero
	responseID := uuid.New().String()
	prices := make([]models.ItemResponse, 0, len(req.ItemPrices))
	for itemID, price := range req.ItemPrices {
		item, ok := itemsByID[itemID]
		if !ok {
			return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "price given for an item not on this quotation")
		}
		if !price.IsPositive() {
			return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "unit prices must be positive")
		}
		total = total.Add(item.Quantity.Mul(price))
		prices = append(prices, models.ItemResponse{
			ResponseID: responseID,
			ItemID:     itemID,
			UnitPrice:  price,
		})
	}

	response := models.SupplierResponse{
		ID:              responseID,
		QuotationID:     quotationID,
		SupplierID:      req.SupplierID,
		Total:           total,
		DiscountPercent: req.DiscountPercent,
		SubmittedAt:     time.Now().UTC(),
	}
	err = s.Repo.CreateResponse(ctx, response, prices)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, models.NewErrorResponse(http.StatusConflict, models.KindValidation, "supplier has already responded to this quotation")
	}
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, audit.NewEvent(audit.EventResponseSubmitted, map[string]any{
		"quotationId": quotationID,
		"supplierId":  req.SupplierID,
		"responseId":  responseID,
		"pricedItems": len(prices),
		"totalItems":  len(items),
	}))
	return &response, nil
}

// GetResponses lists the quotation's responses, rejected ones included.
func (s *ResponseService) GetResponses(ctx context.Context, quotationID string) ([]models.SupplierResponse, error) {
	if _, err := s.Quotations.GetQuotation(ctx, quotationID); errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "quotation not found")
	} else if err != nil {
		return nil, err
	}
	return s.Repo.GetResponses(ctx, quotationID)
}

// RejectResponse excludes a response from evaluation without deleting it.
func (s *ResponseService) RejectResponse(ctx context.Context, responseID string) (*models.SupplierResponse, error) {
	response, err := s.Repo.RejectResponse(ctx, responseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "response not found")
	}
	return response, err
}
