package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/opencotacao/award-engine/internal/audit"
	"github.com/opencotacao/award-engine/internal/evaluation"
	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/repository"
	"github.com/opencotacao/award-engine/internal/utils"
)

// QuotationService manages quotations, their items, lots and supplier roster,
// and exposes the read-only evaluation of collected responses.
type QuotationService struct {
	Repo      repository.QuotationRepository
	Responses repository.ResponseRepository
	sink      audit.Sink
	validate  *validator.Validate
}

// NewQuotationService creates a new QuotationService.
func NewQuotationService(repo repository.QuotationRepository, responses repository.ResponseRepository, sink audit.Sink) *QuotationService {
	return &QuotationService{
		Repo:      repo,
		Responses: responses,
		sink:      sink,
		validate:  validator.New(),
	}
}

// CreateQuotation creates a new open quotation.
func (s *QuotationService) CreateQuotation(ctx context.Context, req models.QuotationRequest) (*models.Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "missing required fields")
	}
	if !models.ValidAwardCriterion(req.Criterion) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation,
			"invalid criterion, must be 'global', 'per_item', 'per_lot' or 'discount'")
	}
	if !req.Deadline.After(time.Now()) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "deadline must be in the future")
	}
	return s.Repo.CreateQuotation(ctx, req)
}

// GetQuotations returns a page of quotations.
func (s *QuotationService) GetQuotations(ctx context.Context, limitStr, offsetStr string) ([]models.Quotation, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, err.Error())
	}
	return s.Repo.GetQuotations(ctx, limit, offset)
}

// GetQuotation returns a quotation by id.
func (s *QuotationService) GetQuotation(ctx context.Context, quotationID string) (*models.Quotation, error) {
	quotation, err := s.Repo.GetQuotation(ctx, quotationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "quotation not found")
	}
	return quotation, err
}

// UpdateQuotationStatus moves the quotation through its lifecycle.
func (s *QuotationService) UpdateQuotationStatus(ctx context.Context, quotationID string, status models.QuotationStatus) (*models.Quotation, error) {
	current, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}

	allowedStatusTransition := map[models.QuotationStatus][]models.QuotationStatus{
		models.OpenQuotation:      {models.ClosedQuotation, models.CancelledQuotation},
		models.ClosedQuotation:    {},
		models.CancelledQuotation: {},
	}
	if !utils.ContainsQuotationStatus(allowedStatusTransition[current.Status], status) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "invalid quotation status transition")
	}
	return s.Repo.UpdateQuotationStatus(ctx, quotationID, status)
}

// UpdateQuotationCriterion changes the award criterion. Once any response
// exists the criterion is frozen, so its meaning cannot shift mid-process.
func (s *QuotationService) UpdateQuotationCriterion(ctx context.Context, quotationID string, criterion models.AwardCriterion) (*models.Quotation, error) {
	if !models.ValidAwardCriterion(criterion) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "invalid criterion")
	}
	current, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.OpenQuotation {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "quotation is not open")
	}
	hasResponses, err := s.Repo.HasResponses(ctx, quotationID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, models.KindInternal, "failed to check existing responses")
	}
	if hasResponses {
		return nil, models.NewErrorResponse(http.StatusConflict, models.KindState, "criterion is frozen once responses exist")
	}
	return s.Repo.UpdateQuotationCriterion(ctx, quotationID, criterion)
}

// AddItem adds an item to an open quotation.
func (s *QuotationService) AddItem(ctx context.Context, quotationID string, req models.ItemRequest) (*models.Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "missing required fields")
	}
	if !req.Quantity.IsPositive() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "quantity must be positive")
	}
	if req.EstimatedPrice.IsNegative() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "estimated price must not be negative")
	}
	if err := s.requireOpen(ctx, quotationID); err != nil {
		return nil, err
	}
	return s.Repo.AddItem(ctx, quotationID, req)
}

// GetItems returns the quotation's items in sequence order.
func (s *QuotationService) GetItems(ctx context.Context, quotationID string) ([]models.Item, error) {
	if _, err := s.GetQuotation(ctx, quotationID); err != nil {
		return nil, err
	}
	return s.Repo.GetItems(ctx, quotationID)
}

// DeleteItem removes an item and renumbers the remaining items densely.
// Returns the renumbered list.
func (s *QuotationService) DeleteItem(ctx context.Context, quotationID, itemID string) ([]models.Item, error) {
	if err := s.requireOpen(ctx, quotationID); err != nil {
		return nil, err
	}
	items, err := s.Repo.DeleteItem(ctx, quotationID, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "item not found")
	}
	return items, err
}

// AddLot adds a lot to an open quotation.
func (s *QuotationService) AddLot(ctx context.Context, quotationID string, req models.LotRequest) (*models.Lot, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "missing required fields")
	}
	if err := s.requireOpen(ctx, quotationID); err != nil {
		return nil, err
	}
	return s.Repo.AddLot(ctx, quotationID, req)
}

// InviteSupplier adds a supplier to the quotation roster.
func (s *QuotationService) InviteSupplier(ctx context.Context, quotationID, supplierID string) error {
	if supplierID == "" {
		return models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "supplierId is required")
	}
	if err := s.requireOpen(ctx, quotationID); err != nil {
		return err
	}
	err := s.Repo.InviteSupplier(ctx, quotationID, supplierID)
	if errors.Is(err, repository.ErrDuplicate) {
		return models.NewErrorResponse(http.StatusConflict, models.KindValidation, "supplier is already invited")
	}
	return err
}

// ExcludeSupplier flags an invited supplier as excluded from participation.
func (s *QuotationService) ExcludeSupplier(ctx context.Context, quotationID, supplierID string) error {
	err := s.Repo.ExcludeSupplier(ctx, quotationID, supplierID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "supplier is not on the roster")
	}
	return err
}

// Evaluate runs the award criterion over the valid responses and returns the
// consolidated baseline and winners. Read-only and recomputable at any time.
func (s *QuotationService) Evaluate(ctx context.Context, quotationID string) (*evaluation.Result, error) {
	quotation, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	view, valid, err := loadEvaluationInput(ctx, quotation, s.Repo, s.Responses)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, models.KindInternal, "failed to load responses for evaluation")
	}

	result := evaluation.Evaluate(view, valid)
	s.sink.Emit(ctx, audit.NewEvent(audit.EventEvaluationRun, map[string]any{
		"quotationId": quotationID,
		"criterion":   quotation.Criterion,
		"responses":   len(valid),
		"winners":     len(result.Winners),
	}))
	return &result, nil
}

func (s *QuotationService) requireOpen(ctx context.Context, quotationID string) error {
	quotation, err := s.GetQuotation(ctx, quotationID)
	if err != nil {
		return err
	}
	if quotation.Status != models.OpenQuotation {
		return models.NewErrorResponse(http.StatusBadRequest, models.KindState, "quotation is not open")
	}
	return nil
}
