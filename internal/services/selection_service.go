package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/opencotacao/award-engine/internal/audit"
	"github.com/opencotacao/award-engine/internal/evaluation"
	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/repository"
	"github.com/opencotacao/award-engine/internal/utils"
)

// SelectionService is the auction session controller and award resolver: it
// opens sessions seeded from the consolidated baseline, walks them through
// planned → disputing → closed (or cancelled) and writes the terminal award
// decision when a session closes.
type SelectionService struct {
	Repo       repository.SelectionRepository
	Quotations repository.QuotationRepository
	Responses  repository.ResponseRepository
	sink       audit.Sink
	notifier   audit.NotificationSender
	validate   *validator.Validate
}

// NewSelectionService creates a new SelectionService.
func NewSelectionService(
	repo repository.SelectionRepository,
	quotations repository.QuotationRepository,
	responses repository.ResponseRepository,
	sink audit.Sink,
	notifier audit.NotificationSender,
) *SelectionService {
	return &SelectionService{
		Repo:       repo,
		Quotations: quotations,
		Responses:  responses,
		sink:       sink,
		notifier:   notifier,
		validate:   validator.New(),
	}
}

// OpenSession creates a planned selection from a closed quotation. The
// evaluation runs once here and its baseline is snapshotted as the opening
// ceiling and per-scope floors; suppliers behind valid responses become the
// invitees.
func (s *SelectionService) OpenSession(ctx context.Context, req models.SelectionRequest) (*models.Selection, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "missing required fields")
	}

	quotation, err := s.Quotations.GetQuotation(ctx, req.QuotationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "quotation not found")
	}
	if err != nil {
		return nil, err
	}
	if quotation.Status != models.ClosedQuotation {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "quotation must be closed before a selection can open")
	}

	view, valid, err := loadEvaluationInput(ctx, quotation, s.Quotations, s.Responses)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, models.KindInternal, "failed to load responses for evaluation")
	}
	result := evaluation.Evaluate(view, valid)
	if result.Baseline.Empty() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindIncompleteData, "quotation has no valid responses to seed an auction")
	}

	selection := models.Selection{
		ID:            uuid.New().String(),
		QuotationID:   quotation.ID,
		Status:        models.PlannedSelection,
		Criterion:     quotation.Criterion,
		ScheduledAt:   req.ScheduledAt,
		BaselineTotal: result.Baseline.Total,
		CreatedAt:     time.Now().UTC(),
	}

	floors := snapshotFloors(selection.ID, result.Baseline)
	for _, winner := range result.Winners {
		if winner.Scope == models.GlobalFloor {
			floors = append(floors, models.SelectionFloor{
				SelectionID: selection.ID,
				Scope:       models.GlobalFloor,
				ScopeID:     "",
				SupplierID:  winner.SupplierID,
				Price:       winner.Value,
			})
		}
	}
	suppliers := make([]string, 0, len(valid))
	seen := make(map[string]bool)
	for _, r := range valid {
		if !seen[r.SupplierID] {
			seen[r.SupplierID] = true
			suppliers = append(suppliers, r.SupplierID)
		}
	}

	if err := s.Repo.CreateSelection(ctx, selection, floors, suppliers); err != nil {
		return nil, err
	}

	event := audit.NewEvent(audit.EventSessionOpened, map[string]any{
		"selectionId": selection.ID,
		"quotationId": quotation.ID,
		"scheduledAt": selection.ScheduledAt,
		"invitees":    suppliers,
	})
	s.sink.Emit(ctx, event)
	s.notifier.Notify(ctx, event)
	return &selection, nil
}

// snapshotFloors flattens the baseline into per-scope floor rows.
func snapshotFloors(selectionID string, baseline evaluation.Baseline) []models.SelectionFloor {
	floors := make([]models.SelectionFloor, 0, len(baseline.ItemFloors)+len(baseline.LotFloors))
	for itemID, floor := range baseline.ItemFloors {
		floors = append(floors, models.SelectionFloor{
			SelectionID: selectionID,
			Scope:       models.ItemFloor,
			ScopeID:     itemID,
			SupplierID:  floor.SupplierID,
			Price:       floor.Price,
		})
	}
	for lotID, floor := range baseline.LotFloors {
		floors = append(floors, models.SelectionFloor{
			SelectionID: selectionID,
			Scope:       models.LotFloor,
			ScopeID:     lotID,
			SupplierID:  floor.SupplierID,
			Price:       floor.Price,
		})
	}
	return floors
}

// GetSelection returns a selection by id.
func (s *SelectionService) GetSelection(ctx context.Context, selectionID string) (*models.Selection, error) {
	selection, err := s.Repo.GetSelection(ctx, selectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "selection not found")
	}
	return selection, err
}

// UpdateSelectionStatus handles the staff-driven planned → disputing move.
// Closing and cancelling have dedicated operations since they carry side
// effects.
func (s *SelectionService) UpdateSelectionStatus(ctx context.Context, selectionID string, status models.SelectionStatus) (*models.Selection, error) {
	if !models.ValidSelectionStatus(status) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "invalid selection status")
	}
	current, err := s.GetSelection(ctx, selectionID)
	if err != nil {
		return nil, err
	}

	allowedStatusTransition := map[models.SelectionStatus][]models.SelectionStatus{
		models.PlannedSelection:   {models.DisputingSelection},
		models.DisputingSelection: {},
		models.ClosedSelection:    {},
		models.CancelledSelection: {},
	}
	if !utils.ContainsSelectionStatus(allowedStatusTransition[current.Status], status) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "invalid selection status transition")
	}
	return s.Repo.UpdateSelectionStatus(ctx, selectionID, status, nil)
}

// Cancel moves a planned or disputing selection to the terminal cancelled
// status. Accepted bids are retained for audit.
func (s *SelectionService) Cancel(ctx context.Context, selectionID, reason string) (*models.Selection, error) {
	if reason == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "cancellation reason is required")
	}
	current, err := s.GetSelection(ctx, selectionID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.PlannedSelection && current.Status != models.DisputingSelection {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "selection cannot be cancelled in its current status")
	}

	selection, err := s.Repo.UpdateSelectionStatus(ctx, selectionID, models.CancelledSelection, &reason)
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.NewEvent(audit.EventSessionCancelled, map[string]any{
		"selectionId": selectionID,
		"reason":      reason,
	}))
	return selection, nil
}

// Close moves a disputing selection to the terminal closed status and
// resolves the award.
func (s *SelectionService) Close(ctx context.Context, selectionID string) (*models.AwardDecision, error) {
	current, err := s.GetSelection(ctx, selectionID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.DisputingSelection {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "only a disputing selection can be closed")
	}

	if _, err := s.Repo.UpdateSelectionStatus(ctx, selectionID, models.ClosedSelection, nil); err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, audit.NewEvent(audit.EventSessionClosed, map[string]any{
		"selectionId": selectionID,
	}))
	return s.Resolve(ctx, selectionID)
}

// Resolve derives the terminal award decision for a closed selection: the
// lowest accepted bid wins; with no bids the baseline snapshot stands; with
// no bids and an empty baseline the decision records no winner. The decision
// is immutable once written.
func (s *SelectionService) Resolve(ctx context.Context, selectionID string) (*models.AwardDecision, error) {
	selection, err := s.GetSelection(ctx, selectionID)
	if err != nil {
		return nil, err
	}
	if selection.Status != models.ClosedSelection {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "selection is not closed")
	}

	decision := models.AwardDecision{
		ID:          uuid.New().String(),
		SelectionID: selectionID,
		Source:      models.AwardNone,
		DecidedAt:   time.Now().UTC(),
	}

	lowest, err := s.Repo.GetLowestBid(ctx, selectionID)
	switch {
	case err == nil:
		decision.Source = models.AwardFromBid
		decision.SupplierID = &lowest.SupplierID
		value := lowest.Value
		decision.Value = &value
	case errors.Is(err, repository.ErrNotFound):
		// No bids arrived: fall back to the baseline snapshot.
		if selection.BaselineTotal != nil {
			decision.Source = models.AwardFromBaseline
			value := *selection.BaselineTotal
			decision.Value = &value
			if winner := s.baselineWinner(ctx, selectionID); winner != "" {
				decision.SupplierID = &winner
			}
		}
	default:
		return nil, err
	}

	if selection.Criterion == models.CriterionPerItem || selection.Criterion == models.CriterionPerLot {
		floors, err := s.Repo.GetFloors(ctx, selectionID)
		if err != nil {
			return nil, err
		}
		scope := models.ItemFloor
		if selection.Criterion == models.CriterionPerLot {
			scope = models.LotFloor
		}
		for _, floor := range floors {
			if floor.Scope != scope {
				continue
			}
			decision.Breakdown = append(decision.Breakdown, models.AwardLine{
				Scope:      floor.Scope,
				ScopeID:    floor.ScopeID,
				SupplierID: floor.SupplierID,
				Value:      floor.Price,
			})
		}
	}

	err = s.Repo.CreateAwardDecision(ctx, decision)
	if errors.Is(err, repository.ErrDuplicate) {
		// Already resolved; the stored decision is the decision.
		return s.GetAward(ctx, selectionID)
	}
	if err != nil {
		return nil, err
	}

	event := audit.NewEvent(audit.EventAwardDecided, map[string]any{
		"selectionId": selectionID,
		"source":      decision.Source,
		"supplierId":  decision.SupplierID,
	})
	s.sink.Emit(ctx, event)
	s.notifier.Notify(ctx, event)
	return &decision, nil
}

// GetAward returns the stored award decision for a selection.
func (s *SelectionService) GetAward(ctx context.Context, selectionID string) (*models.AwardDecision, error) {
	decision, err := s.Repo.GetAwardDecision(ctx, selectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "no award decision for this selection")
	}
	return decision, err
}

// baselineWinner finds the supplier behind the snapshotted global floor, if
// one exists. Per-item and per-lot awards carry their winners in the
// breakdown instead.
func (s *SelectionService) baselineWinner(ctx context.Context, selectionID string) string {
	floors, err := s.Repo.GetFloors(ctx, selectionID)
	if err != nil {
		return ""
	}
	for _, floor := range floors {
		if floor.Scope == models.GlobalFloor {
			return floor.SupplierID
		}
	}
	return ""
}
