package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/audit"
	"github.com/opencotacao/award-engine/internal/locker"
	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/repository"
	"github.com/opencotacao/award-engine/internal/utils"
)

// BidService is the bid ledger: an append-only, strictly-decreasing sequence
// of bids per active selection. The repository's locked check-then-insert is
// the atomicity guarantee; the optional redis lock only serializes instances
// ahead of the row lock.
type BidService struct {
	Repo     repository.SelectionRepository
	Locker   *locker.SelectionLocker
	sink     audit.Sink
	validate *validator.Validate
}

// NewBidService creates a new BidService.
func NewBidService(repo repository.SelectionRepository, selectionLocker *locker.SelectionLocker, sink audit.Sink) *BidService {
	return &BidService{
		Repo:     repo,
		Locker:   selectionLocker,
		sink:     sink,
		validate: validator.New(),
	}
}

// SubmitBid attempts to place a bid. A bid is accepted only while the
// selection is disputing and past its scheduled time, only from an invited
// non-excluded supplier, and only when strictly lower than the current lowest
// accepted value (or the baseline ceiling for the first bid). Losing a race
// to a concurrently accepted lower bid is a normal outcome surfaced as a
// concurrency rejection carrying the fresh lowest, never a stored bid.
func (s *BidService) SubmitBid(ctx context.Context, selectionID string, req models.BidRequest) (*models.BidResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "missing required fields")
	}
	if !req.Value.IsPositive() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, "bid value must be positive")
	}

	selection, err := s.Repo.GetSelection(ctx, selectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "selection not found")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !selection.Active(now) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindTiming, "selection is not accepting bids")
	}

	invited, excluded, err := s.Repo.SupplierStanding(ctx, selectionID, req.SupplierID)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, models.KindInternal, "failed to check supplier standing")
	}
	if !invited {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.KindEligibility, "supplier is not invited to this selection")
	}
	if excluded {
		return nil, models.NewErrorResponse(http.StatusForbidden, models.KindEligibility, "supplier is excluded from this selection")
	}

	release, err := s.Locker.Acquire(ctx, selectionID)
	if errors.Is(err, locker.ErrLockBusy) {
		return nil, models.NewErrorResponse(http.StatusConflict, models.KindConcurrency, "selection is busy, retry the bid")
	}
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, models.KindInternal, "failed to lock the selection")
	}
	defer release()

	result, err := s.Repo.InsertBidIfLowest(ctx, selectionID, req.SupplierID, req.Value, now)
	switch {
	case errors.Is(err, repository.ErrSessionNotActive):
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindTiming, "selection is not accepting bids")
	case errors.Is(err, repository.ErrNoFloor):
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindState, "selection has no opening floor to bid against")
	case errors.Is(err, repository.ErrNotFound):
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "selection not found")
	case err != nil:
		return nil, err
	}

	if !result.Accepted {
		s.sink.Emit(ctx, audit.NewEvent(audit.EventBidRejected, map[string]any{
			"selectionId":   selectionID,
			"supplierId":    req.SupplierID,
			"value":         req.Value,
			"currentLowest": result.CurrentLowest,
		}))
		return nil, models.NewNotLowerAnymore(http.StatusConflict, result.CurrentLowest)
	}

	s.sink.Emit(ctx, audit.NewEvent(audit.EventBidAccepted, map[string]any{
		"selectionId": selectionID,
		"supplierId":  req.SupplierID,
		"bidId":       result.Bid.ID,
		"value":       result.Bid.Value,
	}))
	return result, nil
}

// GetBids returns a page of the selection's ledger in acceptance order.
func (s *BidService) GetBids(ctx context.Context, selectionID, limitStr, offsetStr string) ([]models.Bid, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, models.KindValidation, err.Error())
	}
	if _, err := s.Repo.GetSelection(ctx, selectionID); errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "selection not found")
	} else if err != nil {
		return nil, err
	}
	return s.Repo.GetBids(ctx, selectionID, limit, offset)
}

// CurrentLowest returns the value a new bid must beat right now.
func (s *BidService) CurrentLowest(ctx context.Context, selectionID string) (*decimal.Decimal, error) {
	selection, err := s.Repo.GetSelection(ctx, selectionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewErrorResponse(http.StatusNotFound, models.KindNotFound, "selection not found")
	}
	if err != nil {
		return nil, err
	}

	lowest, err := s.Repo.GetLowestBid(ctx, selectionID)
	if err == nil {
		value := lowest.Value
		return &value, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return selection.BaselineTotal, nil
}
