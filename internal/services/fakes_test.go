package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/opencotacao/award-engine/internal/audit"
	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/repository"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// asKind unwraps err into the typed error response and checks its kind.
func asKind(t *testing.T, err error, kind models.ErrorKind) *models.ErrorResponse {
	t.Helper()
	var resp *models.ErrorResponse
	assert.True(t, errors.As(err, &resp))
	check.Equal(t, kind, resp.Kind)
	return resp
}

// recordingSink captures emitted events. It doubles as the notifier since
// tests only care that events were raised.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Emit(_ context.Context, event audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Notify(ctx context.Context, event audit.Event) {
	s.Emit(ctx, event)
}

func (s *recordingSink) count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, event := range s.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

// fakeQuotationRepo is an in-memory QuotationRepository.
type fakeQuotationRepo struct {
	mu         sync.Mutex
	quotations map[string]models.Quotation
	items      map[string][]models.Item
	lots       map[string][]models.Lot
	roster     map[string]map[string]bool // quotation id -> supplier id -> excluded
	responded  map[string]bool
}

func newFakeQuotationRepo() *fakeQuotationRepo {
	return &fakeQuotationRepo{
		quotations: make(map[string]models.Quotation),
		items:      make(map[string][]models.Item),
		lots:       make(map[string][]models.Lot),
		roster:     make(map[string]map[string]bool),
		responded:  make(map[string]bool),
	}
}

func (r *fakeQuotationRepo) put(q models.Quotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotations[q.ID] = q
	if r.roster[q.ID] == nil {
		r.roster[q.ID] = make(map[string]bool)
	}
}

func (r *fakeQuotationRepo) CreateQuotation(_ context.Context, req models.QuotationRequest) (*models.Quotation, error) {
	q := models.Quotation{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      models.OpenQuotation,
		Criterion:   req.Criterion,
		Deadline:    req.Deadline,
		CreatedAt:   time.Now().UTC(),
	}
	r.put(q)
	return &q, nil
}

func (r *fakeQuotationRepo) GetQuotations(_ context.Context, limit, offset int) ([]models.Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Quotation
	for _, q := range r.quotations {
		all = append(all, q)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeQuotationRepo) GetQuotation(_ context.Context, quotationID string) (*models.Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotations[quotationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r *fakeQuotationRepo) UpdateQuotationStatus(_ context.Context, quotationID string, status models.QuotationStatus) (*models.Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotations[quotationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	q.Status = status
	r.quotations[quotationID] = q
	return &q, nil
}

func (r *fakeQuotationRepo) UpdateQuotationCriterion(_ context.Context, quotationID string, criterion models.AwardCriterion) (*models.Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotations[quotationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	q.Criterion = criterion
	r.quotations[quotationID] = q
	return &q, nil
}

func (r *fakeQuotationRepo) AddItem(_ context.Context, quotationID string, req models.ItemRequest) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := models.Item{
		ID:             uuid.New().String(),
		QuotationID:    quotationID,
		Seq:            len(r.items[quotationID]) + 1,
		Description:    req.Description,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		LotID:          req.LotID,
		EstimatedPrice: req.EstimatedPrice,
	}
	r.items[quotationID] = append(r.items[quotationID], item)
	return &item, nil
}

func (r *fakeQuotationRepo) GetItems(_ context.Context, quotationID string) ([]models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Item(nil), r.items[quotationID]...), nil
}

func (r *fakeQuotationRepo) DeleteItem(_ context.Context, quotationID, itemID string) ([]models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.items[quotationID]
	kept := items[:0:0]
	found := false
	for _, item := range items {
		if item.ID == itemID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	for i := range kept {
		kept[i].Seq = i + 1
	}
	r.items[quotationID] = kept
	return append([]models.Item(nil), kept...), nil
}

func (r *fakeQuotationRepo) AddLot(_ context.Context, quotationID string, req models.LotRequest) (*models.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot := models.Lot{
		ID:          uuid.New().String(),
		QuotationID: quotationID,
		Seq:         len(r.lots[quotationID]) + 1,
		Description: req.Description,
	}
	r.lots[quotationID] = append(r.lots[quotationID], lot)
	return &lot, nil
}

func (r *fakeQuotationRepo) InviteSupplier(_ context.Context, quotationID, supplierID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roster[quotationID] == nil {
		r.roster[quotationID] = make(map[string]bool)
	}
	if _, ok := r.roster[quotationID][supplierID]; ok {
		return repository.ErrDuplicate
	}
	r.roster[quotationID][supplierID] = false
	return nil
}

func (r *fakeQuotationRepo) ExcludeSupplier(_ context.Context, quotationID, supplierID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roster[quotationID][supplierID]; !ok {
		return repository.ErrNotFound
	}
	r.roster[quotationID][supplierID] = true
	return nil
}

func (r *fakeQuotationRepo) SupplierStanding(_ context.Context, quotationID, supplierID string) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded, ok := r.roster[quotationID][supplierID]
	return ok, excluded, nil
}

func (r *fakeQuotationRepo) HasResponses(_ context.Context, quotationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responded[quotationID], nil
}

// fakeResponseRepo is an in-memory ResponseRepository.
type fakeResponseRepo struct {
	mu        sync.Mutex
	responses map[string][]models.SupplierResponse // by quotation id
	prices    map[string][]models.ItemResponse     // by quotation id
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{
		responses: make(map[string][]models.SupplierResponse),
		prices:    make(map[string][]models.ItemResponse),
	}
}

func (r *fakeResponseRepo) CreateResponse(_ context.Context, response models.SupplierResponse, prices []models.ItemResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.responses[response.QuotationID] {
		if existing.SupplierID == response.SupplierID {
			return repository.ErrDuplicate
		}
	}
	r.responses[response.QuotationID] = append(r.responses[response.QuotationID], response)
	r.prices[response.QuotationID] = append(r.prices[response.QuotationID], prices...)
	return nil
}

func (r *fakeResponseRepo) GetResponses(_ context.Context, quotationID string) ([]models.SupplierResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SupplierResponse(nil), r.responses[quotationID]...), nil
}

func (r *fakeResponseRepo) GetItemResponses(_ context.Context, quotationID string) ([]models.ItemResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ItemResponse(nil), r.prices[quotationID]...), nil
}

func (r *fakeResponseRepo) RejectResponse(_ context.Context, responseID string) (*models.SupplierResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for quotationID, responses := range r.responses {
		for i, response := range responses {
			if response.ID == responseID {
				responses[i].Rejected = true
				r.responses[quotationID] = responses
				rejected := responses[i]
				return &rejected, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

// fakeSelectionRepo is an in-memory SelectionRepository. InsertBidIfLowest
// serializes on the mutex the way the real one serializes on the row lock.
type fakeSelectionRepo struct {
	mu         sync.Mutex
	selections map[string]models.Selection
	floors     map[string][]models.SelectionFloor
	roster     map[string]map[string]bool
	bids       map[string][]models.Bid
	decisions  map[string]models.AwardDecision
}

func newFakeSelectionRepo() *fakeSelectionRepo {
	return &fakeSelectionRepo{
		selections: make(map[string]models.Selection),
		floors:     make(map[string][]models.SelectionFloor),
		roster:     make(map[string]map[string]bool),
		bids:       make(map[string][]models.Bid),
		decisions:  make(map[string]models.AwardDecision),
	}
}

func (r *fakeSelectionRepo) CreateSelection(_ context.Context, selection models.Selection, floors []models.SelectionFloor, supplierIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections[selection.ID] = selection
	r.floors[selection.ID] = floors
	r.roster[selection.ID] = make(map[string]bool)
	for _, supplierID := range supplierIDs {
		r.roster[selection.ID][supplierID] = false
	}
	return nil
}

func (r *fakeSelectionRepo) GetSelection(_ context.Context, selectionID string) (*models.Selection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	selection, ok := r.selections[selectionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &selection, nil
}

func (r *fakeSelectionRepo) UpdateSelectionStatus(_ context.Context, selectionID string, status models.SelectionStatus, cancelReason *string) (*models.Selection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	selection, ok := r.selections[selectionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	selection.Status = status
	if cancelReason != nil {
		selection.CancelReason = cancelReason
	}
	r.selections[selectionID] = selection
	return &selection, nil
}

func (r *fakeSelectionRepo) SupplierStanding(_ context.Context, selectionID, supplierID string) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded, ok := r.roster[selectionID][supplierID]
	return ok, excluded, nil
}

func (r *fakeSelectionRepo) InsertBidIfLowest(_ context.Context, selectionID, supplierID string, value decimal.Decimal, now time.Time) (*models.BidResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	selection, ok := r.selections[selectionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if selection.Status != models.DisputingSelection || now.Before(selection.ScheduledAt) {
		return nil, repository.ErrSessionNotActive
	}

	var currentLowest *decimal.Decimal
	for _, bid := range r.bids[selectionID] {
		if currentLowest == nil || bid.Value.LessThan(*currentLowest) {
			v := bid.Value
			currentLowest = &v
		}
	}
	if currentLowest == nil {
		currentLowest = selection.BaselineTotal
	}
	if currentLowest == nil {
		return nil, repository.ErrNoFloor
	}

	if !value.LessThan(*currentLowest) {
		return &models.BidResult{Accepted: false, CurrentLowest: *currentLowest}, nil
	}

	bid := models.Bid{
		ID:          uuid.New().String(),
		SelectionID: selectionID,
		SupplierID:  supplierID,
		Value:       value,
		CreatedAt:   time.Now().UTC(),
	}
	r.bids[selectionID] = append(r.bids[selectionID], bid)
	return &models.BidResult{Accepted: true, Bid: &bid, CurrentLowest: value}, nil
}

func (r *fakeSelectionRepo) GetBids(_ context.Context, selectionID string, limit, offset int) ([]models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bids := r.bids[selectionID]
	if offset >= len(bids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(bids) {
		end = len(bids)
	}
	return append([]models.Bid(nil), bids[offset:end]...), nil
}

func (r *fakeSelectionRepo) GetLowestBid(_ context.Context, selectionID string) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bids := r.bids[selectionID]
	if len(bids) == 0 {
		return nil, repository.ErrNotFound
	}
	lowest := bids[0]
	for _, bid := range bids[1:] {
		if bid.Value.LessThan(lowest.Value) {
			lowest = bid
		}
	}
	return &lowest, nil
}

func (r *fakeSelectionRepo) GetFloors(_ context.Context, selectionID string) ([]models.SelectionFloor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SelectionFloor(nil), r.floors[selectionID]...), nil
}

func (r *fakeSelectionRepo) CreateAwardDecision(_ context.Context, decision models.AwardDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decisions[decision.SelectionID]; ok {
		return repository.ErrDuplicate
	}
	r.decisions[decision.SelectionID] = decision
	return nil
}

func (r *fakeSelectionRepo) GetAwardDecision(_ context.Context, selectionID string) (*models.AwardDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	decision, ok := r.decisions[selectionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &decision, nil
}
