package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opencotacao/award-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrSessionNotActive is returned by InsertBidIfLowest when the locked
// selection row turns out not to accept bids.
var ErrSessionNotActive = errors.New("selection is not accepting bids")

// ErrNoFloor is returned when a bid arrives on a selection whose baseline is
// empty and no bids exist yet, so there is nothing to undercut.
var ErrNoFloor = errors.New("selection has no opening floor")

// SelectionRepository handles auction sessions, their bid ledger and awards.
type SelectionRepository interface {
	CreateSelection(ctx context.Context, selection models.Selection, floors []models.SelectionFloor, supplierIDs []string) error
	GetSelection(ctx context.Context, selectionID string) (*models.Selection, error)
	UpdateSelectionStatus(ctx context.Context, selectionID string, status models.SelectionStatus, cancelReason *string) (*models.Selection, error)
	SupplierStanding(ctx context.Context, selectionID, supplierID string) (invited, excluded bool, err error)
	InsertBidIfLowest(ctx context.Context, selectionID, supplierID string, value decimal.Decimal, now time.Time) (*models.BidResult, error)
	GetBids(ctx context.Context, selectionID string, limit, offset int) ([]models.Bid, error)
	GetLowestBid(ctx context.Context, selectionID string) (*models.Bid, error)
	GetFloors(ctx context.Context, selectionID string) ([]models.SelectionFloor, error)
	CreateAwardDecision(ctx context.Context, decision models.AwardDecision) error
	GetAwardDecision(ctx context.Context, selectionID string) (*models.AwardDecision, error)
}

// PostgresSelectionRepository implements SelectionRepository over pgx.
type PostgresSelectionRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresSelectionRepository creates a new PostgresSelectionRepository.
func NewPostgresSelectionRepository(db *pgxpool.Pool) *PostgresSelectionRepository {
	return &PostgresSelectionRepository{DB: db}
}

const selectionColumns = `id, quotation_id, status, criterion, scheduled_at, baseline_total::text, cancel_reason, created_at`

func scanSelection(row pgx.Row) (*models.Selection, error) {
	var selection models.Selection
	var baseline *string
	err := row.Scan(
		&selection.ID,
		&selection.QuotationID,
		&selection.Status,
		&selection.Criterion,
		&selection.ScheduledAt,
		&baseline,
		&selection.CancelReason,
		&selection.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if selection.BaselineTotal, err = decimalFromNullable(baseline); err != nil {
		return nil, err
	}
	return &selection, nil
}

// CreateSelection stores the session, its baseline snapshot and invitee
// roster in one transaction.
func (r *PostgresSelectionRepository) CreateSelection(ctx context.Context, selection models.Selection, floors []models.SelectionFloor, supplierIDs []string) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertQuery := `INSERT INTO selection (id, quotation_id, status, criterion, scheduled_at, baseline_total, cancel_reason, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)`
	_, err = tx.Exec(
		ctx,
		insertQuery,
		selection.ID,
		selection.QuotationID,
		selection.Status,
		selection.Criterion,
		selection.ScheduledAt,
		nullableToString(selection.BaselineTotal),
		selection.CancelReason,
		selection.CreatedAt)
	if err != nil {
		return err
	}

	floorQuery := `INSERT INTO selection_floor (selection_id, scope, scope_id, supplier_id, price)
                  VALUES ($1, $2, $3, $4, $5::numeric)`
	for _, floor := range floors {
		if _, err := tx.Exec(ctx, floorQuery, selection.ID, floor.Scope, floor.ScopeID, floor.SupplierID, floor.Price.String()); err != nil {
			return err
		}
	}

	rosterQuery := `INSERT INTO selection_supplier (selection_id, supplier_id, excluded) VALUES ($1, $2, false)`
	for _, supplierID := range supplierIDs {
		if _, err := tx.Exec(ctx, rosterQuery, selection.ID, supplierID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetSelection returns a selection by id.
func (r *PostgresSelectionRepository) GetSelection(ctx context.Context, selectionID string) (*models.Selection, error) {
	query := `SELECT ` + selectionColumns + ` FROM selection WHERE id = $1`
	return scanSelection(r.DB.QueryRow(ctx, query, selectionID))
}

// UpdateSelectionStatus changes the selection status, recording the reason on
// cancellation.
func (r *PostgresSelectionRepository) UpdateSelectionStatus(ctx context.Context, selectionID string, status models.SelectionStatus, cancelReason *string) (*models.Selection, error) {
	updateQuery := `UPDATE selection SET status = $1, cancel_reason = COALESCE($2, cancel_reason)
	                WHERE id = $3 RETURNING ` + selectionColumns
	return scanSelection(r.DB.QueryRow(ctx, updateQuery, status, cancelReason, selectionID))
}

// SupplierStanding reports whether the supplier was invited to the selection
// and whether it has been excluded.
func (r *PostgresSelectionRepository) SupplierStanding(ctx context.Context, selectionID, supplierID string) (bool, bool, error) {
	var excluded bool
	query := `SELECT excluded FROM selection_supplier WHERE selection_id = $1 AND supplier_id = $2`
	err := r.DB.QueryRow(ctx, query, selectionID, supplierID).Scan(&excluded)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, excluded, nil
}

// InsertBidIfLowest is the atomic check-then-insert at the heart of the bid
// ledger. It locks the selection row, recomputes the current lowest accepted
// value inside the lock and inserts only if the new value is strictly lower.
// Two racing bids therefore serialize on the row lock: the loser re-reads a
// lowest that already includes the winner and is turned away with the fresh
// value instead of being stored.
func (r *PostgresSelectionRepository) InsertBidIfLowest(ctx context.Context, selectionID, supplierID string, value decimal.Decimal, now time.Time) (*models.BidResult, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status models.SelectionStatus
	var scheduledAt time.Time
	var baseline *string
	lockQuery := `SELECT status, scheduled_at, baseline_total::text FROM selection WHERE id = $1 FOR UPDATE`
	err = tx.QueryRow(ctx, lockQuery, selectionID).Scan(&status, &scheduledAt, &baseline)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Re-check the active predicate under the lock; the service's earlier
	// check may be stale by the time the row is ours.
	if status != models.DisputingSelection || now.Before(scheduledAt) {
		return nil, ErrSessionNotActive
	}

	var lowestStr *string
	minQuery := `SELECT MIN(value)::text FROM bid WHERE selection_id = $1`
	if err := tx.QueryRow(ctx, minQuery, selectionID).Scan(&lowestStr); err != nil {
		return nil, err
	}

	currentLowest, err := decimalFromNullable(lowestStr)
	if err != nil {
		return nil, err
	}
	if currentLowest == nil {
		if currentLowest, err = decimalFromNullable(baseline); err != nil {
			return nil, err
		}
	}
	if currentLowest == nil {
		return nil, ErrNoFloor
	}

	if !value.LessThan(*currentLowest) {
		return &models.BidResult{Accepted: false, CurrentLowest: *currentLowest}, nil
	}

	newBid := models.Bid{
		ID:          uuid.New().String(),
		SelectionID: selectionID,
		SupplierID:  supplierID,
		Value:       value,
		CreatedAt:   time.Now().UTC(),
	}
	insertQuery := `INSERT INTO bid (id, selection_id, supplier_id, value, created_at)
                   VALUES ($1, $2, $3, $4::numeric, $5)`
	_, err = tx.Exec(ctx, insertQuery, newBid.ID, newBid.SelectionID, newBid.SupplierID, newBid.Value.String(), newBid.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &models.BidResult{Accepted: true, Bid: &newBid, CurrentLowest: value}, nil
}

func scanBids(rows pgx.Rows) ([]models.Bid, error) {
	defer rows.Close()
	var bids []models.Bid
	for rows.Next() {
		var bid models.Bid
		var value string
		if err := rows.Scan(&bid.ID, &bid.SelectionID, &bid.SupplierID, &value, &bid.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if bid.Value, err = decimalFromString(value); err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	return bids, rows.Err()
}

// GetBids returns a page of the selection's ledger in acceptance order.
func (r *PostgresSelectionRepository) GetBids(ctx context.Context, selectionID string, limit, offset int) ([]models.Bid, error) {
	query := `SELECT id, selection_id, supplier_id, value::text, created_at
	          FROM bid WHERE selection_id = $1
	          ORDER BY created_at
	          LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, selectionID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanBids(rows)
}

// GetLowestBid returns the lowest accepted bid, or ErrNotFound when the
// ledger is empty.
func (r *PostgresSelectionRepository) GetLowestBid(ctx context.Context, selectionID string) (*models.Bid, error) {
	query := `SELECT id, selection_id, supplier_id, value::text, created_at
	          FROM bid WHERE selection_id = $1
	          ORDER BY value, created_at
	          LIMIT 1`
	var bid models.Bid
	var value string
	err := r.DB.QueryRow(ctx, query, selectionID).Scan(&bid.ID, &bid.SelectionID, &bid.SupplierID, &value, &bid.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if bid.Value, err = decimalFromString(value); err != nil {
		return nil, err
	}
	return &bid, nil
}

// GetFloors returns the baseline snapshot taken when the selection opened.
func (r *PostgresSelectionRepository) GetFloors(ctx context.Context, selectionID string) ([]models.SelectionFloor, error) {
	query := `SELECT selection_id, scope, scope_id, supplier_id, price::text
	          FROM selection_floor WHERE selection_id = $1
	          ORDER BY scope, scope_id`
	rows, err := r.DB.Query(ctx, query, selectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var floors []models.SelectionFloor
	for rows.Next() {
		var floor models.SelectionFloor
		var price string
		if err := rows.Scan(&floor.SelectionID, &floor.Scope, &floor.ScopeID, &floor.SupplierID, &price); err != nil {
			return nil, err
		}
		if floor.Price, err = decimalFromString(price); err != nil {
			return nil, err
		}
		floors = append(floors, floor)
	}
	return floors, rows.Err()
}

// CreateAwardDecision stores the decision and its breakdown in one
// transaction. The UNIQUE(selection_id) constraint keeps the decision
// immutable: a second resolve attempt surfaces ErrDuplicate.
func (r *PostgresSelectionRepository) CreateAwardDecision(ctx context.Context, decision models.AwardDecision) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertQuery := `INSERT INTO award_decision (id, selection_id, supplier_id, value, source, decided_at)
                   VALUES ($1, $2, $3, $4::numeric, $5, $6)`
	_, err = tx.Exec(
		ctx,
		insertQuery,
		decision.ID,
		decision.SelectionID,
		decision.SupplierID,
		nullableToString(decision.Value),
		decision.Source,
		decision.DecidedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	lineQuery := `INSERT INTO award_breakdown (decision_id, scope, scope_id, supplier_id, value)
                 VALUES ($1, $2, $3, $4, $5::numeric)`
	for _, line := range decision.Breakdown {
		if _, err := tx.Exec(ctx, lineQuery, decision.ID, line.Scope, line.ScopeID, line.SupplierID, line.Value.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetAwardDecision returns the stored decision with its breakdown.
func (r *PostgresSelectionRepository) GetAwardDecision(ctx context.Context, selectionID string) (*models.AwardDecision, error) {
	query := `SELECT id, selection_id, supplier_id, value::text, source, decided_at
	          FROM award_decision WHERE selection_id = $1`
	var decision models.AwardDecision
	var value *string
	err := r.DB.QueryRow(ctx, query, selectionID).Scan(
		&decision.ID,
		&decision.SelectionID,
		&decision.SupplierID,
		&value,
		&decision.Source,
		&decision.DecidedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if decision.Value, err = decimalFromNullable(value); err != nil {
		return nil, err
	}

	lineQuery := `SELECT scope, scope_id, supplier_id, value::text
	              FROM award_breakdown WHERE decision_id = $1
	              ORDER BY scope, scope_id`
	rows, err := r.DB.Query(ctx, lineQuery, decision.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line models.AwardLine
		var lineValue string
		if err := rows.Scan(&line.Scope, &line.ScopeID, &line.SupplierID, &lineValue); err != nil {
			return nil, err
		}
		if line.Value, err = decimalFromString(lineValue); err != nil {
			return nil, err
		}
		decision.Breakdown = append(decision.Breakdown, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &decision, nil
}
