package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opencotacao/award-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate is returned when an insert hits a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// QuotationRepository handles quotations, their items, lots and roster.
type QuotationRepository interface {
	CreateQuotation(ctx context.Context, req models.QuotationRequest) (*models.Quotation, error)
	GetQuotations(ctx context.Context, limit, offset int) ([]models.Quotation, error)
	GetQuotation(ctx context.Context, quotationID string) (*models.Quotation, error)
	UpdateQuotationStatus(ctx context.Context, quotationID string, status models.QuotationStatus) (*models.Quotation, error)
	UpdateQuotationCriterion(ctx context.Context, quotationID string, criterion models.AwardCriterion) (*models.Quotation, error)
	AddItem(ctx context.Context, quotationID string, req models.ItemRequest) (*models.Item, error)
	GetItems(ctx context.Context, quotationID string) ([]models.Item, error)
	DeleteItem(ctx context.Context, quotationID, itemID string) ([]models.Item, error)
	AddLot(ctx context.Context, quotationID string, req models.LotRequest) (*models.Lot, error)
	InviteSupplier(ctx context.Context, quotationID, supplierID string) error
	ExcludeSupplier(ctx context.Context, quotationID, supplierID string) error
	SupplierStanding(ctx context.Context, quotationID, supplierID string) (invited, excluded bool, err error)
	HasResponses(ctx context.Context, quotationID string) (bool, error)
}

// PostgresQuotationRepository implements QuotationRepository over pgx.
type PostgresQuotationRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresQuotationRepository creates a new PostgresQuotationRepository.
func NewPostgresQuotationRepository(db *pgxpool.Pool) *PostgresQuotationRepository {
	return &PostgresQuotationRepository{DB: db}
}

const quotationColumns = `id, title, description, status, criterion, deadline, created_at`

func scanQuotation(row pgx.Row) (*models.Quotation, error) {
	var q models.Quotation
	err := row.Scan(
		&q.ID,
		&q.Title,
		&q.Description,
		&q.Status,
		&q.Criterion,
		&q.Deadline,
		&q.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQuotation creates a new quotation in the open status.
func (r *PostgresQuotationRepository) CreateQuotation(ctx context.Context, req models.QuotationRequest) (*models.Quotation, error) {
	newQuotation := models.Quotation{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      models.OpenQuotation,
		Criterion:   req.Criterion,
		Deadline:    req.Deadline,
		CreatedAt:   time.Now().UTC(),
	}
	insertQuery := `INSERT INTO quotation (id, title, description, status, criterion, deadline, created_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		newQuotation.ID,
		newQuotation.Title,
		newQuotation.Description,
		newQuotation.Status,
		newQuotation.Criterion,
		newQuotation.Deadline,
		newQuotation.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &newQuotation, nil
}

// GetQuotations returns a page of quotations.
func (r *PostgresQuotationRepository) GetQuotations(ctx context.Context, limit, offset int) ([]models.Quotation, error) {
	query := `SELECT ` + quotationColumns + `
	          FROM quotation
	          ORDER BY created_at DESC
	          LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []models.Quotation
	for rows.Next() {
		var q models.Quotation
		if err := rows.Scan(
			&q.ID,
			&q.Title,
			&q.Description,
			&q.Status,
			&q.Criterion,
			&q.Deadline,
			&q.CreatedAt); err != nil {
			return nil, err
		}
		quotations = append(quotations, q)
	}
	return quotations, rows.Err()
}

// GetQuotation returns a quotation by id.
func (r *PostgresQuotationRepository) GetQuotation(ctx context.Context, quotationID string) (*models.Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotation WHERE id = $1`
	return scanQuotation(r.DB.QueryRow(ctx, query, quotationID))
}

// UpdateQuotationStatus changes the quotation status.
func (r *PostgresQuotationRepository) UpdateQuotationStatus(ctx context.Context, quotationID string, status models.QuotationStatus) (*models.Quotation, error) {
	updateQuery := `UPDATE quotation SET status = $1 WHERE id = $2 RETURNING ` + quotationColumns
	return scanQuotation(r.DB.QueryRow(ctx, updateQuery, status, quotationID))
}

// UpdateQuotationCriterion changes the award criterion.
func (r *PostgresQuotationRepository) UpdateQuotationCriterion(ctx context.Context, quotationID string, criterion models.AwardCriterion) (*models.Quotation, error) {
	updateQuery := `UPDATE quotation SET criterion = $1 WHERE id = $2 RETURNING ` + quotationColumns
	return scanQuotation(r.DB.QueryRow(ctx, updateQuery, criterion, quotationID))
}

// AddItem appends an item with the next dense sequence number.
func (r *PostgresQuotationRepository) AddItem(ctx context.Context, quotationID string, req models.ItemRequest) (*models.Item, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var seq int
	seqQuery := `SELECT COALESCE(MAX(seq), 0) + 1 FROM item WHERE quotation_id = $1`
	if err := tx.QueryRow(ctx, seqQuery, quotationID).Scan(&seq); err != nil {
		return nil, err
	}

	newItem := models.Item{
		ID:             uuid.New().String(),
		QuotationID:    quotationID,
		Seq:            seq,
		Description:    req.Description,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		LotID:          req.LotID,
		EstimatedPrice: req.EstimatedPrice,
	}
	insertQuery := `INSERT INTO item (id, quotation_id, seq, description, quantity, unit, lot_id, estimated_price)
                   VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8::numeric)`
	_, err = tx.Exec(
		ctx,
		insertQuery,
		newItem.ID,
		newItem.QuotationID,
		newItem.Seq,
		newItem.Description,
		newItem.Quantity.String(),
		newItem.Unit,
		newItem.LotID,
		newItem.EstimatedPrice.String())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &newItem, nil
}

func scanItems(rows pgx.Rows) ([]models.Item, error) {
	defer rows.Close()
	var items []models.Item
	for rows.Next() {
		var item models.Item
		var quantity, estimated string
		if err := rows.Scan(
			&item.ID,
			&item.QuotationID,
			&item.Seq,
			&item.Description,
			&quantity,
			&item.Unit,
			&item.LotID,
			&estimated); err != nil {
			return nil, err
		}
		var err error
		if item.Quantity, err = decimalFromString(quantity); err != nil {
			return nil, err
		}
		if item.EstimatedPrice, err = decimalFromString(estimated); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const itemColumns = `id, quotation_id, seq, description, quantity::text, unit, lot_id, estimated_price::text`

// GetItems returns the quotation's items in sequence order.
func (r *PostgresQuotationRepository) GetItems(ctx context.Context, quotationID string) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM item WHERE quotation_id = $1 ORDER BY seq`
	rows, err := r.DB.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

// DeleteItem removes an item and renumbers the survivors densely from 1,
// all inside one transaction. Returns the renumbered item list.
func (r *PostgresQuotationRepository) DeleteItem(ctx context.Context, quotationID, itemID string) ([]models.Item, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM item WHERE id = $1 AND quotation_id = $2`, itemID, quotationID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	// Dense renumbering of the remaining items by their current order.
	renumberQuery := `
		UPDATE item SET seq = ranked.new_seq
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY seq) AS new_seq
			FROM item WHERE quotation_id = $1
		) ranked
		WHERE item.id = ranked.id`
	if _, err := tx.Exec(ctx, renumberQuery, quotationID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT `+itemColumns+` FROM item WHERE quotation_id = $1 ORDER BY seq`, quotationID)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

// AddLot appends a lot with the next sequence number.
func (r *PostgresQuotationRepository) AddLot(ctx context.Context, quotationID string, req models.LotRequest) (*models.Lot, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var seq int
	seqQuery := `SELECT COALESCE(MAX(seq), 0) + 1 FROM lot WHERE quotation_id = $1`
	if err := tx.QueryRow(ctx, seqQuery, quotationID).Scan(&seq); err != nil {
		return nil, err
	}

	newLot := models.Lot{
		ID:          uuid.New().String(),
		QuotationID: quotationID,
		Seq:         seq,
		Description: req.Description,
	}
	insertQuery := `INSERT INTO lot (id, quotation_id, seq, description) VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insertQuery, newLot.ID, newLot.QuotationID, newLot.Seq, newLot.Description); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &newLot, nil
}

// InviteSupplier adds a supplier to the quotation roster.
func (r *PostgresQuotationRepository) InviteSupplier(ctx context.Context, quotationID, supplierID string) error {
	insertQuery := `INSERT INTO quotation_supplier (quotation_id, supplier_id, excluded) VALUES ($1, $2, false)`
	_, err := r.DB.Exec(ctx, insertQuery, quotationID, supplierID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// ExcludeSupplier flags an invited supplier as excluded.
func (r *PostgresQuotationRepository) ExcludeSupplier(ctx context.Context, quotationID, supplierID string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE quotation_supplier SET excluded = true WHERE quotation_id = $1 AND supplier_id = $2`,
		quotationID, supplierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SupplierStanding reports whether the supplier is on the roster and whether
// it has been excluded.
func (r *PostgresQuotationRepository) SupplierStanding(ctx context.Context, quotationID, supplierID string) (bool, bool, error) {
	var excluded bool
	query := `SELECT excluded FROM quotation_supplier WHERE quotation_id = $1 AND supplier_id = $2`
	err := r.DB.QueryRow(ctx, query, quotationID, supplierID).Scan(&excluded)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, excluded, nil
}

// HasResponses reports whether any response exists for the quotation.
func (r *PostgresQuotationRepository) HasResponses(ctx context.Context, quotationID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM supplier_response WHERE quotation_id = $1)`
	err := r.DB.QueryRow(ctx, query, quotationID).Scan(&exists)
	return exists, err
}
