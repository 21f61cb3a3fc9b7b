package repository

import (
	"context"
	"errors"

	"github.com/opencotacao/award-engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseRepository handles supplier responses and their item breakdowns.
type ResponseRepository interface {
	CreateResponse(ctx context.Context, response models.SupplierResponse, prices []models.ItemResponse) error
	GetResponses(ctx context.Context, quotationID string) ([]models.SupplierResponse, error)
	GetItemResponses(ctx context.Context, quotationID string) ([]models.ItemResponse, error)
	RejectResponse(ctx context.Context, responseID string) (*models.SupplierResponse, error)
}

// PostgresResponseRepository implements ResponseRepository over pgx.
type PostgresResponseRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresResponseRepository creates a new PostgresResponseRepository.
func NewPostgresResponseRepository(db *pgxpool.Pool) *PostgresResponseRepository {
	return &PostgresResponseRepository{DB: db}
}

// CreateResponse stores the response and its item prices in one transaction.
// The UNIQUE(quotation_id, supplier_id) constraint turns a resubmission into
// ErrDuplicate; it is never overwritten.
func (r *PostgresResponseRepository) CreateResponse(ctx context.Context, response models.SupplierResponse, prices []models.ItemResponse) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insertQuery := `INSERT INTO supplier_response (id, quotation_id, supplier_id, total, discount_percent, rejected, submitted_at)
                   VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)`
	_, err = tx.Exec(
		ctx,
		insertQuery,
		response.ID,
		response.QuotationID,
		response.SupplierID,
		response.Total.String(),
		nullableToString(response.DiscountPercent),
		response.Rejected,
		response.SubmittedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	priceQuery := `INSERT INTO item_response (response_id, item_id, unit_price) VALUES ($1, $2, $3::numeric)`
	for _, price := range prices {
		if _, err := tx.Exec(ctx, priceQuery, price.ResponseID, price.ItemID, price.UnitPrice.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetResponses returns every response for the quotation, rejected included;
// callers filter by the rejected flag.
func (r *PostgresResponseRepository) GetResponses(ctx context.Context, quotationID string) ([]models.SupplierResponse, error) {
	query := `SELECT id, quotation_id, supplier_id, total::text, discount_percent::text, rejected, submitted_at
	          FROM supplier_response
	          WHERE quotation_id = $1
	          ORDER BY submitted_at`
	rows, err := r.DB.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []models.SupplierResponse
	for rows.Next() {
		var response models.SupplierResponse
		var total string
		var discount *string
		if err := rows.Scan(
			&response.ID,
			&response.QuotationID,
			&response.SupplierID,
			&total,
			&discount,
			&response.Rejected,
			&response.SubmittedAt); err != nil {
			return nil, err
		}
		if response.Total, err = decimalFromString(total); err != nil {
			return nil, err
		}
		if response.DiscountPercent, err = decimalFromNullable(discount); err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, rows.Err()
}

// GetItemResponses returns all item prices submitted for the quotation.
func (r *PostgresResponseRepository) GetItemResponses(ctx context.Context, quotationID string) ([]models.ItemResponse, error) {
	query := `
		SELECT ir.response_id, ir.item_id, ir.unit_price::text
		FROM item_response ir
		JOIN supplier_response sr ON ir.response_id = sr.id
		WHERE sr.quotation_id = $1`
	rows, err := r.DB.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var itemResponses []models.ItemResponse
	for rows.Next() {
		var ir models.ItemResponse
		var price string
		if err := rows.Scan(&ir.ResponseID, &ir.ItemID, &price); err != nil {
			return nil, err
		}
		if ir.UnitPrice, err = decimalFromString(price); err != nil {
			return nil, err
		}
		itemResponses = append(itemResponses, ir)
	}
	return itemResponses, rows.Err()
}

// RejectResponse flags a response as rejected without deleting it, so the
// submission stays auditable while dropping out of evaluation.
func (r *PostgresResponseRepository) RejectResponse(ctx context.Context, responseID string) (*models.SupplierResponse, error) {
	query := `UPDATE supplier_response SET rejected = true WHERE id = $1
	          RETURNING id, quotation_id, supplier_id, total::text, discount_percent::text, rejected, submitted_at`
	var response models.SupplierResponse
	var total string
	var discount *string
	err := r.DB.QueryRow(ctx, query, responseID).Scan(
		&response.ID,
		&response.QuotationID,
		&response.SupplierID,
		&total,
		&discount,
		&response.Rejected,
		&response.SubmittedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if response.Total, err = decimalFromString(total); err != nil {
		return nil, err
	}
	if response.DiscountPercent, err = decimalFromNullable(discount); err != nil {
		return nil, err
	}
	return &response, nil
}
