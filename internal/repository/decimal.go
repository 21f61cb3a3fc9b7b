package repository

import "github.com/shopspring/decimal"

// Monetary columns are NUMERIC and travel as text between Postgres and the
// decimal type, so no float conversion ever touches a price.

func decimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func decimalFromNullable(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullableToString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
