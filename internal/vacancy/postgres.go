package vacancy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads the vacancies table maintained by the catalog
// ingestion pipeline. Only rows with status 'open' and at least one remaining
// slot are ever returned.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource constructs a PostgresSource.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) OpenCities(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT city FROM vacancies
		 WHERE status = 'open' AND slots_remaining >= 1
		 ORDER BY city`,
	)
	if err != nil {
		return nil, fmt.Errorf("query open cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (s *PostgresSource) ListOpen(ctx context.Context, city string) ([]Vacancy, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT vacancy_id, city, shift, pharmacy, delivery_fee, slots_remaining
		 FROM vacancies
		 WHERE status = 'open' AND slots_remaining >= 1 AND lower(city) = lower($1)
		 ORDER BY vacancy_id`,
		city,
	)
	if err != nil {
		return nil, fmt.Errorf("query open vacancies: %w", err)
	}
	defer rows.Close()

	var out []Vacancy
	for rows.Next() {
		var v Vacancy
		if err := rows.Scan(&v.ID, &v.City, &v.Shift, &v.Pharmacy, &v.DeliveryFee, &v.SlotsRemaining); err != nil {
			return nil, fmt.Errorf("scan vacancy: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
