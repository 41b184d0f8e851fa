// Package vacancy exposes read-only access to the open-positions catalog.
// The catalog itself is maintained elsewhere; this service only lists it.
package vacancy

import "context"

// Vacancy is one open delivery slot at a partner pharmacy.
type Vacancy struct {
	ID             string `json:"vacancyId"`
	City           string `json:"city"`
	Shift          string `json:"shift"`
	Pharmacy       string `json:"pharmacy"`
	DeliveryFee    string `json:"deliveryFee"`
	SlotsRemaining int    `json:"slotsRemaining"`
}

// Source lists open vacancies. Results may be stale; the funnel treats them
// as a best-effort snapshot, never as a reservation.
type Source interface {
	// OpenCities returns the distinct cities that currently have at least
	// one open vacancy, sorted.
	OpenCities(ctx context.Context) ([]string, error)
	// ListOpen returns the open vacancies for one city.
	ListOpen(ctx context.Context, city string) ([]Vacancy, error)
}
