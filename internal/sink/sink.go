// Package sink persists recorded episodes.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// Record is one accepted episode with the totals after it was counted.
type Record struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	FileName            string    `json:"file_name"`
	InsertedText        string    `json:"inserted_text"`
	TokenCount          int       `json:"token_count"`
	EnergyJoules        float64   `json:"energy_joules"`
	TotalEnergyJoules   float64   `json:"total_energy_joules"`
	TotalEmissionsGrams float64   `json:"total_emissions_grams"`
}

// Sink appends records to durable storage.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Named is implemented by sinks that label their errors.
type Named interface {
	Name() string
}

// Multi appends to every sink, continuing past failures. The returned error
// joins each failure.
type Multi []Sink

// Append implements Sink.
func (m Multi) Append(ctx context.Context, rec Record) error {
	var errs []error
	for i, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			name := fmt.Sprintf("sink %d", i)
			if n, ok := s.(Named); ok {
				name = n.Name()
			}
			log.Warn(log.CatSink, "Append failed", "sink", name, "record", rec.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
