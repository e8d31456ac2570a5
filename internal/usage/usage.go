// Package usage converts token counts into energy and emissions estimates
// and keeps the session's running totals.
package usage

import (
	"math"
	"sync"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// JoulesPerKWh converts joules to kilowatt-hours.
const JoulesPerKWh = 3_600_000.0

// Config holds the estimation constants.
type Config struct {
	// MinTokens is the smallest count that updates totals. Equal counts are accepted.
	MinTokens int
	// JoulesPerToken is the energy attributed to one generated token.
	JoulesPerToken float64
	// GridIntensity is grams of CO2e per kWh.
	GridIntensity float64
	// Precision is the number of decimal places in published values.
	Precision int
}

// DefaultConfig returns the stock estimation constants.
func DefaultConfig() Config {
	return Config{
		MinTokens:      1,
		JoulesPerToken: 3.0,
		GridIntensity:  77,
		Precision:      2,
	}
}

// Reading is the published result of one accepted estimate.
type Reading struct {
	Tokens              int     `json:"tokens"`
	EnergyJoules        float64 `json:"energy_joules"`
	TotalEnergyJoules   float64 `json:"total_energy_joules"`
	TotalEmissionsGrams float64 `json:"total_emissions_grams"`
}

// Totals are the session's cumulative values, rounded for display.
type Totals struct {
	EnergyJoules   float64 `json:"energy_joules"`
	EmissionsGrams float64 `json:"emissions_grams"`
	Tokens         int     `json:"tokens"`
	Episodes       int     `json:"episodes"`
}

// Estimator accumulates totals. Safe for concurrent use.
type Estimator struct {
	cfg Config

	mu        sync.Mutex
	energy    float64
	emissions float64
	tokens    int
	episodes  int
}

// NewEstimator creates an Estimator with zero totals.
func NewEstimator(cfg Config) *Estimator {
	if cfg.Precision < 0 {
		cfg.Precision = 0
	}
	return &Estimator{cfg: cfg}
}

// Config returns the constants in use.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate records tokens and returns the published reading. It returns
// false and leaves totals untouched when tokens is below MinTokens.
func (e *Estimator) Estimate(tokens int) (Reading, bool) {
	if tokens < e.cfg.MinTokens {
		log.Debug(log.CatEstimate, "Below token threshold", "tokens", tokens, "min", e.cfg.MinTokens)
		return Reading{}, false
	}

	energy := float64(tokens) * e.cfg.JoulesPerToken

	e.mu.Lock()
	e.energy += energy
	e.emissions = e.energy / JoulesPerKWh * e.cfg.GridIntensity
	e.tokens += tokens
	e.episodes++
	r := Reading{
		Tokens:              tokens,
		EnergyJoules:        Round(energy, e.cfg.Precision),
		TotalEnergyJoules:   Round(e.energy, e.cfg.Precision),
		TotalEmissionsGrams: Round(e.emissions, e.cfg.Precision),
	}
	e.mu.Unlock()

	log.Info(log.CatEstimate, "Estimate",
		"tokens", tokens, "energy_j", r.EnergyJoules, "total_j", r.TotalEnergyJoules, "total_g", r.TotalEmissionsGrams)
	return r, true
}

// Totals returns the current cumulative values.
func (e *Estimator) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Totals{
		EnergyJoules:   Round(e.energy, e.cfg.Precision),
		EmissionsGrams: Round(e.emissions, e.cfg.Precision),
		Tokens:         e.tokens,
		Episodes:       e.episodes,
	}
}

// Round rounds v half away from zero to places decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
