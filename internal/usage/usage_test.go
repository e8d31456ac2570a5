package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEstimator_ThresholdBoundary(t *testing.T) {
	e := NewEstimator(Config{MinTokens: 5, JoulesPerToken: 1, GridIntensity: 77, Precision: 2})

	_, ok := e.Estimate(4)
	require.False(t, ok)
	require.Equal(t, Totals{}, e.Totals())

	r, ok := e.Estimate(5)
	require.True(t, ok)
	require.Equal(t, 5.0, r.EnergyJoules)
	require.Equal(t, 1, e.Totals().Episodes)
}

func TestEstimator_EnergyAndEmissions(t *testing.T) {
	e := NewEstimator(Config{MinTokens: 1, JoulesPerToken: 2.16, GridIntensity: 77, Precision: 6})

	r, ok := e.Estimate(6)
	require.True(t, ok)
	require.InDelta(t, 12.96, r.EnergyJoules, 1e-9)
	require.InDelta(t, 12.96, r.TotalEnergyJoules, 1e-9)
	require.InDelta(t, Round(12.96/3_600_000*77, 6), r.TotalEmissionsGrams, 1e-12)
}

func TestEstimator_PublishedValuesAreRounded(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	r, ok := e.Estimate(6)
	require.True(t, ok)
	require.Equal(t, 18.0, r.EnergyJoules)
	// 18 J is 0.000385 g at 77 g/kWh, which rounds to zero at two places.
	require.Equal(t, 0.0, r.TotalEmissionsGrams)

	for i := 0; i < 10000; i++ {
		e.Estimate(6)
	}
	totals := e.Totals()
	require.Equal(t, 180018.0, totals.EnergyJoules)
	require.Equal(t, 3.85, totals.EmissionsGrams)
	require.Equal(t, 60006, totals.Tokens)
}

func TestEstimator_EmissionsFromCumulativeTotal(t *testing.T) {
	e := NewEstimator(Config{MinTokens: 1, JoulesPerToken: 1_800_000, GridIntensity: 100, Precision: 2})

	r, _ := e.Estimate(1)
	require.Equal(t, 50.0, r.TotalEmissionsGrams)
	r, _ = e.Estimate(1)
	require.Equal(t, 100.0, r.TotalEmissionsGrams)
	require.Equal(t, 3_600_000.0, r.TotalEnergyJoules)
}

func TestRound(t *testing.T) {
	require.Equal(t, 1.23, Round(1.2349, 2))
	require.Equal(t, 1.24, Round(1.2351, 2))
	require.Equal(t, 2.0, Round(1.5, 0))
	require.Equal(t, 12.96, Round(12.9600000001, 2))
}

func TestEstimator_TotalsNonDecreasing(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		e := NewEstimator(Config{
			MinTokens:      rapid.IntRange(0, 5).Draw(r, "min"),
			JoulesPerToken: rapid.Float64Range(0, 10).Draw(r, "jpt"),
			GridIntensity:  rapid.Float64Range(0, 1000).Draw(r, "grid"),
			Precision:      rapid.IntRange(0, 6).Draw(r, "precision"),
		})

		prev := e.Totals()
		for _, n := range rapid.SliceOfN(rapid.IntRange(0, 500), 1, 30).Draw(r, "tokens") {
			_, ok := e.Estimate(n)
			cur := e.Totals()
			require.GreaterOrEqual(r, cur.EnergyJoules, prev.EnergyJoules)
			require.GreaterOrEqual(r, cur.EmissionsGrams, prev.EmissionsGrams)
			if !ok {
				require.Equal(r, prev, cur)
			}
			prev = cur
		}
	})
}

func TestEstimator_ConcurrentReaders(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.Estimate(10)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = e.Totals()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 400, e.Totals().Episodes)
	require.Equal(t, 12000.0, e.Totals().EnergyJoules)
}
