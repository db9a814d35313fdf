package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPolicyEngine(t *testing.T, catalog Catalog, policy Policy) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Policy = policy
	e, err := New(catalog, opts)
	require.NoError(t, err)
	return e
}

func TestGetRecommendation_AlwaysLongest(t *testing.T) {
	e := newDefaultEngine(t)

	for _, total := range jobTotals {
		rec, err := e.GetRecommendation(total)
		require.NoError(t, err)

		assert.Equal(t, PolicyAlwaysLongest, rec.Policy)
		assert.Equal(t, "platinum-25yr", rec.Recommended.Tier.ID)
		assert.Equal(t, "extended-5yr", rec.CatalogDefault.Tier.ID)
		require.Len(t, rec.AllQuotes, 6)
		if diff := cmp.Diff(rec.AllQuotes[len(rec.AllQuotes)-1], rec.Recommended, decimalComparer); diff != "" {
			t.Fatalf("recommended quote differs from menu entry (-menu +recommended):\n%s", diff)
		}
	}
}

func TestGetRecommendation_ReasonText(t *testing.T) {
	e := newDefaultEngine(t)

	rec, err := e.GetRecommendation(10000)
	require.NoError(t, err)
	assert.Equal(t,
		"Platinum is our most complete protection: 25 years of coverage on your $10,000.00 job for $208.25/mo over 12 months.",
		rec.Reason,
	)
}

func TestGetRecommendation_Deterministic(t *testing.T) {
	e := newDefaultEngine(t)

	first, err := e.GetRecommendation(4321.09)
	require.NoError(t, err)
	second, err := e.GetRecommendation(4321.09)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, decimalComparer); diff != "" {
		t.Fatalf("recommendation not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Reason, second.Reason)
}

func TestGetRecommendation_Threshold(t *testing.T) {
	e := newPolicyEngine(t, DefaultCatalog(), PolicyThreshold)

	cases := []struct {
		name   string
		total  float64
		tierID string
		reason string
	}{
		{
			name:   "high_value_upsells_to_longest",
			total:  30000,
			tierID: "platinum-25yr",
			reason: "Jobs of $25,000.00 or more qualify for Platinum: 25 years of coverage on your $30,000.00 job for $541.59/mo over 12 months.",
		},
		{
			name:   "threshold_is_inclusive",
			total:  25000,
			tierID: "platinum-25yr",
		},
		{
			name:   "mid_value_uses_flagged",
			total:  5000,
			tierID: "extended-5yr",
			reason: "Extended Warranty is our most popular plan: 5 years of coverage on your $5,000.00 job for $54.09/mo over 12 months.",
		},
		{
			name:   "low_value_keeps_flagged_when_not_longest",
			total:  500,
			tierID: "extended-5yr",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := e.GetRecommendation(tc.total)
			require.NoError(t, err)
			assert.Equal(t, PolicyThreshold, rec.Policy)
			assert.Equal(t, tc.tierID, rec.Recommended.Tier.ID)
			assert.Equal(t, "extended-5yr", rec.CatalogDefault.Tier.ID)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, rec.Reason)
			}
		})
	}
}

func TestGetRecommendation_ThresholdStepsDownWithoutFlag(t *testing.T) {
	catalog := MustCatalog([]Tier{
		{ID: "beta", Name: "Beta", Years: 2, BaseFee: decimal.NewFromInt(20), Rate: decimal.RequireFromString("0.2")},
		{ID: "alpha", Name: "Alpha", Years: 1, BaseFee: decimal.NewFromInt(10), Rate: decimal.RequireFromString("0.1")},
	})
	e := newPolicyEngine(t, catalog, PolicyThreshold)

	rec, err := e.GetRecommendation(500)
	require.NoError(t, err)
	assert.Equal(t, "alpha", rec.Recommended.Tier.ID)
	assert.Equal(t, "alpha", rec.CatalogDefault.Tier.ID)
	assert.Equal(t,
		"Alpha keeps coverage affordable on a $500.00 job: 1 year of protection for $5.00/mo over 12 months.",
		rec.Reason,
	)

	rec, err = e.GetRecommendation(5000)
	require.NoError(t, err)
	assert.Equal(t, "beta", rec.Recommended.Tier.ID)
}

func TestGetRecommendation_SingleTierCatalog(t *testing.T) {
	catalog := MustCatalog([]Tier{
		{ID: "only-1yr", Name: "Only", Years: 1, BaseFee: decimal.NewFromInt(10), Rate: decimal.RequireFromString("0.1")},
	})

	for _, policy := range []Policy{PolicyAlwaysLongest, PolicyThreshold} {
		e := newPolicyEngine(t, catalog, policy)
		for _, total := range []float64{1, 5000, 50000} {
			rec, err := e.GetRecommendation(total)
			require.NoError(t, err)
			assert.Equal(t, "only-1yr", rec.Recommended.Tier.ID)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAlwaysLongest, p)

	p, err = ParsePolicy(" Threshold ")
	require.NoError(t, err)
	assert.Equal(t, PolicyThreshold, p)

	_, err = ParsePolicy("cheapest")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestWithPolicy(t *testing.T) {
	e := newDefaultEngine(t)

	threshold, err := e.WithPolicy(PolicyThreshold)
	require.NoError(t, err)
	assert.Equal(t, PolicyThreshold, threshold.Options().Policy)
	assert.Equal(t, PolicyAlwaysLongest, e.Options().Policy)

	rec, err := threshold.GetRecommendation(5000)
	require.NoError(t, err)
	assert.Equal(t, "extended-5yr", rec.Recommended.Tier.ID)

	_, err = e.WithPolicy("random")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
