package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy selects the recommended tier for a job.
type Policy string

const (
	// PolicyAlwaysLongest pushes the longest coverage for every job.
	PolicyAlwaysLongest Policy = "always_longest"
	// PolicyThreshold recommends the catalog's flagged tier, upselling to the
	// longest tier for high-value jobs and stepping down for small ones.
	PolicyThreshold Policy = "threshold"
)

func (p Policy) valid() bool {
	switch p {
	case PolicyAlwaysLongest, PolicyThreshold:
		return true
	default:
		return false
	}
}

// ParsePolicy accepts a policy name, empty meaning the default.
func ParsePolicy(raw string) (Policy, error) {
	value := Policy(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return PolicyAlwaysLongest, nil
	}
	if !value.valid() {
		return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidOptions, raw)
	}
	return value, nil
}

// Recommendation is the full quote menu plus the tier to lead with.
type Recommendation struct {
	AllQuotes []Quote
	// Recommended is the primary call to action.
	Recommended Quote
	// CatalogDefault is the catalog-flagged tier, highlighted in comparison tables.
	CatalogDefault Quote
	Reason         string
	Policy         Policy
}

type selection int

const (
	selectLongest selection = iota
	selectHighValue
	selectFlagged
	selectSteppedDown
)

// GetRecommendation prices all tiers and chooses one per the configured policy.
func (e *Engine) GetRecommendation(jobTotal float64) (Recommendation, error) {
	quotes, err := e.GetAllQuotes(jobTotal)
	if err != nil {
		return Recommendation{}, err
	}

	idx, why := e.choose(quotes[0].JobTotal)
	chosen := quotes[idx]

	catalogDefault := chosen
	if flagged, ok := e.catalog.flaggedIndex(); ok {
		catalogDefault = quotes[flagged]
	}

	return Recommendation{
		AllQuotes:      quotes,
		Recommended:    chosen,
		CatalogDefault: catalogDefault,
		Reason:         e.reason(why, chosen),
		Policy:         e.opts.Policy,
	}, nil
}

func (e *Engine) choose(jobTotal decimal.Decimal) (int, selection) {
	longest := e.catalog.longestIndex()
	if e.opts.Policy == PolicyAlwaysLongest {
		return longest, selectLongest
	}

	if jobTotal.GreaterThanOrEqual(e.opts.HighValueThreshold) {
		return longest, selectHighValue
	}

	flagged, ok := e.catalog.flaggedIndex()
	if !ok {
		flagged = longest
	}
	if jobTotal.LessThan(e.opts.LowValueThreshold) && flagged == longest && longest > 0 {
		return longest - 1, selectSteppedDown
	}
	return flagged, selectFlagged
}

func (e *Engine) reason(why selection, q Quote) string {
	job := formatMoney(e.opts.CurrencySymbol, q.JobTotal)
	monthly := formatMoney(e.opts.CurrencySymbol, q.MonthlyPayment)
	years := pluralYears(q.Tier.Years)

	switch why {
	case selectHighValue:
		return fmt.Sprintf(
			"Jobs of %s or more qualify for %s: %s of coverage on your %s job for %s/mo over %d months.",
			formatMoney(e.opts.CurrencySymbol, e.opts.HighValueThreshold), q.Tier.Name, years, job, monthly, q.FinancingTermMonths,
		)
	case selectSteppedDown:
		return fmt.Sprintf(
			"%s keeps coverage affordable on a %s job: %s of protection for %s/mo over %d months.",
			q.Tier.Name, job, years, monthly, q.FinancingTermMonths,
		)
	case selectFlagged:
		return fmt.Sprintf(
			"%s is our most popular plan: %s of coverage on your %s job for %s/mo over %d months.",
			q.Tier.Name, years, job, monthly, q.FinancingTermMonths,
		)
	default:
		return fmt.Sprintf(
			"%s is our most complete protection: %s of coverage on your %s job for %s/mo over %d months.",
			q.Tier.Name, years, job, monthly, q.FinancingTermMonths,
		)
	}
}

func pluralYears(n int) string {
	if n == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", n)
}
