// Package engine prices warranty tiers for a job and picks the tier to
// recommend. It is pure: no I/O, no shared mutable state, and identical
// inputs always produce identical outputs, so an Engine may be used from any
// number of goroutines.
package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidJobTotal = errors.New("invalid_job_total")
	ErrUnknownTier     = errors.New("unknown_tier")
	ErrInvalidCatalog  = errors.New("invalid_catalog")
	ErrInvalidOptions  = errors.New("invalid_options")
)

const (
	DefaultFinancingTermMonths = 12
	DefaultCurrencySymbol      = "$"
)

var (
	DefaultCommissionRate     = decimal.RequireFromString("0.20")
	DefaultHighValueThreshold = decimal.NewFromInt(25_000)
	DefaultLowValueThreshold  = decimal.NewFromInt(1_000)
)

// Options tunes pricing and recommendation. Start from DefaultOptions.
type Options struct {
	CommissionRate      decimal.Decimal
	FinancingTermMonths int
	Policy              Policy
	HighValueThreshold  decimal.Decimal
	LowValueThreshold   decimal.Decimal
	CurrencySymbol      string
}

// DefaultOptions returns a 12 month term, 20% commission and the
// always_longest policy.
func DefaultOptions() Options {
	return Options{
		CommissionRate:      DefaultCommissionRate,
		FinancingTermMonths: DefaultFinancingTermMonths,
		Policy:              PolicyAlwaysLongest,
		HighValueThreshold:  DefaultHighValueThreshold,
		LowValueThreshold:   DefaultLowValueThreshold,
		CurrencySymbol:      DefaultCurrencySymbol,
	}
}

func (o Options) validate() error {
	if o.CommissionRate.IsNegative() || o.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: commission rate must be within [0, 1]", ErrInvalidOptions)
	}
	if o.FinancingTermMonths <= 0 {
		return fmt.Errorf("%w: financing term must be positive", ErrInvalidOptions)
	}
	if !o.Policy.valid() {
		return fmt.Errorf("%w: unknown policy %q", ErrInvalidOptions, o.Policy)
	}
	if o.LowValueThreshold.IsNegative() || o.HighValueThreshold.IsNegative() {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidOptions)
	}
	if o.LowValueThreshold.GreaterThan(o.HighValueThreshold) {
		return fmt.Errorf("%w: low value threshold above high value threshold", ErrInvalidOptions)
	}
	return nil
}

// Quote is a tier priced for one job total.
type Quote struct {
	Tier                Tier
	JobTotal            decimal.Decimal
	Price               decimal.Decimal
	MonthlyPayment      decimal.Decimal
	Commission          decimal.Decimal
	FinancingTermMonths int
}

// Engine computes quotes against an injected catalog.
type Engine struct {
	catalog Catalog
	opts    Options
}

// New validates opts and binds them to catalog.
func New(catalog Catalog, opts Options) (*Engine, error) {
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrInvalidCatalog)
	}
	opts.CurrencySymbol = strings.TrimSpace(opts.CurrencySymbol)
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{catalog: catalog, opts: opts}, nil
}

// Catalog returns the tiers the engine prices, ascending by years.
func (e *Engine) Catalog() []Tier {
	return e.catalog.Tiers()
}

// Options returns the validated options the engine was built with.
func (e *Engine) Options() Options {
	return e.opts
}

// WithPolicy returns an engine sharing this catalog that recommends with p.
func (e *Engine) WithPolicy(p Policy) (*Engine, error) {
	opts := e.opts
	opts.Policy = p
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{catalog: e.catalog, opts: opts}, nil
}

// GetAllQuotes prices every catalog tier for jobTotal, ascending by years.
func (e *Engine) GetAllQuotes(jobTotal float64) ([]Quote, error) {
	total, err := parseJobTotal(jobTotal)
	if err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, e.catalog.Len())
	for _, t := range e.catalog.tiers {
		q, err := e.quote(t, total)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// GetQuoteForTier prices a single tier.
func (e *Engine) GetQuoteForTier(jobTotal float64, tierID string) (Quote, error) {
	total, err := parseJobTotal(jobTotal)
	if err != nil {
		return Quote{}, err
	}

	i, ok := e.catalog.index[strings.TrimSpace(tierID)]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownTier, tierID)
	}
	return e.quote(e.catalog.tiers[i], total)
}

// FormatPrice renders an amount for display, e.g. "$1,234.56".
func (e *Engine) FormatPrice(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return e.opts.CurrencySymbol + "0.00"
	}
	return formatMoney(e.opts.CurrencySymbol, decimal.NewFromFloat(amount))
}

// quote prices t. Monthly payment and commission never exceed the price, so
// bounding the price keeps every amount within MaxAmount.
func (e *Engine) quote(t Tier, jobTotal decimal.Decimal) (Quote, error) {
	price := roundCurrency(t.BaseFee.Add(jobTotal.Mul(t.Rate)))
	if !fitsCents(price) {
		return Quote{}, fmt.Errorf("%w: %s prices above %s", ErrInvalidJobTotal, jobTotal, MaxAmount)
	}
	term := decimal.NewFromInt(int64(e.opts.FinancingTermMonths))

	return Quote{
		Tier:                t.clone(),
		JobTotal:            jobTotal,
		Price:               price,
		MonthlyPayment:      price.Div(term).RoundCeil(currencyPlaces),
		Commission:          roundCurrency(price.Mul(e.opts.CommissionRate)),
		FinancingTermMonths: e.opts.FinancingTermMonths,
	}, nil
}

func parseJobTotal(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidJobTotal, v)
	}
	total := decimal.NewFromFloat(v)
	if !fitsCents(total) {
		return decimal.Zero, fmt.Errorf("%w: %v exceeds %s", ErrInvalidJobTotal, v, MaxAmount)
	}
	return total, nil
}
