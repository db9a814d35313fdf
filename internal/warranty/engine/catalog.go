package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is a warranty coverage option. Price for a job is BaseFee + Rate*jobTotal.
type Tier struct {
	ID          string
	Name        string
	Years       int
	BaseFee     decimal.Decimal
	Rate        decimal.Decimal
	Features    []string
	Recommended bool
}

func (t Tier) clone() Tier {
	out := t
	if t.Features != nil {
		out.Features = append([]string(nil), t.Features...)
	}
	return out
}

// Catalog is an immutable, validated set of tiers ordered by ascending years.
type Catalog struct {
	tiers []Tier
	index map[string]int
}

// NewCatalog validates tiers and returns them as a Catalog sorted by years.
//
// Base fees and rates must be non-decreasing in years so that, for any job
// total, a longer tier is never cheaper than a shorter one.
func NewCatalog(tiers []Tier) (Catalog, error) {
	if len(tiers) == 0 {
		return Catalog{}, fmt.Errorf("%w: no tiers", ErrInvalidCatalog)
	}

	sorted := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		t = t.clone()
		t.ID = strings.TrimSpace(t.ID)
		t.Name = strings.TrimSpace(t.Name)
		sorted = append(sorted, t)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Years < sorted[j].Years
	})

	index := make(map[string]int, len(sorted))
	flagged := 0
	for i, t := range sorted {
		if t.ID == "" {
			return Catalog{}, fmt.Errorf("%w: tier %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := index[t.ID]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate tier id %q", ErrInvalidCatalog, t.ID)
		}
		if t.Name == "" {
			return Catalog{}, fmt.Errorf("%w: tier %q has no name", ErrInvalidCatalog, t.ID)
		}
		if t.Years <= 0 {
			return Catalog{}, fmt.Errorf("%w: tier %q years must be positive", ErrInvalidCatalog, t.ID)
		}
		if t.BaseFee.IsNegative() || t.Rate.IsNegative() {
			return Catalog{}, fmt.Errorf("%w: tier %q has negative pricing", ErrInvalidCatalog, t.ID)
		}
		if i > 0 {
			prev := sorted[i-1]
			if t.Years == prev.Years {
				return Catalog{}, fmt.Errorf("%w: tiers %q and %q share %d years", ErrInvalidCatalog, prev.ID, t.ID, t.Years)
			}
			if t.BaseFee.LessThan(prev.BaseFee) || t.Rate.LessThan(prev.Rate) {
				return Catalog{}, fmt.Errorf("%w: tier %q is priced below shorter tier %q", ErrInvalidCatalog, t.ID, prev.ID)
			}
		}
		if t.Recommended {
			flagged++
		}
		index[t.ID] = i
	}
	if flagged > 1 {
		return Catalog{}, fmt.Errorf("%w: %d tiers flagged as recommended", ErrInvalidCatalog, flagged)
	}

	return Catalog{tiers: sorted, index: index}, nil
}

// MustCatalog is NewCatalog for static catalogs known to be valid.
func MustCatalog(tiers []Tier) Catalog {
	c, err := NewCatalog(tiers)
	if err != nil {
		panic(err)
	}
	return c
}

// Tiers returns a copy of the catalog in ascending years order.
func (c Catalog) Tiers() []Tier {
	out := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t.clone())
	}
	return out
}

// Len returns the number of tiers.
func (c Catalog) Len() int { return len(c.tiers) }

// Lookup finds a tier by id.
func (c Catalog) Lookup(id string) (Tier, bool) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Tier{}, false
	}
	return c.tiers[i].clone(), true
}

func (c Catalog) longestIndex() int {
	return len(c.tiers) - 1
}

func (c Catalog) flaggedIndex() (int, bool) {
	for i, t := range c.tiers {
		if t.Recommended {
			return i, true
		}
	}
	return 0, false
}

// DefaultCatalog returns the standard six-tier catalog.
func DefaultCatalog() Catalog {
	return MustCatalog([]Tier{
		{
			ID:       "basic-1yr",
			Name:     "Basic Protection",
			Years:    1,
			BaseFee:  decimal.NewFromInt(49),
			Rate:     decimal.RequireFromString("0.05"),
			Features: []string{"Workmanship defects", "Labor on covered repairs"},
		},
		{
			ID:       "standard-3yr",
			Name:     "Standard Coverage",
			Years:    3,
			BaseFee:  decimal.NewFromInt(99),
			Rate:     decimal.RequireFromString("0.08"),
			Features: []string{"Workmanship defects", "Labor on covered repairs", "Parts replacement"},
		},
		{
			ID:          "extended-5yr",
			Name:        "Extended Warranty",
			Years:       5,
			BaseFee:     decimal.NewFromInt(149),
			Rate:        decimal.RequireFromString("0.10"),
			Features:    []string{"Workmanship defects", "Labor on covered repairs", "Parts replacement", "Annual inspection"},
			Recommended: true,
		},
		{
			ID:       "premium-15yr",
			Name:     "Premium",
			Years:    15,
			BaseFee:  decimal.NewFromInt(299),
			Rate:     decimal.RequireFromString("0.15"),
			Features: []string{"Workmanship defects", "Labor on covered repairs", "Parts replacement", "Annual inspection", "Priority scheduling"},
		},
		{
			ID:       "elite-20yr",
			Name:     "Elite",
			Years:    20,
			BaseFee:  decimal.NewFromInt(399),
			Rate:     decimal.RequireFromString("0.18"),
			Features: []string{"Workmanship defects", "Labor on covered repairs", "Parts replacement", "Annual inspection", "Priority scheduling", "Transferable to new owner"},
		},
		{
			ID:       "platinum-25yr",
			Name:     "Platinum",
			Years:    25,
			BaseFee:  decimal.NewFromInt(499),
			Rate:     decimal.RequireFromString("0.20"),
			Features: []string{"Workmanship defects", "Labor on covered repairs", "Parts replacement", "Annual inspection", "Priority scheduling", "Transferable to new owner", "24/7 emergency service"},
		},
	})
}
