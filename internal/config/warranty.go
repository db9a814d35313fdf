package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/warranty/internal/warranty/engine"
	"github.com/spf13/viper"
)

// TierSettings is one catalog entry as written in warranty.yml.
type TierSettings struct {
	ID          string   `mapstructure:"id"`
	Name        string   `mapstructure:"name"`
	Years       int      `mapstructure:"years"`
	BaseFee     string   `mapstructure:"base_fee"`
	Rate        string   `mapstructure:"rate"`
	Features    []string `mapstructure:"features"`
	Recommended bool     `mapstructure:"recommended"`
}

// WarrantySettings is the validated engine configuration.
type WarrantySettings struct {
	Options engine.Options
	Catalog engine.Catalog
	// Source is the config file used, empty when built-in defaults apply.
	Source string
}

// NewWarrantySettings loads warranty settings for the running service.
func NewWarrantySettings(cfg Config) (WarrantySettings, error) {
	return LoadWarranty(cfg.Warranty.CatalogFile)
}

// LoadWarranty reads warranty.yml once. An explicit path must exist; without
// one the standard locations are searched and a missing file means defaults.
// Scalar options may be overridden by WARRANTY_* environment variables.
func LoadWarranty(path string) (WarrantySettings, error) {
	v := viper.New()

	path = strings.TrimSpace(path)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("warranty")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/warranty")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := engine.DefaultOptions()
	v.SetDefault("warranty.commission_rate", defaults.CommissionRate.String())
	v.SetDefault("warranty.financing_term_months", defaults.FinancingTermMonths)
	v.SetDefault("warranty.policy", string(defaults.Policy))
	v.SetDefault("warranty.high_value_threshold", defaults.HighValueThreshold.String())
	v.SetDefault("warranty.low_value_threshold", defaults.LowValueThreshold.String())
	v.SetDefault("warranty.currency_symbol", defaults.CurrencySymbol)

	source := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return WarrantySettings{}, fmt.Errorf("read warranty config: %w", err)
		}
	} else {
		source = v.ConfigFileUsed()
	}

	opts, err := optionsFrom(v)
	if err != nil {
		return WarrantySettings{}, err
	}

	var tiers []TierSettings
	if err := v.UnmarshalKey("warranty.tiers", &tiers); err != nil {
		return WarrantySettings{}, fmt.Errorf("decode warranty tiers: %w", err)
	}

	catalog := engine.DefaultCatalog()
	if len(tiers) > 0 {
		catalog, err = catalogFrom(tiers)
		if err != nil {
			return WarrantySettings{}, err
		}
	}

	return WarrantySettings{Options: opts, Catalog: catalog, Source: source}, nil
}

func optionsFrom(v *viper.Viper) (engine.Options, error) {
	opts := engine.DefaultOptions()

	var err error
	if opts.CommissionRate, err = parseDecimal("commission_rate", v.GetString("warranty.commission_rate")); err != nil {
		return engine.Options{}, err
	}
	if opts.HighValueThreshold, err = parseDecimal("high_value_threshold", v.GetString("warranty.high_value_threshold")); err != nil {
		return engine.Options{}, err
	}
	if opts.LowValueThreshold, err = parseDecimal("low_value_threshold", v.GetString("warranty.low_value_threshold")); err != nil {
		return engine.Options{}, err
	}
	if opts.Policy, err = engine.ParsePolicy(v.GetString("warranty.policy")); err != nil {
		return engine.Options{}, err
	}
	opts.FinancingTermMonths = v.GetInt("warranty.financing_term_months")
	opts.CurrencySymbol = v.GetString("warranty.currency_symbol")

	return opts, nil
}

func catalogFrom(items []TierSettings) (engine.Catalog, error) {
	tiers := make([]engine.Tier, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		fee, err := parseDecimal(fmt.Sprintf("tiers[%d].base_fee", i), item.BaseFee)
		if err != nil {
			return engine.Catalog{}, err
		}
		rate, err := parseDecimal(fmt.Sprintf("tiers[%d].rate", i), item.Rate)
		if err != nil {
			return engine.Catalog{}, err
		}

		id := strings.TrimSpace(item.ID)
		if id == "" && name != "" {
			id = TierID(name, item.Years)
		}

		tiers = append(tiers, engine.Tier{
			ID:          id,
			Name:        name,
			Years:       item.Years,
			BaseFee:     fee,
			Rate:        rate,
			Features:    item.Features,
			Recommended: item.Recommended,
		})
	}
	return engine.NewCatalog(tiers)
}

// TierID derives a stable tier identifier, e.g. "Platinum", 25 -> "platinum-25yr".
func TierID(name string, years int) string {
	return fmt.Sprintf("%s-%dyr", slug.Make(name), years)
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", engine.ErrInvalidOptions, field, err)
	}
	return d, nil
}
