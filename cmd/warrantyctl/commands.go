package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/warranty/engine"
	"github.com/spf13/cobra"
)

type cli struct {
	out         io.Writer
	catalogFile string
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "warrantyctl",
		Short:         "Price and recommend warranty tiers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.catalogFile, "catalog", "", "warranty.yml to load instead of the built-in catalog")

	root.AddCommand(
		&cobra.Command{
			Use:   "tiers",
			Short: "List catalog tiers",
			Args:  cobra.NoArgs,
			RunE:  c.runTiers,
		},
		&cobra.Command{
			Use:   "quotes <job_total>",
			Short: "Quote every tier for a job",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runQuotes,
		},
		&cobra.Command{
			Use:   "tier <tier_id> <job_total>",
			Short: "Quote a single tier",
			Args:  cobra.ExactArgs(2),
			RunE:  c.runTier,
		},
		&cobra.Command{
			Use:   "format <amount>",
			Short: "Format an amount for display",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runFormat,
		},
	)

	recommend := &cobra.Command{
		Use:   "recommend <job_total>",
		Short: "Recommend a tier for a job",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runRecommend,
	}
	recommend.Flags().String("policy", "", "override the configured policy (always_longest, threshold)")
	root.AddCommand(recommend)

	return root
}

func (c *cli) engine() (*engine.Engine, error) {
	settings, err := config.LoadWarranty(c.catalogFile)
	if err != nil {
		return nil, err
	}
	return engine.New(settings.Catalog, settings.Options)
}

func (c *cli) runTiers(cmd *cobra.Command, args []string) error {
	e, err := c.engine()
	if err != nil {
		return err
	}

	symbol := e.Options().CurrencySymbol
	tbl := newTable(c.out, "ID", "NAME", "YEARS", "BASE FEE", "RATE").alignRight(2, 3, 4)
	for _, t := range e.Catalog() {
		name := t.Name
		if t.Recommended {
			name += " *"
		}
		tbl.addRow(t.ID, name, strconv.Itoa(t.Years), engine.FormatAmount(symbol, t.BaseFee), t.Rate.String())
	}
	return tbl.render(c.out)
}

func (c *cli) runQuotes(cmd *cobra.Command, args []string) error {
	total, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	e, err := c.engine()
	if err != nil {
		return err
	}

	quotes, err := e.GetAllQuotes(total)
	if err != nil {
		return err
	}
	return c.printQuotes(e, quotes)
}

func (c *cli) runTier(cmd *cobra.Command, args []string) error {
	total, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	e, err := c.engine()
	if err != nil {
		return err
	}

	q, err := e.GetQuoteForTier(total, args[0])
	if err != nil {
		return err
	}
	return c.printQuotes(e, []engine.Quote{q})
}

func (c *cli) runRecommend(cmd *cobra.Command, args []string) error {
	total, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	e, err := c.engine()
	if err != nil {
		return err
	}

	if raw, _ := cmd.Flags().GetString("policy"); strings.TrimSpace(raw) != "" {
		policy, err := engine.ParsePolicy(raw)
		if err != nil {
			return err
		}
		if e, err = e.WithPolicy(policy); err != nil {
			return err
		}
	}

	rec, err := e.GetRecommendation(total)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Recommended: %s (%s)\n", rec.Recommended.Tier.Name, rec.Recommended.Tier.ID)
	fmt.Fprintf(c.out, "Policy:      %s\n", rec.Policy)
	fmt.Fprintf(c.out, "Reason:      %s\n\n", rec.Reason)
	return c.printQuotes(e, rec.AllQuotes)
}

func (c *cli) runFormat(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", args[0])
	}
	e, err := c.engine()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, e.FormatPrice(amount))
	return nil
}

func (c *cli) printQuotes(e *engine.Engine, quotes []engine.Quote) error {
	symbol := e.Options().CurrencySymbol
	tbl := newTable(c.out, "TIER", "YEARS", "PRICE", "MONTHLY", "COMMISSION").alignRight(1, 2, 3, 4)
	for _, q := range quotes {
		tbl.addRow(
			q.Tier.ID,
			strconv.Itoa(q.Tier.Years),
			engine.FormatAmount(symbol, q.Price),
			engine.FormatAmount(symbol, q.MonthlyPayment),
			engine.FormatAmount(symbol, q.Commission),
		)
	}
	return tbl.render(c.out)
}

func parseAmount(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", engine.ErrInvalidJobTotal, raw)
	}
	return v, nil
}
