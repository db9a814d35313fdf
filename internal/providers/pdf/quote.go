package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// QuoteSheet is an issued warranty quote with every amount already
// formatted for display.
type QuoteSheet struct {
	QuoteID             string
	JobReference        string
	IssueDate           string
	TierName            string
	Years               int
	Features            []string
	JobTotal            string
	Price               string
	MonthlyPayment      string
	FinancingTermMonths int
	Currency            string
	Checksum            string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateQuote(ctx context.Context, sheet QuoteSheet) (io.Reader, error) {
	if strings.TrimSpace(sheet.QuoteID) == "" {
		return nil, fmt.Errorf("quote sheet requires a quote id")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, "Warranty Quote", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, sheet.Currency, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Quote number: "+sheet.QuoteID, props.Text{Top: 0}),
			text.New("Job reference: "+sheet.JobReference, props.Text{Top: 4}),
			text.New("Date of issue: "+sheet.IssueDate, props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(15,
		text.NewCol(12, fmt.Sprintf("%s (%s)", sheet.TierName, coverage(sheet.Years)), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	for _, feature := range sheet.Features {
		m.AddRow(6, text.NewCol(12, "- "+feature, props.Text{Size: 9}))
	}

	m.AddRow(4, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(8, "Job total", props.Text{Size: 9}),
		text.NewCol(4, sheet.JobTotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(8, "Warranty price", props.Text{Size: 9}),
		text.NewCol(4, sheet.Price, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(8, fmt.Sprintf("Monthly payment (%d months)", sheet.FinancingTermMonths), props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, sheet.MonthlyPayment, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	m.AddRow(12,
		text.NewCol(12, "Reference checksum "+sheet.Checksum, props.Text{Size: 7, Top: 6}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func coverage(years int) string {
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}
