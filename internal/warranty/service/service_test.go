package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/warranty/internal/clock"
	"github.com/smallbiznis/warranty/internal/config"
	"github.com/smallbiznis/warranty/internal/providers/pdf"
	"github.com/smallbiznis/warranty/internal/salesmetrics"
	"github.com/smallbiznis/warranty/internal/warranty/domain"
	"github.com/smallbiznis/warranty/internal/warranty/engine"
	"github.com/smallbiznis/warranty/internal/warranty/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

var issuedAt = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type stubPDF struct {
	mu     sync.Mutex
	sheets []pdf.QuoteSheet
}

func (p *stubPDF) GenerateQuote(ctx context.Context, sheet pdf.QuoteSheet) (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sheets = append(p.sheets, sheet)
	return bytes.NewReader([]byte("%PDF-stub")), nil
}

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	pdf   *stubPDF
	sales *salesmetrics.Recorder
	logs  *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.QuoteSnapshot{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	eng, err := engine.New(engine.DefaultCatalog(), engine.DefaultOptions())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	f := &fixture{
		db:    conn,
		clock: clock.NewFakeClock(issuedAt),
		pdf:   &stubPDF{},
		sales: salesmetrics.NewRecorder("warranty-test"),
		logs:  logs,
	}
	f.svc = New(Params{
		DB:     conn,
		Log:    zap.New(core),
		GenID:  node,
		Clock:  f.clock,
		Engine: eng,
		Repo:   repository.Provide(),
		Cfg:    config.Config{Warranty: config.WarrantyConfig{Currency: "usd"}},
		PDF:    f.pdf,
		Sales:  f.sales,
	})
	return f
}

func TestListTiers(t *testing.T) {
	f := newFixture(t)

	tiers, err := f.svc.ListTiers(context.Background())
	require.NoError(t, err)
	require.Len(t, tiers, 6)
	assert.Equal(t, "platinum-25yr", tiers[5].ID)
	for i := 1; i < len(tiers); i++ {
		assert.Less(t, tiers[i-1].Years, tiers[i].Years)
	}
}

func TestQuotes(t *testing.T) {
	f := newFixture(t)

	quotes, err := f.svc.Quotes(context.Background(), 10000)
	require.NoError(t, err)
	require.Len(t, quotes, 6)

	platinum := quotes[5]
	assert.Equal(t, "2499.00", platinum.Price)
	assert.Equal(t, int64(249_900), platinum.PriceCents)
	assert.Equal(t, "208.25", platinum.MonthlyPayment)
	assert.Equal(t, "499.80", platinum.Commission)
	assert.Equal(t, "$2,499.00", platinum.Display.Price)
	assert.Equal(t, "$10,000.00", platinum.Display.JobTotal)

	_, err = f.svc.Quotes(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)
}

func TestQuoteForTier(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.QuoteForTier(context.Background(), 10000, "standard-3yr")
	require.NoError(t, err)
	assert.Equal(t, "899.00", q.Price)
	assert.Equal(t, "74.92", q.MonthlyPayment)
	assert.Equal(t, "179.80", q.Commission)

	_, err = f.svc.QuoteForTier(context.Background(), 10000, "diamond-99yr")
	assert.ErrorIs(t, err, domain.ErrUnknownTier)

	_, err = f.svc.QuoteForTier(context.Background(), -100, "standard-3yr")
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)
}

func TestRecommend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Recommend(ctx, domain.RecommendRequest{JobTotal: 5000})
	require.NoError(t, err)
	assert.Equal(t, "always_longest", rec.Policy)
	assert.Equal(t, "platinum-25yr", rec.Recommended.TierID)
	assert.Equal(t, "extended-5yr", rec.CatalogDefault.TierID)
	assert.Len(t, rec.Quotes, 6)
	assert.NotEmpty(t, rec.Reason)

	rec, err = f.svc.Recommend(ctx, domain.RecommendRequest{JobTotal: 5000, Policy: "threshold"})
	require.NoError(t, err)
	assert.Equal(t, "threshold", rec.Policy)
	assert.Equal(t, "extended-5yr", rec.Recommended.TierID)

	_, err = f.svc.Recommend(ctx, domain.RecommendRequest{JobTotal: 5000, Policy: "cheapest"})
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)

	_, err = f.svc.Recommend(ctx, domain.RecommendRequest{JobTotal: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)
}

func TestFormatPrice(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "$1,234.50", f.svc.FormatPrice(context.Background(), 1234.5))
}

func TestIssueQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := domain.IssueRequest{JobReference: " JOB-100 ", TierID: "platinum-25yr", JobTotal: 10000}

	first, err := f.svc.IssueQuote(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, "JOB-100", first.JobReference)
	assert.Equal(t, "2499.00", first.Price)
	assert.Equal(t, "208.25", first.MonthlyPayment)
	assert.Equal(t, "499.80", first.Commission)
	assert.Equal(t, "USD", first.Currency)
	assert.Len(t, first.Checksum, 64)
	assert.True(t, first.IssuedAt.Equal(issuedAt))

	f.clock.Advance(time.Hour)
	second, err := f.svc.IssueQuote(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IssuedAt.Equal(issuedAt))

	var count int64
	require.NoError(t, f.db.Model(&domain.QuoteSnapshot{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other, err := f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB-100", TierID: "basic-1yr", JobTotal: 10000})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	list, err := f.svc.ListIssuedQuotes(ctx, "JOB-100")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, other.ID, list[1].ID)
}

func TestIssueQuote_RecordsSalesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := domain.IssueRequest{JobReference: "JOB-200", TierID: "platinum-25yr", JobTotal: 10000}

	for i := 0; i < 3; i++ {
		_, err := f.svc.IssueQuote(ctx, req)
		require.NoError(t, err)
	}

	expected := `
# HELP warranty_sales_quotes_issued_total Warranty quotes issued.
# TYPE warranty_sales_quotes_issued_total counter
warranty_sales_quotes_issued_total{currency="USD",instance_id="warranty-test",tier_id="platinum-25yr"} 1
# HELP warranty_sales_premium_total Warranty price of issued quotes, in major currency units.
# TYPE warranty_sales_premium_total counter
warranty_sales_premium_total{currency="USD",instance_id="warranty-test",tier_id="platinum-25yr"} 2499
`
	require.NoError(t, testutil.GatherAndCompare(f.sales.Registry(), strings.NewReader(expected),
		"warranty_sales_quotes_issued_total", "warranty_sales_premium_total"))

	issued := f.logs.FilterMessage("warranty quote issued").All()
	require.Len(t, issued, 1)
	assert.Equal(t, "JOB-200", issued[0].ContextMap()["job_reference"])
	assert.Equal(t, "platinum-25yr", issued[0].ContextMap()["tier_id"])
}

func TestIssueQuote_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "  ", TierID: "basic-1yr", JobTotal: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidJobReference)

	_, err = f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB", TierID: "basic-1yr", JobTotal: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)

	_, err = f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB", TierID: "nope", JobTotal: 100})
	assert.ErrorIs(t, err, domain.ErrUnknownTier)

	_, err = f.svc.ListIssuedQuotes(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidJobReference)
}

func TestIssueQuote_SubCentJobTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB-CENT", TierID: "platinum-25yr", JobTotal: 0.004})
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)

	var count int64
	require.NoError(t, f.db.Model(&domain.QuoteSnapshot{}).Count(&count).Error)
	assert.Zero(t, count)

	issued, err := f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB-CENT", TierID: "platinum-25yr", JobTotal: 0.01})
	require.NoError(t, err)
	assert.Equal(t, "0.01", issued.JobTotal)
}

func TestIssueQuote_RejectsOutOfRangeTotal(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IssueQuote(context.Background(), domain.IssueRequest{JobReference: "JOB-BIG", TierID: "platinum-25yr", JobTotal: 1e18})
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)

	_, err = f.svc.Quotes(context.Background(), 1e18)
	assert.ErrorIs(t, err, domain.ErrInvalidJobTotal)
}

func TestGetIssuedQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB-7", TierID: "extended-5yr", JobTotal: 5000})
	require.NoError(t, err)

	got, err := f.svc.GetIssuedQuote(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, issued.Checksum, got.Checksum)
	assert.Equal(t, "$5,000.00", got.Display.JobTotal)
	assert.False(t, got.Replayed)

	_, err = f.svc.GetIssuedQuote(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.GetIssuedQuote(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenderIssuedQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.IssueQuote(ctx, domain.IssueRequest{JobReference: "JOB-8", TierID: "platinum-25yr", JobTotal: 10000})
	require.NoError(t, err)

	r, err := f.svc.RenderIssuedQuote(ctx, issued.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub", string(body))

	require.Len(t, f.pdf.sheets, 1)
	sheet := f.pdf.sheets[0]
	assert.Equal(t, issued.ID, sheet.QuoteID)
	assert.Equal(t, "$2,499.00", sheet.Price)
	assert.Equal(t, "$208.25", sheet.MonthlyPayment)
	assert.Equal(t, "June 1, 2025", sheet.IssueDate)
	assert.NotEmpty(t, sheet.Features)

	_, err = f.svc.RenderIssuedQuote(ctx, "0")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestRenderIssuedQuote_NoProvider(t *testing.T) {
	eng, err := engine.New(engine.DefaultCatalog(), engine.DefaultOptions())
	require.NoError(t, err)
	svc := New(Params{Log: zap.NewNop(), Engine: eng, Repo: repository.Provide()})

	_, err = svc.RenderIssuedQuote(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
}

func TestChecksum_Stable(t *testing.T) {
	eng, err := engine.New(engine.DefaultCatalog(), engine.DefaultOptions())
	require.NoError(t, err)
	q, err := eng.GetQuoteForTier(10000, "platinum-25yr")
	require.NoError(t, err)

	assert.Equal(t, checksum("JOB", q), checksum("JOB", q))
	assert.NotEqual(t, checksum("JOB", q), checksum("JOB-2", q))
}
