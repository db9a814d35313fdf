package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/warranty/internal/clock"
	"github.com/smallbiznis/warranty/internal/config"
	obscontext "github.com/smallbiznis/warranty/internal/observability/context"
	obslogger "github.com/smallbiznis/warranty/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/warranty/internal/observability/metrics"
	"github.com/smallbiznis/warranty/internal/providers/pdf"
	"github.com/smallbiznis/warranty/internal/salesmetrics"
	warrantydomain "github.com/smallbiznis/warranty/internal/warranty/domain"
	"github.com/smallbiznis/warranty/internal/warranty/engine"
	"github.com/smallbiznis/warranty/pkg/db"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "warranty/service"

// Snapshots store the job total in cents, so it must be at least one cent.
var minIssuedJobTotal = decimal.New(1, -2)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Engine  *engine.Engine
	Repo    warrantydomain.Repository
	Cfg     config.Config
	PDF     pdf.Provider        `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
	Sales   *salesmetrics.Recorder `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	engine   *engine.Engine
	repo     warrantydomain.Repository
	currency string
	pdf      pdf.Provider
	metrics  *obsmetrics.Metrics
	sales    *salesmetrics.Recorder
	tracer   trace.Tracer
}

func New(p Params) warrantydomain.Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Cfg.Warranty.Currency))
	if currency == "" {
		currency = "USD"
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("warranty.service"),
		genID:    p.GenID,
		clock:    clk,
		engine:   p.Engine,
		repo:     p.Repo,
		currency: currency,
		pdf:      p.PDF,
		metrics:  p.Metrics,
		sales:    p.Sales,
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *Service) ListTiers(ctx context.Context) ([]warrantydomain.TierResponse, error) {
	tiers := s.engine.Catalog()
	resp := make([]warrantydomain.TierResponse, 0, len(tiers))
	for _, t := range tiers {
		resp = append(resp, warrantydomain.TierResponse{
			ID:          t.ID,
			Name:        t.Name,
			Years:       t.Years,
			BaseFee:     t.BaseFee.StringFixed(2),
			Rate:        t.Rate.String(),
			Features:    featuresOf(t),
			Recommended: t.Recommended,
		})
	}
	return resp, nil
}

func (s *Service) Quotes(ctx context.Context, jobTotal float64) ([]warrantydomain.QuoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.quotes")
	defer span.End()

	quotes, err := s.engine.GetAllQuotes(jobTotal)
	if err != nil {
		s.rejected(ctx, span, err)
		return nil, err
	}
	s.metrics.RecordQuotes(ctx, "quotes", len(quotes))

	resp := make([]warrantydomain.QuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		resp = append(resp, s.toQuoteResponse(q))
	}

	s.log.Debug("quoted all tiers",
		zap.String("job_total", quotes[0].JobTotal.String()),
		zap.Int("tiers", len(quotes)),
	)
	return resp, nil
}

func (s *Service) Recommend(ctx context.Context, req warrantydomain.RecommendRequest) (*warrantydomain.RecommendationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.recommend")
	defer span.End()

	eng := s.engine
	if raw := strings.TrimSpace(req.Policy); raw != "" {
		policy, err := engine.ParsePolicy(raw)
		if err != nil {
			err = fmt.Errorf("%w: %q", warrantydomain.ErrInvalidPolicy, raw)
			s.rejected(ctx, span, err)
			return nil, err
		}
		if eng, err = s.engine.WithPolicy(policy); err != nil {
			return nil, err
		}
	}

	rec, err := eng.GetRecommendation(req.JobTotal)
	if err != nil {
		s.rejected(ctx, span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("warranty.policy", string(rec.Policy)),
		attribute.String("warranty.tier_id", rec.Recommended.Tier.ID),
	)
	s.metrics.RecordQuotes(ctx, "recommendation", len(rec.AllQuotes))
	s.metrics.RecordRecommendation(ctx, string(rec.Policy), rec.Recommended.Tier.ID, rec.Recommended.Price.InexactFloat64())

	quotes := make([]warrantydomain.QuoteResponse, 0, len(rec.AllQuotes))
	for _, q := range rec.AllQuotes {
		quotes = append(quotes, s.toQuoteResponse(q))
	}

	s.log.Debug("recommended tier",
		zap.String("policy", string(rec.Policy)),
		zap.String("tier_id", rec.Recommended.Tier.ID),
		zap.String("job_total", rec.Recommended.JobTotal.String()),
	)

	return &warrantydomain.RecommendationResponse{
		Policy:         string(rec.Policy),
		Reason:         rec.Reason,
		Recommended:    s.toQuoteResponse(rec.Recommended),
		CatalogDefault: s.toQuoteResponse(rec.CatalogDefault),
		Quotes:         quotes,
	}, nil
}

func (s *Service) QuoteForTier(ctx context.Context, jobTotal float64, tierID string) (*warrantydomain.QuoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.quote_for_tier",
		trace.WithAttributes(attribute.String("warranty.tier_id", strings.TrimSpace(tierID))),
	)
	defer span.End()

	q, err := s.engine.GetQuoteForTier(jobTotal, tierID)
	if err != nil {
		s.rejected(ctx, span, err)
		return nil, err
	}
	s.metrics.RecordQuotes(ctx, "tier", 1)

	resp := s.toQuoteResponse(q)
	return &resp, nil
}

func (s *Service) FormatPrice(ctx context.Context, amount float64) string {
	return s.engine.FormatPrice(amount)
}

func (s *Service) IssueQuote(ctx context.Context, req warrantydomain.IssueRequest) (*warrantydomain.IssuedQuoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "warranty.issue_quote")
	defer span.End()

	ref, err := warrantydomain.ValidateJobReference(req.JobReference)
	if err != nil {
		s.rejected(ctx, span, err)
		return nil, err
	}
	ctx = obscontext.WithJobReference(ctx, ref)

	q, err := s.engine.GetQuoteForTier(req.JobTotal, req.TierID)
	if err != nil {
		s.rejected(ctx, span, err)
		return nil, err
	}
	if q.JobTotal.LessThan(minIssuedJobTotal) {
		err = fmt.Errorf("%w: issued job total must be at least %s", warrantydomain.ErrInvalidJobTotal, minIssuedJobTotal.StringFixed(2))
		s.rejected(ctx, span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("warranty.tier_id", q.Tier.ID))

	sum := checksum(ref, q)
	existing, err := s.repo.FindByChecksum(ctx, s.db, sum)
	if err != nil {
		return nil, s.failed(ctx, span, "find quote by checksum", err)
	}
	if existing != nil {
		s.metrics.RecordQuoteIssued(ctx, existing.TierID, obsmetrics.OutcomeExisting)
		resp := s.toIssuedResponse(existing, true)
		return &resp, nil
	}

	snap := &warrantydomain.QuoteSnapshot{
		ID:                  s.genID.Generate(),
		JobReference:        ref,
		TierID:              q.Tier.ID,
		TierName:            q.Tier.Name,
		Years:               q.Tier.Years,
		JobTotalCents:       engine.Cents(q.JobTotal),
		PriceCents:          engine.Cents(q.Price),
		MonthlyPaymentCents: engine.Cents(q.MonthlyPayment),
		CommissionCents:     engine.Cents(q.Commission),
		FinancingTermMonths: q.FinancingTermMonths,
		Currency:            s.currency,
		Checksum:            sum,
		IssuedAt:            s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, snap); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, s.failed(ctx, span, "insert quote", err)
		}
		// Lost a race with an identical request.
		existing, findErr := s.repo.FindByChecksum(ctx, s.db, sum)
		if findErr != nil || existing == nil {
			return nil, s.failed(ctx, span, "insert quote", err)
		}
		s.metrics.RecordQuoteIssued(ctx, existing.TierID, obsmetrics.OutcomeExisting)
		resp := s.toIssuedResponse(existing, true)
		return &resp, nil
	}

	s.metrics.RecordQuoteIssued(ctx, snap.TierID, obsmetrics.OutcomeCreated)
	s.sales.RecordIssued(snap.TierID, snap.Currency, snap.PriceCents, snap.CommissionCents, snap.IssuedAt)
	obslogger.WithContext(ctx, s.log).Info("warranty quote issued",
		zap.String("quote_id", snap.ID.String()),
		zap.String("tier_id", snap.TierID),
		zap.Int64("price_cents", snap.PriceCents),
	)

	resp := s.toIssuedResponse(snap, false)
	return &resp, nil
}

func (s *Service) GetIssuedQuote(ctx context.Context, id string) (*warrantydomain.IssuedQuoteResponse, error) {
	snap, err := s.loadIssued(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toIssuedResponse(snap, false)
	return &resp, nil
}

func (s *Service) ListIssuedQuotes(ctx context.Context, jobReference string) ([]warrantydomain.IssuedQuoteResponse, error) {
	ref, err := warrantydomain.ValidateJobReference(jobReference)
	if err != nil {
		return nil, err
	}

	ctx = obscontext.WithJobReference(ctx, ref)
	items, err := s.repo.ListByJobReference(ctx, s.db, ref)
	if err != nil {
		obslogger.WithContext(ctx, s.log).Error("list issued quotes failed", zap.Error(err))
		return nil, fmt.Errorf("list issued quotes: %w", err)
	}

	resp := make([]warrantydomain.IssuedQuoteResponse, 0, len(items))
	for i := range items {
		resp = append(resp, s.toIssuedResponse(&items[i], false))
	}
	return resp, nil
}

func (s *Service) RenderIssuedQuote(ctx context.Context, id string) (io.Reader, error) {
	if s.pdf == nil {
		return nil, warrantydomain.ErrRenderUnavailable
	}

	snap, err := s.loadIssued(ctx, id)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "warranty.render_quote")
	defer span.End()

	sheet := pdf.QuoteSheet{
		QuoteID:             snap.ID.String(),
		JobReference:        snap.JobReference,
		IssueDate:           snap.IssuedAt.UTC().Format("January 2, 2006"),
		TierName:            snap.TierName,
		Years:               snap.Years,
		JobTotal:            s.display(snap.JobTotalCents),
		Price:               s.display(snap.PriceCents),
		MonthlyPayment:      s.display(snap.MonthlyPaymentCents),
		FinancingTermMonths: snap.FinancingTermMonths,
		Currency:            snap.Currency,
		Checksum:            snap.Checksum,
	}
	for _, t := range s.engine.Catalog() {
		if t.ID == snap.TierID {
			sheet.Features = featuresOf(t)
			break
		}
	}

	r, err := s.pdf.GenerateQuote(ctx, sheet)
	if err != nil {
		return nil, s.failed(ctx, span, "render quote", err)
	}
	if r == nil {
		return nil, warrantydomain.ErrRenderUnavailable
	}
	return r, nil
}

func (s *Service) loadIssued(ctx context.Context, id string) (*warrantydomain.QuoteSnapshot, error) {
	quoteID, err := warrantydomain.ParseID(strings.TrimSpace(id))
	if err != nil || quoteID <= 0 {
		return nil, warrantydomain.ErrInvalidID
	}

	snap, err := s.repo.FindByID(ctx, s.db, quoteID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, warrantydomain.ErrNotFound
	}
	return snap, nil
}

func (s *Service) toQuoteResponse(q engine.Quote) warrantydomain.QuoteResponse {
	symbol := s.engine.Options().CurrencySymbol
	return warrantydomain.QuoteResponse{
		TierID:              q.Tier.ID,
		TierName:            q.Tier.Name,
		Years:               q.Tier.Years,
		Features:            featuresOf(q.Tier),
		Recommended:         q.Tier.Recommended,
		JobTotal:            q.JobTotal.StringFixed(2),
		Price:               q.Price.StringFixed(2),
		PriceCents:          engine.Cents(q.Price),
		MonthlyPayment:      q.MonthlyPayment.StringFixed(2),
		MonthlyPaymentCents: engine.Cents(q.MonthlyPayment),
		Commission:          q.Commission.StringFixed(2),
		CommissionCents:     engine.Cents(q.Commission),
		FinancingTermMonths: q.FinancingTermMonths,
		Display: warrantydomain.Display{
			JobTotal:       engine.FormatAmount(symbol, q.JobTotal),
			Price:          engine.FormatAmount(symbol, q.Price),
			MonthlyPayment: engine.FormatAmount(symbol, q.MonthlyPayment),
			Commission:     engine.FormatAmount(symbol, q.Commission),
		},
	}
}

func (s *Service) toIssuedResponse(q *warrantydomain.QuoteSnapshot, replayed bool) warrantydomain.IssuedQuoteResponse {
	return warrantydomain.IssuedQuoteResponse{
		ID:                  q.ID.String(),
		JobReference:        q.JobReference,
		TierID:              q.TierID,
		TierName:            q.TierName,
		Years:               q.Years,
		JobTotal:            fromCents(q.JobTotalCents).StringFixed(2),
		Price:               fromCents(q.PriceCents).StringFixed(2),
		MonthlyPayment:      fromCents(q.MonthlyPaymentCents).StringFixed(2),
		Commission:          fromCents(q.CommissionCents).StringFixed(2),
		FinancingTermMonths: q.FinancingTermMonths,
		Currency:            q.Currency,
		Checksum:            q.Checksum,
		IssuedAt:            q.IssuedAt.UTC(),
		Display: warrantydomain.Display{
			JobTotal:       s.display(q.JobTotalCents),
			Price:          s.display(q.PriceCents),
			MonthlyPayment: s.display(q.MonthlyPaymentCents),
			Commission:     s.display(q.CommissionCents),
		},
		Replayed: replayed,
	}
}

func (s *Service) display(cents int64) string {
	return engine.FormatAmount(s.engine.Options().CurrencySymbol, fromCents(cents))
}

func (s *Service) rejected(ctx context.Context, span trace.Span, err error) {
	span.SetStatus(codes.Error, reasonOf(err))
	s.metrics.RecordInvalidRequest(ctx, reasonOf(err))
}

func (s *Service) failed(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	obslogger.WithContext(ctx, s.log).Error("warranty "+op+" failed", zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func reasonOf(err error) string {
	for _, sentinel := range []error{
		warrantydomain.ErrInvalidJobTotal,
		warrantydomain.ErrUnknownTier,
		warrantydomain.ErrInvalidPolicy,
		warrantydomain.ErrInvalidJobReference,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "other"
}

// checksum identifies an issued quote by the values a customer agreed to.
func checksum(ref string, q engine.Quote) string {
	parts := []string{
		ref,
		q.Tier.ID,
		q.JobTotal.String(),
		q.Price.StringFixed(2),
		q.MonthlyPayment.StringFixed(2),
		q.Commission.StringFixed(2),
		fmt.Sprintf("%d", q.FinancingTermMonths),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func featuresOf(t engine.Tier) []string {
	if len(t.Features) == 0 {
		return []string{}
	}
	return append([]string(nil), t.Features...)
}
