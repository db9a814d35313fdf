package domain

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warranty/internal/warranty/engine"
)

type Service interface {
	ListTiers(ctx context.Context) ([]TierResponse, error)
	Quotes(ctx context.Context, jobTotal float64) ([]QuoteResponse, error)
	Recommend(ctx context.Context, req RecommendRequest) (*RecommendationResponse, error)
	QuoteForTier(ctx context.Context, jobTotal float64, tierID string) (*QuoteResponse, error)
	FormatPrice(ctx context.Context, amount float64) string

	IssueQuote(ctx context.Context, req IssueRequest) (*IssuedQuoteResponse, error)
	GetIssuedQuote(ctx context.Context, id string) (*IssuedQuoteResponse, error)
	ListIssuedQuotes(ctx context.Context, jobReference string) ([]IssuedQuoteResponse, error)
	RenderIssuedQuote(ctx context.Context, id string) (io.Reader, error)
}

type RecommendRequest struct {
	JobTotal float64
	// Policy overrides the configured policy when set.
	Policy string
}

type IssueRequest struct {
	JobReference string  `json:"job_reference"`
	TierID       string  `json:"tier_id"`
	JobTotal     float64 `json:"job_total"`
}

type TierResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Years       int      `json:"years"`
	BaseFee     string   `json:"base_fee"`
	Rate        string   `json:"rate"`
	Features    []string `json:"features"`
	Recommended bool     `json:"recommended"`
}

// Display holds amounts formatted for customers, e.g. "$1,234.50".
type Display struct {
	JobTotal       string `json:"job_total"`
	Price          string `json:"price"`
	MonthlyPayment string `json:"monthly_payment"`
	Commission     string `json:"commission"`
}

type QuoteResponse struct {
	TierID              string   `json:"tier_id"`
	TierName            string   `json:"tier_name"`
	Years               int      `json:"years"`
	Features            []string `json:"features"`
	Recommended         bool     `json:"recommended"`
	JobTotal            string   `json:"job_total"`
	Price               string   `json:"price"`
	PriceCents          int64    `json:"price_cents"`
	MonthlyPayment      string   `json:"monthly_payment"`
	MonthlyPaymentCents int64    `json:"monthly_payment_cents"`
	Commission          string   `json:"commission"`
	CommissionCents     int64    `json:"commission_cents"`
	FinancingTermMonths int      `json:"financing_term_months"`
	Display             Display  `json:"display"`
}

type RecommendationResponse struct {
	Policy         string          `json:"policy"`
	Reason         string          `json:"reason"`
	Recommended    QuoteResponse   `json:"recommended"`
	CatalogDefault QuoteResponse   `json:"catalog_default"`
	Quotes         []QuoteResponse `json:"quotes"`
}

type IssuedQuoteResponse struct {
	ID                  string    `json:"id"`
	JobReference        string    `json:"job_reference"`
	TierID              string    `json:"tier_id"`
	TierName            string    `json:"tier_name"`
	Years               int       `json:"years"`
	JobTotal            string    `json:"job_total"`
	Price               string    `json:"price"`
	MonthlyPayment      string    `json:"monthly_payment"`
	Commission          string    `json:"commission"`
	FinancingTermMonths int       `json:"financing_term_months"`
	Currency            string    `json:"currency"`
	Checksum            string    `json:"checksum"`
	IssuedAt            time.Time `json:"issued_at"`
	Display             Display   `json:"display"`
	// Replayed is true when an identical quote had already been issued.
	Replayed bool `json:"replayed"`
}

var (
	ErrInvalidJobTotal = engine.ErrInvalidJobTotal
	ErrUnknownTier     = engine.ErrUnknownTier
	ErrInvalidCatalog  = engine.ErrInvalidCatalog
	ErrInvalidOptions  = engine.ErrInvalidOptions

	ErrInvalidPolicy       = errors.New("invalid_policy")
	ErrInvalidJobReference = errors.New("invalid_job_reference")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrRenderUnavailable   = errors.New("render_unavailable")
)

// MaxJobReferenceLen bounds job references, which double as lock keys.
const MaxJobReferenceLen = 128

// ValidateJobReference trims ref and checks it is 1 to MaxJobReferenceLen bytes.
func ValidateJobReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(ref) > MaxJobReferenceLen {
		return "", ErrInvalidJobReference
	}
	return ref, nil
}

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
