package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// QuoteSnapshot is an issued quote, frozen so checkout can honor the price
// even if the catalog changes later. Amounts are stored in minor units.
type QuoteSnapshot struct {
	ID                  snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	JobReference        string       `json:"job_reference" gorm:"type:varchar(128);not null;index:ix_warranty_quotes_job_reference"`
	TierID              string       `json:"tier_id" gorm:"type:varchar(64);not null"`
	TierName            string       `json:"tier_name" gorm:"type:varchar(128);not null"`
	Years               int          `json:"years" gorm:"not null"`
	JobTotalCents       int64        `json:"job_total_cents" gorm:"not null"`
	PriceCents          int64        `json:"price_cents" gorm:"not null"`
	MonthlyPaymentCents int64        `json:"monthly_payment_cents" gorm:"not null"`
	CommissionCents     int64        `json:"commission_cents" gorm:"not null"`
	FinancingTermMonths int          `json:"financing_term_months" gorm:"not null"`
	Currency            string       `json:"currency" gorm:"type:varchar(3);not null"`
	Checksum            string       `json:"checksum" gorm:"type:varchar(64);not null;uniqueIndex:ux_warranty_quotes_checksum"`
	IssuedAt            time.Time    `json:"issued_at" gorm:"not null"`
}

// TableName sets the database table name.
func (QuoteSnapshot) TableName() string { return "warranty_quotes" }
