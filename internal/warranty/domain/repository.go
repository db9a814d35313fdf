package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists issued quotes. Finders return nil, nil when no row matches.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, quote *QuoteSnapshot) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*QuoteSnapshot, error)
	FindByChecksum(ctx context.Context, db *gorm.DB, checksum string) (*QuoteSnapshot, error)
	ListByJobReference(ctx context.Context, db *gorm.DB, jobReference string) ([]QuoteSnapshot, error)
}
