package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	warrantydomain "github.com/smallbiznis/warranty/internal/warranty/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() warrantydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, q *warrantydomain.QuoteSnapshot) error {
	return db.WithContext(ctx).Create(q).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*warrantydomain.QuoteSnapshot, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByChecksum(ctx context.Context, db *gorm.DB, checksum string) (*warrantydomain.QuoteSnapshot, error) {
	return r.findOne(ctx, db, "checksum = ?", checksum)
}

func (r *repo) ListByJobReference(ctx context.Context, db *gorm.DB, jobReference string) ([]warrantydomain.QuoteSnapshot, error) {
	var quotes []warrantydomain.QuoteSnapshot
	err := db.WithContext(ctx).
		Where("job_reference = ?", jobReference).
		Order("issued_at ASC").
		Order("id ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...interface{}) (*warrantydomain.QuoteSnapshot, error) {
	var quote warrantydomain.QuoteSnapshot
	err := db.WithContext(ctx).
		Where(query, args...).
		Limit(1).
		Find(&quote).Error
	if err != nil {
		return nil, err
	}
	if quote.ID == 0 {
		return nil, nil
	}
	return &quote, nil
}
