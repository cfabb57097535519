package repos

import (
	"context"

	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// SearchEntryRepo writes the derived index. Only the search service may
// hold one; everything else reads through Search.
type SearchEntryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entries []*types.SearchEntry) ([]*types.SearchEntry, error)
	DeleteByRecordIDs(ctx context.Context, tx *gorm.DB, recordIDs []int) error
	GetByRecordID(ctx context.Context, tx *gorm.DB, recordID int) ([]*types.SearchEntry, error)
	Search(ctx context.Context, tx *gorm.DB, term string, limit int) ([]*types.SearchEntry, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type searchEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSearchEntryRepo(db *gorm.DB, baseLog *logger.Logger) SearchEntryRepo {
	return &searchEntryRepo{db: db, log: baseLog.With("repo", "SearchEntryRepo")}
}

func (r *searchEntryRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.SearchEntry) ([]*types.SearchEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.SearchEntry{}, nil
	}
	if err := transaction.WithContext(ctx).CreateInBatches(entries, 500).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *searchEntryRepo) DeleteByRecordIDs(ctx context.Context, tx *gorm.DB, recordIDs []int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(recordIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("record_id IN ?", recordIDs).
		Delete(&types.SearchEntry{}).Error
}

func (r *searchEntryRepo) GetByRecordID(ctx context.Context, tx *gorm.DB, recordID int) ([]*types.SearchEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SearchEntry
	if err := transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *searchEntryRepo) Search(ctx context.Context, tx *gorm.DB, term string, limit int) ([]*types.SearchEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var results []*types.SearchEntry
	if err := transaction.WithContext(ctx).
		Where("lower(term) = lower(?)", term).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *searchEntryRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).Model(&types.SearchEntry{}).Count(&n).Error
	return n, err
}
