package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

type SourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.Source, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []int) ([]*types.Source, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Source, error)
	Delete(ctx context.Context, tx *gorm.DB, id int) error
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) Create(ctx context.Context, tx *gorm.DB, source *types.Source) (*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func (r *sourceRepo) GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var src types.Source
	if err := transaction.WithContext(ctx).Where("id = ?", id).Take(&src).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

func (r *sourceRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int) ([]*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Source
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sourceRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Source, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Source
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Delete refuses while records reference the source; the FK is RESTRICT
// but the precheck gives callers a typed error instead of a raw
// constraint violation.
func (r *sourceRepo) Delete(ctx context.Context, tx *gorm.DB, id int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("source_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return pkgerrors.ErrSourceInUse
	}
	res := transaction.WithContext(ctx).Where("id = ?", id).Delete(&types.Source{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}
