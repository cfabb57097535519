package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

type RecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.Record) ([]*types.Record, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.Record, error)
	GetLiveBySourceID(ctx context.Context, tx *gorm.DB, sourceID int) ([]*types.Record, error)
	GetLiveByOtherSources(ctx context.Context, tx *gorm.DB, excludeSourceID int) ([]*types.Record, error)
	ListBySource(ctx context.Context, tx *gorm.DB, sourceID int, status string, offset, limit int) ([]*types.Record, int64, error)
	ListLiveIDs(ctx context.Context, tx *gorm.DB) ([]int, error)
	// UpdateWithVersion performs the optimistic-lock write: updates apply
	// only when current_version still equals expectedVersion, and the new
	// version is expectedVersion+1. ErrVersionConflict on a stale token.
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, id int, expectedVersion int, updates map[string]interface{}) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id int, updates map[string]interface{}) error
	MaxHm(ctx context.Context, tx *gorm.DB, sourceID int, lx string) (int, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, id int, userEmail string) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []int) error
	CountBySourceID(ctx context.Context, tx *gorm.DB, sourceID int) (int64, error)
	CountBySourceAndStatus(ctx context.Context, tx *gorm.DB, sourceID int, status string) (int64, error)
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{db: db, log: baseLog.With("repo", "RecordRepo")}
}

func (r *recordRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.Record) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(records) == 0 {
		return []*types.Record{}, nil
	}
	if err := transaction.WithContext(ctx).Create(records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *recordRepo) GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rec types.Record
	if err := transaction.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *recordRepo) GetLiveBySourceID(ctx context.Context, tx *gorm.DB, sourceID int) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Record
	if err := transaction.WithContext(ctx).
		Where("source_id = ? AND is_deleted = false", sourceID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) GetLiveByOtherSources(ctx context.Context, tx *gorm.DB, excludeSourceID int) ([]*types.Record, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Record
	if err := transaction.WithContext(ctx).
		Where("source_id <> ? AND is_deleted = false", excludeSourceID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordRepo) ListBySource(ctx context.Context, tx *gorm.DB, sourceID int, status string, offset, limit int) ([]*types.Record, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("source_id = ? AND is_deleted = false", sourceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Record
	if limit <= 0 {
		limit = 100
	}
	if err := q.Order("lx ASC, hm ASC").Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *recordRepo) ListLiveIDs(ctx context.Context, tx *gorm.DB) ([]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []int
	if err := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("is_deleted = false").
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *recordRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, id int, expectedVersion int, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["current_version"] = expectedVersion + 1
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("id = ? AND current_version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrVersionConflict
	}
	return nil
}

func (r *recordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id int, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(ctx).Model(&types.Record{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *recordRepo) MaxHm(ctx context.Context, tx *gorm.DB, sourceID int, lx string) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var max int
	row := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("source_id = ? AND lx = ? AND is_deleted = false", sourceID, lx).
		Select("COALESCE(MAX(hm), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

func (r *recordRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id int, userEmail string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("id = ? AND is_deleted = false", id).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"updated_by": userEmail,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *recordRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Where("id IN ?", ids).Delete(&types.Record{}).Error
}

func (r *recordRepo) CountBySourceID(ctx context.Context, tx *gorm.DB, sourceID int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("source_id = ? AND is_deleted = false", sourceID).
		Count(&n).Error
	return n, err
}

func (r *recordRepo) CountBySourceAndStatus(ctx context.Context, tx *gorm.DB, sourceID int, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).Model(&types.Record{}).
		Where("source_id = ? AND status = ? AND is_deleted = false", sourceID, status).
		Count(&n).Error
	return n, err
}
