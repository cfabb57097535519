package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	"github.com/sneadict/backend/internal/pkg/logger"
)

type HistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.EditHistory) (*types.EditHistory, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.EditHistory, error)
	GetByRecordID(ctx context.Context, tx *gorm.DB, recordID int) ([]*types.EditHistory, error)
	DeleteBySessionAndRecord(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, recordID int) error
	DeleteByRecordID(ctx context.Context, tx *gorm.DB, recordID int) error
	ListSessionIDs(ctx context.Context, tx *gorm.DB, userEmail string, limit int) ([]uuid.UUID, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	return &historyRepo{db: db, log: baseLog.With("repo", "HistoryRepo")}
}

func (r *historyRepo) Create(ctx context.Context, tx *gorm.DB, row *types.EditHistory) (*types.EditHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *historyRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*types.EditHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EditHistory
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("record_id ASC, version ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *historyRepo) GetByRecordID(ctx context.Context, tx *gorm.DB, recordID int) ([]*types.EditHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.EditHistory
	if err := transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("version ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *historyRepo) DeleteBySessionAndRecord(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, recordID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("session_id = ? AND record_id = ?", sessionID, recordID).
		Delete(&types.EditHistory{}).Error
}

func (r *historyRepo) DeleteByRecordID(ctx context.Context, tx *gorm.DB, recordID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Delete(&types.EditHistory{}).Error
}

func (r *historyRepo) ListSessionIDs(ctx context.Context, tx *gorm.DB, userEmail string, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var ids []uuid.UUID
	q := transaction.WithContext(ctx).Model(&types.EditHistory{}).
		Select("session_id").
		Group("session_id").
		Order("MAX(timestamp) DESC").
		Limit(limit)
	if userEmail != "" {
		q = q.Where("user_email = ?", userEmail)
	}
	if err := q.Pluck("session_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *historyRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).Model(&types.EditHistory{}).Count(&n).Error
	return n, err
}
