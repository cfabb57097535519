package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

// BatchSummary is one pending upload batch as listed to its owner.
type BatchSummary struct {
	BatchID   uuid.UUID `json:"batch_id"`
	SourceID  int       `json:"source_id"`
	Filename  string    `json:"filename"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

type QueueRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.MatchupQueueRow) ([]*types.MatchupQueueRow, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.MatchupQueueRow, error)
	GetByBatchID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*types.MatchupQueueRow, error)
	GetByBatchAndStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, statuses []string) ([]*types.MatchupQueueRow, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id int, updates map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id int) error
	DeleteByBatchID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error)
	DeleteByBatchAndStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) (int64, error)
	ListBatches(ctx context.Context, tx *gorm.DB, userEmail string) ([]*BatchSummary, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{db: db, log: baseLog.With("repo", "QueueRepo")}
}

func (r *queueRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.MatchupQueueRow) ([]*types.MatchupQueueRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.MatchupQueueRow{}, nil
	}
	if err := transaction.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *queueRepo) GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.MatchupQueueRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.MatchupQueueRow
	if err := transaction.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *queueRepo) GetByBatchID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) ([]*types.MatchupQueueRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.MatchupQueueRow
	if err := transaction.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *queueRepo) GetByBatchAndStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, statuses []string) ([]*types.MatchupQueueRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.MatchupQueueRow
	if len(statuses) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("batch_id = ? AND status IN ?", batchID, statuses).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *queueRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id int, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Model(&types.MatchupQueueRow{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *queueRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Where("id = ?", id).Delete(&types.MatchupQueueRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *queueRepo) DeleteByBatchID(ctx context.Context, tx *gorm.DB, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&types.MatchupQueueRow{})
	return res.RowsAffected, res.Error
}

func (r *queueRepo) DeleteByBatchAndStatus(ctx context.Context, tx *gorm.DB, batchID uuid.UUID, status string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("batch_id = ? AND status = ?", batchID, status).
		Delete(&types.MatchupQueueRow{})
	return res.RowsAffected, res.Error
}

// ListBatches groups the caller's queue rows by (batch_id, source_id,
// filename), newest first. Fully applied or discarded batches have no
// rows left and disappear naturally.
func (r *queueRepo) ListBatches(ctx context.Context, tx *gorm.DB, userEmail string) ([]*BatchSummary, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*BatchSummary
	if err := transaction.WithContext(ctx).Model(&types.MatchupQueueRow{}).
		Select("batch_id, source_id, filename, COUNT(*) AS row_count, MIN(created_at) AS created_at").
		Where("user_email = ?", userEmail).
		Group("batch_id, source_id, filename").
		Order("created_at DESC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
