package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

type UserRepo interface {
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
	// FindOrCreateByEmail resolves the editor row for an IdP identity,
	// creating it on first sight.
	FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, email, name string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var u types.User
	if err := transaction.WithContext(ctx).Where("email = ?", email).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, email, name string) (*types.User, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var u types.User
	err := transaction.WithContext(ctx).Where("email = ?", email).Take(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u = types.User{ID: uuid.New(), Email: email, Name: name}
	if err := transaction.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

type ActivityLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, userEmail, action string, details datatypes.JSON) error
	// HasAction reports whether an action row whose details contain the
	// given fragment exists, e.g. a batch_rollback for a session id.
	HasAction(ctx context.Context, tx *gorm.DB, action string, detailsFragment string) (bool, error)
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{db: db, log: baseLog.With("repo", "ActivityLogRepo")}
}

func (r *activityLogRepo) Create(ctx context.Context, tx *gorm.DB, userEmail, action string, details datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if details == nil {
		details = datatypes.JSON([]byte(`{}`))
	}
	return transaction.WithContext(ctx).Create(&types.UserActivityLog{
		ID:        uuid.New(),
		UserEmail: userEmail,
		Action:    action,
		Details:   details,
	}).Error
}

func (r *activityLogRepo) HasAction(ctx context.Context, tx *gorm.DB, action string, detailsFragment string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).Model(&types.UserActivityLog{}).
		Where("action = ? AND details::text LIKE ?", action, "%"+detailsFragment+"%").
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
