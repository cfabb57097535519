package repos

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	types "github.com/sneadict/backend/internal/domain"
	pkgerrors "github.com/sneadict/backend/internal/pkg/errors"
	"github.com/sneadict/backend/internal/pkg/logger"
)

type LanguageRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.Language, error)
	// FindOrCreateByName matches by name first, then by code; a miss on
	// both creates a language whose code derives from the name.
	FindOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*types.Language, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Language, error)
}

type languageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLanguageRepo(db *gorm.DB, baseLog *logger.Logger) LanguageRepo {
	return &languageRepo{db: db, log: baseLog.With("repo", "LanguageRepo")}
}

func (r *languageRepo) GetByID(ctx context.Context, tx *gorm.DB, id int) (*types.Language, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var lang types.Language
	if err := transaction.WithContext(ctx).Where("id = ?", id).Take(&lang).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &lang, nil
}

func (r *languageRepo) FindOrCreateByName(ctx context.Context, tx *gorm.DB, name string) (*types.Language, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.ErrInvalidArgument
	}
	var lang types.Language
	err := transaction.WithContext(ctx).Where("name = ?", name).Take(&lang).Error
	if err == nil {
		return &lang, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	err = transaction.WithContext(ctx).Where("code = ?", name).Take(&lang).Error
	if err == nil {
		return &lang, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	lang = types.Language{
		Code: strings.Join(strings.Fields(strings.ToLower(name)), "-"),
		Name: name,
	}
	if err := transaction.WithContext(ctx).Create(&lang).Error; err != nil {
		return nil, err
	}
	return &lang, nil
}

func (r *languageRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Language, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Language
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type RecordLanguageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, links []*types.RecordLanguage) ([]*types.RecordLanguage, error)
	GetByRecordID(ctx context.Context, tx *gorm.DB, recordID int) ([]*types.RecordLanguage, error)
	DeleteByRecordID(ctx context.Context, tx *gorm.DB, recordID int) error
}

type recordLanguageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordLanguageRepo(db *gorm.DB, baseLog *logger.Logger) RecordLanguageRepo {
	return &recordLanguageRepo{db: db, log: baseLog.With("repo", "RecordLanguageRepo")}
}

func (r *recordLanguageRepo) Create(ctx context.Context, tx *gorm.DB, links []*types.RecordLanguage) ([]*types.RecordLanguage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(links) == 0 {
		return []*types.RecordLanguage{}, nil
	}
	if err := transaction.WithContext(ctx).Create(links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *recordLanguageRepo) GetByRecordID(ctx context.Context, tx *gorm.DB, recordID int) ([]*types.RecordLanguage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RecordLanguage
	if err := transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("is_primary DESC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *recordLanguageRepo) DeleteByRecordID(ctx context.Context, tx *gorm.DB, recordID int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("record_id = ?", recordID).
		Delete(&types.RecordLanguage{}).Error
}
