package domain

import (
	"time"

	"github.com/google/uuid"
)

// Matchup queue row statuses. Rows move through a small state machine
// until the apply engine deletes them.
const (
	QueueStatusPending       = "pending"
	QueueStatusMatched       = "matched"
	QueueStatusCreateNew     = "create_new"
	QueueStatusCreateHomonym = "create_homonym"
	QueueStatusIgnored       = "ignored"
	QueueStatusDiscard       = "discard"
)

// Match types written by the suggestion engine.
const (
	MatchTypeExact    = "exact"
	MatchTypeBaseForm = "base_form"
)

// MatchupQueueRow is one staged upload entry. Rows are scoped to the
// (user_email, batch_id) that staged them and never outlive their apply.
type MatchupQueueRow struct {
	ID int `gorm:"primaryKey;autoIncrement" json:"id"`

	BatchID   uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	UserEmail string    `gorm:"type:text;not null;index" json:"user_email"`

	SourceID int     `gorm:"not null;index" json:"source_id"`
	Source   *Source `gorm:"foreignKey:SourceID;references:ID;constraint:OnDelete:RESTRICT" json:"source,omitempty"`

	Filename string `gorm:"type:text;not null;default:''" json:"filename"`

	Lx      string `gorm:"type:text;not null;index" json:"lx"`
	MDFData string `gorm:"column:mdf_data;type:text;not null" json:"mdf_data"`

	Status string `gorm:"type:text;not null;default:'pending';index" json:"status"`

	SuggestedRecordID *int    `gorm:"index" json:"suggested_record_id,omitempty"`
	SuggestedRecord   *Record `gorm:"foreignKey:SuggestedRecordID;references:ID" json:"suggested_record,omitempty"`

	MatchType *string `gorm:"type:text" json:"match_type,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (MatchupQueueRow) TableName() string { return "matchup_queue" }
