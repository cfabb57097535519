package domain

import (
	"time"

	"github.com/google/uuid"
)

// EditHistory is the append-only snapshot log. One row per record
// mutation; PrevData equals the prior row's CurrentData for the same
// record, or nil at version 1. The rollback engine is the only deleter.
type EditHistory struct {
	ID int `gorm:"primaryKey;autoIncrement" json:"id"`

	RecordID int     `gorm:"not null;index;index:idx_edit_history_record_version,unique,priority:1" json:"record_id"`
	Record   *Record `gorm:"foreignKey:RecordID;references:ID;constraint:OnDelete:RESTRICT" json:"record,omitempty"`

	UserEmail string    `gorm:"type:text;not null;index" json:"user_email"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	Version       int     `gorm:"not null;index:idx_edit_history_record_version,unique,priority:2" json:"version"`
	ChangeSummary string  `gorm:"type:text;not null;default:''" json:"change_summary"`
	PrevData      *string `gorm:"type:text" json:"prev_data,omitempty"`
	CurrentData   string  `gorm:"type:text;not null" json:"current_data"`

	Timestamp time.Time `gorm:"not null;default:now();index" json:"timestamp"`
}

func (EditHistory) TableName() string { return "edit_history" }
