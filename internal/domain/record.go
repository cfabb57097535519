package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Record statuses.
const (
	RecordStatusDraft    = "draft"
	RecordStatusEdited   = "edited"
	RecordStatusApproved = "approved"
)

// Record is an authoritative dictionary entry. MDFData is the source of
// truth; Lx, Hm, Ps and Ge are projections rewritten on every mutation.
// The MDF text always ends with a "\nt Record: <id>" line matching ID.
type Record struct {
	ID int `gorm:"primaryKey;autoIncrement" json:"id"`

	Lx string `gorm:"type:text;not null;index:idx_records_lx_hm_source,unique,priority:1,where:is_deleted = false;index" json:"lx"`
	Hm int    `gorm:"not null;default:1;index:idx_records_lx_hm_source,unique,priority:2,where:is_deleted = false" json:"hm"`
	Ps string `gorm:"type:text;not null;default:''" json:"ps"`
	Ge string `gorm:"type:text;not null;default:''" json:"ge"`

	SourceID   int     `gorm:"not null;index:idx_records_lx_hm_source,unique,priority:3,where:is_deleted = false;index" json:"source_id"`
	Source     *Source `gorm:"foreignKey:SourceID;references:ID;constraint:OnDelete:RESTRICT" json:"source,omitempty"`
	SourcePage string  `gorm:"type:text;not null;default:''" json:"source_page"`

	Status  string `gorm:"type:text;not null;default:'draft';index" json:"status"`
	MDFData string `gorm:"column:mdf_data;type:text;not null" json:"mdf_data"`

	Embedding *pgvector.Vector `gorm:"type:vector(1536)" json:"embedding,omitempty"`

	// CurrentVersion is the optimistic-lock token: every mutation reads it
	// and writes value+1 conditionally; a mismatch aborts the transaction.
	CurrentVersion int `gorm:"not null;default:1" json:"current_version"`

	IsDeleted bool `gorm:"not null;default:false;index" json:"is_deleted"`

	UpdatedBy  string `gorm:"type:text;not null;default:''" json:"updated_by"`
	ReviewedBy string `gorm:"type:text;not null;default:''" json:"reviewed_by"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Record) TableName() string { return "records" }

// Source is a named collection of records, e.g. "Natick/Trumbull".
// Deletion is refused while any record references it.
type Source struct {
	ID          int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Source) TableName() string { return "sources" }
