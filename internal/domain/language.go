package domain

import "time"

// Language is a {code, name} lookup, unique by code.
type Language struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name string `gorm:"type:text;not null;index" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Language) TableName() string { return "languages" }

// RecordLanguage links a record to a language. At most one row per record
// carries IsPrimary; the apply engine rebuilds these rows destructively on
// every apply, marking the first parsed \lg primary.
type RecordLanguage struct {
	ID int `gorm:"primaryKey;autoIncrement" json:"id"`

	RecordID int     `gorm:"not null;index;index:idx_record_languages_record_lang,unique,priority:1;index:idx_record_languages_one_primary,unique,where:is_primary = true" json:"record_id"`
	Record   *Record `gorm:"foreignKey:RecordID;references:ID;constraint:OnDelete:CASCADE" json:"record,omitempty"`

	LanguageID int       `gorm:"not null;index;index:idx_record_languages_record_lang,unique,priority:2" json:"language_id"`
	Language   *Language `gorm:"foreignKey:LanguageID;references:ID;constraint:OnDelete:RESTRICT" json:"language,omitempty"`

	IsPrimary bool `gorm:"not null;default:false" json:"is_primary"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RecordLanguage) TableName() string { return "record_languages" }

// ISO639_3 is the reference table of ISO 639-3 language codes, seeded at
// migration time.
type ISO639_3 struct {
	Code  string `gorm:"type:char(3);primaryKey" json:"code"`
	Name  string `gorm:"type:text;not null" json:"name"`
	Scope string `gorm:"type:char(1);not null;default:'I'" json:"scope"`
}

func (ISO639_3) TableName() string { return "iso_639_3" }
