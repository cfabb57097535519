package domain

// Search entry types, one per indexed MDF field.
const (
	SearchTypeLx = "lx"
	SearchTypeVa = "va"
	SearchTypeSe = "se"
	SearchTypeCf = "cf"
	SearchTypeVe = "ve"
)

// SearchEntry is the derived lookup index over headwords, variants,
// subentries, cross-references and variant-entries. Rows are a pure
// function of Record.MDFData and are rebuilt atomically per record; only
// the apply and rollback engines write here.
type SearchEntry struct {
	ID int `gorm:"primaryKey;autoIncrement" json:"id"`

	RecordID int     `gorm:"not null;index;index:idx_search_entries_lookup,priority:3" json:"record_id"`
	Record   *Record `gorm:"foreignKey:RecordID;references:ID;constraint:OnDelete:CASCADE" json:"record,omitempty"`

	Term      string `gorm:"type:text;not null;index:idx_search_entries_lookup,priority:1" json:"term"`
	EntryType string `gorm:"type:text;not null;index:idx_search_entries_lookup,priority:2" json:"entry_type"`
}

func (SearchEntry) TableName() string { return "search_entries" }
