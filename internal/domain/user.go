package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// User is an editor identity resolved from the external identity
// provider. Email is the reference key across the schema; it cascades on
// update because provider emails can change.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name  string    `gorm:"type:text;not null;default:''" json:"name"`
	Role  string    `gorm:"type:text;not null;default:'editor'" json:"role"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// UserActivityLog is the append-only audit trail: stage, apply, rollback
// and export actions land here. Rollback listings consult it to exclude
// sessions already reversed.
type UserActivityLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	UserEmail string `gorm:"type:text;not null;index" json:"user_email"`
	User      *User  `gorm:"foreignKey:UserEmail;references:Email;constraint:OnUpdate:CASCADE" json:"user,omitempty"`

	Action  string         `gorm:"type:text;not null;index" json:"action"`
	Details datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"details"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (UserActivityLog) TableName() string { return "user_activity_log" }

// Permission grants a named capability to an org/team pair. Org and team
// are stored lowercase; the seed normalises casing.
type Permission struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Org  string `gorm:"type:text;not null;index:idx_permissions_org_team_cap,unique,priority:1" json:"org"`
	Team string `gorm:"type:text;not null;index:idx_permissions_org_team_cap,unique,priority:2" json:"team"`
	Cap  string `gorm:"type:text;not null;index:idx_permissions_org_team_cap,unique,priority:3" json:"cap"`
}

func (Permission) TableName() string { return "permissions" }

// SchemaVersion is the migration ledger: at most one row per version, and
// the single source of truth for what has been applied.
type SchemaVersion struct {
	Version     int       `gorm:"primaryKey" json:"version"`
	Description string    `gorm:"type:text;not null" json:"description"`
	AppliedAt   time.Time `gorm:"not null;default:now()" json:"applied_at"`
}

func (SchemaVersion) TableName() string { return "schema_version" }
