package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team kinds
const (
	TeamKindPersonal     = "personal"
	TeamKindOrganization = "organization"
)

// Team member roles
const (
	TeamRoleOwner  = "owner"
	TeamRoleMember = "member"
)

// Team is the authorization boundary owning spaces and tours. A personal
// team has exactly one member and exists from onboarding; an organization
// team is owner-controlled and invite-code gated.
type Team struct {
	ID      string `json:"id" gorm:"primaryKey;type:uuid"`
	Name    string `json:"name" gorm:"not null"`
	Kind    string `json:"kind" gorm:"not null;default:'organization'"` // personal, organization
	OwnerID string `json:"owner_id" gorm:"not null;index"`

	// InviteEnabled carries no default tag: gorm drops zero-value fields
	// with a default from the INSERT, so false would be stored as true.
	InviteCode    string `json:"-" gorm:"uniqueIndex"`
	InviteEnabled bool   `json:"invite_enabled"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Members []TeamMember `json:"members,omitempty" gorm:"foreignKey:TeamID"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TeamMember links a user to a team with a role
type TeamMember struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	TeamID string `json:"team_id" gorm:"type:uuid;not null;uniqueIndex:idx_team_user"`
	UserID string `json:"user_id" gorm:"not null;uniqueIndex:idx_team_user"`
	Role   string `json:"role" gorm:"not null;default:'member'"` // owner, member

	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`

	Team Team `json:"-" gorm:"foreignKey:TeamID"`
	User User `json:"user" gorm:"foreignKey:UserID"`
}
