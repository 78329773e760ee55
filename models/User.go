package models

import "time"

// User is a local cache of the identity provider's profile. The ID is the
// provider's subject id; rows are upserted at onboarding and refreshed on
// verification, never authoritative.
type User struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Email       string `json:"email" gorm:"index"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
