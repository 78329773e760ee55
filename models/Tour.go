package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TourRoom is an ordered reference to a space inside a tour. The
// reference is weak: deleting a space does not rewrite the tours that
// point at it.
type TourRoom struct {
	SpaceID string `json:"space_id" validate:"required"`
	Label   string `json:"label"`
	Order   int    `json:"order"`
}

// Tour is an ordered, shareable collection of spaces owned by a team
type Tour struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	TeamID    string `json:"team_id" gorm:"type:uuid;not null;index"`
	CreatorID string `json:"creator_id" gorm:"not null"`

	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`

	Rooms datatypes.JSON `json:"rooms"` // []TourRoom

	IsPublic   bool   `json:"is_public" gorm:"default:false"`
	ShareToken string `json:"share_token" gorm:"uniqueIndex;not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t *Tour) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// RoomList decodes the JSON rooms column. A missing column decodes to an
// empty slice, never nil.
func (t *Tour) RoomList() ([]TourRoom, error) {
	rooms := []TourRoom{}
	if t.Rooms == nil {
		return rooms, nil
	}
	if err := json.Unmarshal(t.Rooms, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// SetRooms re-encodes the rooms column, normalizing Order to the slice
// position so clients can't create gaps or duplicates.
func (t *Tour) SetRooms(rooms []TourRoom) error {
	for i := range rooms {
		rooms[i].Order = i
	}
	encoded, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	t.Rooms = datatypes.JSON(encoded)
	return nil
}

// Custom JSON marshaling so the rooms column serializes as an array
func (t *Tour) MarshalJSON() ([]byte, error) {
	type Alias Tour
	rooms, err := t.RoomList()
	if err != nil {
		rooms = []TourRoom{}
	}
	return json.Marshal(&struct {
		Rooms []TourRoom `json:"rooms"`
		*Alias
	}{
		Rooms: rooms,
		Alias: (*Alias)(t),
	})
}
