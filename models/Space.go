package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Space lifecycle statuses
const (
	SpaceStatusUploading  = "uploading"
	SpaceStatusGenerating = "generating"
	SpaceStatusReady      = "ready"
	SpaceStatusFailed     = "failed"
)

// Space represents a single generated 3D room asset
type Space struct {
	ID        string `json:"id" gorm:"primaryKey;type:uuid"`
	TeamID    string `json:"team_id" gorm:"type:uuid;not null;index"`
	CreatorID string `json:"creator_id" gorm:"not null;index"`

	Name        string `json:"name" gorm:"not null"`
	Address     string `json:"address"`
	Description string `json:"description"`

	// Generation state
	Status      string `json:"status" gorm:"default:'uploading';index"` // uploading, generating, ready, failed
	OperationID string `json:"operation_id"`
	WorldID     string `json:"world_id"`

	// Derived asset URLs, populated once generation completes
	ThumbnailURL string `json:"thumbnail_url"`
	PanoramaURL  string `json:"panorama_url"`
	SplatLowURL  string `json:"splat_low_url"`
	SplatMedURL  string `json:"splat_med_url"`
	SplatHighURL string `json:"splat_high_url"`
	MeshURL      string `json:"mesh_url"`

	ImageCount   int    `json:"image_count" gorm:"default:0"`
	ErrorMessage string `json:"error_message"`

	// Timestamps
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (s *Space) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
