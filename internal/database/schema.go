package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StagePreview = "preview"
	StageRefined = "refined"
)

const (
	InputTypeText  = "text"
	InputTypeImage = "image"
	InputTypeTask  = "task"
)

// GenerationRecord is the immutable history entry written after a generation
// completes. Records are never updated, only superseded by new ones.
type GenerationRecord struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ModelId string `gorm:"size:64;not null;index"`
	TaskId  string `gorm:"size:64;index"`

	InputType    string `gorm:"size:20;not null"`
	InputContent string `gorm:"not null"`
	Complexity   string `gorm:"size:20"`
	Format       string `gorm:"size:20"`
	Stage        string `gorm:"size:20;not null"`

	ModelUrl     string
	PreviewUrl   string
	DownloadUrls datatypes.JSON

	QualityScore float64

	LocalModelPath   string
	LocalPreviewPath string

	CreationTime time.Time `gorm:"index"`
}

// CacheEntry backs the database cache store. cache_key is content-derived so
// concurrent writers for the same key are idempotent.
type CacheEntry struct {
	CacheKey     string `gorm:"primaryKey"`
	ModelData    []byte `gorm:"not null"`
	CreationTime time.Time
}
