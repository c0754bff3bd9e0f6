package versions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Types are frozen copies of the schema as of this migration so later schema
// changes do not silently alter it.

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

type CacheEntry struct {
	CacheKey     string `gorm:"primaryKey"`
	ModelData    []byte `gorm:"not null"`
	CreationTime time.Time
}

func Migration(txn *gorm.DB) error {
	return txn.AutoMigrate(&GenerationRecord{}, &CacheEntry{})
}
