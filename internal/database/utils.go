package database

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

func SaveGeneration(ctx context.Context, db *gorm.DB, record *GenerationRecord) error {
	if err := db.WithContext(ctx).Create(record).Error; err != nil {
		slog.Error("error saving generation record", "model_id", record.ModelId, "error", err)
		return fmt.Errorf("failed to save generation record: %w", err)
	}
	return nil
}

func ListHistory(ctx context.Context, db *gorm.DB, limit int) ([]GenerationRecord, error) {
	var records []GenerationRecord
	if err := db.WithContext(ctx).Order("creation_time DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list generation history: %w", err)
	}
	return records, nil
}

type Stats struct {
	TotalModels    int64
	AverageQuality float64
}

func GetStats(ctx context.Context, db *gorm.DB) (Stats, error) {
	var stats Stats
	if err := db.WithContext(ctx).Model(&GenerationRecord{}).Count(&stats.TotalModels).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count generation records: %w", err)
	}

	if stats.TotalModels > 0 {
		if err := db.WithContext(ctx).Model(&GenerationRecord{}).
			Select("AVG(quality_score)").Scan(&stats.AverageQuality).Error; err != nil {
			return Stats{}, fmt.Errorf("failed to compute average quality: %w", err)
		}
	}

	return stats, nil
}
