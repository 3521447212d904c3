package models

import "time"

type ImportRun struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	SessionID      string  `gorm:"type:uuid;not null;index"`
	Filename       string  `gorm:"type:text;not null"`
	Status         string  `gorm:"type:text;not null"`
	NewCount       int64   `gorm:"not null;default:0"`
	ExistingCount  int64   `gorm:"not null;default:0"`
	InvalidCount   int64   `gorm:"not null;default:0"`
	ProcessedCount int64   `gorm:"not null;default:0"`
	TotalCount     int64   `gorm:"not null;default:0"`
	SuccessCount   int64   `gorm:"not null;default:0"`
	FailedCount    int64   `gorm:"not null;default:0"`
	ErrorMessage   *string `gorm:"type:text"`
	StartedAt      time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ImportRun) TableName() string {
	return "import_runs"
}
