package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusSuccess    RunStatus = "success"
	RunStatusFailed     RunStatus = "failed"
)

// RunLog is the append-only audit record of one refresh run. A row is
// created in processing state when the run starts and finalized exactly
// once when it ends.
type RunLog struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Source        string            `gorm:"not null" json:"source"`
	Status        RunStatus         `gorm:"not null;index" json:"status"`
	RowsProcessed int64             `gorm:"not null;default:0" json:"rows_processed"`
	Error         string            `json:"error,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	StartedAt     time.Time         `gorm:"not null;index" json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
}

func (RunLog) TableName() string { return "run_logs" }
