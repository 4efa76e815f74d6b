package entities

import "time"

// MetricSample is one flattened scalar extracted from an ingested snapshot.
// Category is the snapshot section ("cpu", "memory", "disk", ...), Name the
// scalar path within it.
type MetricSample struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NodeID     string    `gorm:"size:128;not null;index:idx_samples_node_name,priority:1" json:"node_id"`
	Category   string    `gorm:"size:64;not null" json:"category"`
	Name       string    `gorm:"size:255;not null;index:idx_samples_node_name,priority:2" json:"name"`
	Value      float64   `gorm:"not null" json:"value"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
}

// TableName returns the table name for GORM.
func (MetricSample) TableName() string {
	return "metric_samples"
}
