package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// defaultSampleLimit applies when a caller asks for a non-positive number
// of samples.
const defaultSampleLimit = 120

// sampleRepository implements SampleRepository on the relational store.
type sampleRepository struct {
	db *gorm.DB
}

// NewSampleRepository creates a SampleRepository backed by the given DB.
func NewSampleRepository(db *gorm.DB) SampleRepository {
	return &sampleRepository{db: db}
}

// InsertSamples appends a batch in one statement.
func (r *sampleRepository) InsertSamples(ctx context.Context, samples []entities.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&samples).Error; err != nil {
		return fmt.Errorf("failed to insert %d metric samples: %w", len(samples), err)
	}
	return nil
}

// Recent returns up to limit samples of one metric on one node, newest
// first.
func (r *sampleRepository) Recent(ctx context.Context, nodeID, name string, limit int) ([]entities.MetricSample, error) {
	if limit <= 0 {
		limit = defaultSampleLimit
	}
	var samples []entities.MetricSample
	if err := r.db.WithContext(ctx).
		Where("node_id = ? AND name = ?", nodeID, name).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("failed to list samples of %q on %q: %w", name, nodeID, err)
	}
	return samples, nil
}

// DeleteBefore drops samples older than the cutoff.
func (r *sampleRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recorded_at < ?", cutoff).
		Delete(&entities.MetricSample{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete samples before %v: %w", cutoff, result.Error)
	}
	return result.RowsAffected, nil
}
