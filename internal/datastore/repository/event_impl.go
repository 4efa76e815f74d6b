package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// defaultEventLimit applies when a caller asks for a non-positive number
// of events.
const defaultEventLimit = 100

// alarmEventRepository implements AlarmEventRepository.
type alarmEventRepository struct {
	db *gorm.DB
}

// NewAlarmEventRepository creates an AlarmEventRepository backed by the
// given DB.
func NewAlarmEventRepository(db *gorm.DB) AlarmEventRepository {
	return &alarmEventRepository{db: db}
}

// InsertEvent appends one event row.
func (r *alarmEventRepository) InsertEvent(ctx context.Context, event *entities.AlarmEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to insert alarm event for rule %q: %w", event.RuleID, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first. The id is the
// tie-breaker for rows sharing a formatted timestamp.
func (r *alarmEventRepository) RecentEvents(ctx context.Context, limit int) ([]entities.AlarmEvent, error) {
	return r.query(ctx, limit, nil)
}

// RecentEventsForNode narrows RecentEvents to one node.
func (r *alarmEventRepository) RecentEventsForNode(ctx context.Context, nodeID string, limit int) ([]entities.AlarmEvent, error) {
	return r.query(ctx, limit, map[string]any{"node_id": nodeID})
}

func (r *alarmEventRepository) query(ctx context.Context, limit int, where map[string]any) ([]entities.AlarmEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	q := r.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit)
	if len(where) > 0 {
		q = q.Where(where)
	}
	var events []entities.AlarmEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list alarm events: %w", err)
	}
	return events, nil
}
