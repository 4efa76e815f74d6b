package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// nodeRepository implements NodeRepository.
type nodeRepository struct {
	db *gorm.DB
}

// NewNodeRepository creates a NodeRepository backed by the given DB.
func NewNodeRepository(db *gorm.DB) NodeRepository {
	return &nodeRepository{db: db}
}

// UpsertNode inserts a node or, when the (box, slot, cpu) triple exists,
// refreshes its identity fields and flips it online.
func (r *nodeRepository) UpsertNode(ctx context.Context, node *entities.Node) error {
	if node.Status == "" {
		node.Status = entities.NodeStatusOnline
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "box_id"}, {Name: "slot_id"}, {Name: "cpu_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"srio_id", "host_ip", "hostname", "service_port",
				"box_type", "board_type", "cpu_type", "os_type",
				"resource_type", "cpu_arch", "gpu_info", "status", "updated_at",
			}),
		}).
		Create(node).Error
	if err != nil {
		return fmt.Errorf("failed to upsert node (%d,%d,%d): %w", node.BoxID, node.SlotID, node.CPUID, err)
	}
	return nil
}

// GetNodeByHostIP returns the node record for a host address.
func (r *nodeRepository) GetNodeByHostIP(ctx context.Context, hostIP string) (*entities.Node, error) {
	var node entities.Node
	if err := r.db.WithContext(ctx).First(&node, "host_ip = ?", hostIP).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to get node %q: %w", hostIP, err)
	}
	return &node, nil
}

// ListNodes returns all node records ordered by their fleet position.
func (r *nodeRepository) ListNodes(ctx context.Context) ([]entities.Node, error) {
	var nodes []entities.Node
	if err := r.db.WithContext(ctx).
		Order("box_id ASC, slot_id ASC, cpu_id ASC").
		Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

// TouchNode refreshes updated_at and flips the node online.
func (r *nodeRepository) TouchNode(ctx context.Context, hostIP string) error {
	result := r.db.WithContext(ctx).Model(&entities.Node{}).
		Where("host_ip = ?", hostIP).
		Updates(map[string]any{
			"status":     entities.NodeStatusOnline,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to touch node %q: %w", hostIP, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNodeNotFound
	}
	return nil
}

// MarkStaleOffline flips online nodes whose updated_at predates the cutoff.
func (r *nodeRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.Node{}).
		Where("status = ? AND updated_at < ?", entities.NodeStatusOnline, cutoff).
		Update("status", entities.NodeStatusOffline)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark stale nodes offline: %w", result.Error)
	}
	return result.RowsAffected, nil
}
