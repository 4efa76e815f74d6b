package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

func sampleNode(box, slot, cpu int, hostIP string) *entities.Node {
	return &entities.Node{
		BoxID:       box,
		SlotID:      slot,
		CPUID:       cpu,
		HostIP:      hostIP,
		Hostname:    "node-" + hostIP,
		ServicePort: 9090,
		BoxType:     "ATCA",
		CPUArch:     "aarch64",
	}
}

func TestNodeRepository_UpsertByTriple(t *testing.T) {
	repo := NewNodeRepository(openTestDB(t))

	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(1, 2, 0, "10.0.0.5")))

	// Same (box, slot, cpu) with a new address: record is refreshed, not
	// duplicated.
	updated := sampleNode(1, 2, 0, "10.0.0.6")
	updated.Hostname = "renamed"
	require.NoError(t, repo.UpsertNode(testCtx(), updated))

	nodes, err := repo.ListNodes(testCtx())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "10.0.0.6", nodes[0].HostIP)
	assert.Equal(t, "renamed", nodes[0].Hostname)
}

func TestNodeRepository_ListOrderedByPosition(t *testing.T) {
	repo := NewNodeRepository(openTestDB(t))

	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(2, 1, 0, "10.0.2.1")))
	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(1, 3, 0, "10.0.1.3")))
	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(1, 1, 1, "10.0.1.1")))

	nodes, err := repo.ListNodes(testCtx())
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "10.0.1.1", nodes[0].HostIP)
	assert.Equal(t, "10.0.1.3", nodes[1].HostIP)
	assert.Equal(t, "10.0.2.1", nodes[2].HostIP)
}

func TestNodeRepository_GetByHostIP(t *testing.T) {
	repo := NewNodeRepository(openTestDB(t))
	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(1, 1, 0, "10.0.0.5")))

	node, err := repo.GetNodeByHostIP(testCtx(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, 1, node.BoxID)

	_, err = repo.GetNodeByHostIP(testCtx(), "10.9.9.9")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestNodeRepository_TouchNode(t *testing.T) {
	db := openTestDB(t)
	repo := NewNodeRepository(db)

	node := sampleNode(1, 1, 0, "10.0.0.5")
	node.Status = entities.NodeStatusOffline
	require.NoError(t, repo.UpsertNode(testCtx(), node))

	require.NoError(t, repo.TouchNode(testCtx(), "10.0.0.5"))

	refreshed, err := repo.GetNodeByHostIP(testCtx(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, entities.NodeStatusOnline, refreshed.Status)

	assert.ErrorIs(t, repo.TouchNode(testCtx(), "10.9.9.9"), ErrNodeNotFound)
}

func TestNodeRepository_MarkStaleOffline(t *testing.T) {
	db := openTestDB(t)
	repo := NewNodeRepository(db)

	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(1, 1, 0, "10.0.0.5")))
	require.NoError(t, repo.UpsertNode(testCtx(), sampleNode(1, 2, 0, "10.0.0.6")))

	// Age one node behind the cutoff.
	stale := time.Now().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&entities.Node{}).
		Where("host_ip = ?", "10.0.0.5").
		UpdateColumn("updated_at", stale).Error)

	changed, err := repo.MarkStaleOffline(testCtx(), time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)

	offline, err := repo.GetNodeByHostIP(testCtx(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, entities.NodeStatusOffline, offline.Status)

	online, err := repo.GetNodeByHostIP(testCtx(), "10.0.0.6")
	require.NoError(t, err)
	assert.Equal(t, entities.NodeStatusOnline, online.Status)

	// A second sweep finds nothing new.
	changed, err = repo.MarkStaleOffline(testCtx(), time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, changed)
}
