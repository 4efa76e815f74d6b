package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

func sampleEvent(ruleID, nodeID, eventType, timestamp string) *entities.AlarmEvent {
	return &entities.AlarmEvent{
		Timestamp:  timestamp,
		RuleID:     ruleID,
		TemplateID: "cpu-crit",
		NodeID:     nodeID,
		MetricName: "cpu.usage_percent",
		Value:      95,
		AlarmType:  "system",
		AlarmLevel: "critical",
		EventType:  eventType,
		Details:    "TRIGGERED on " + nodeID,
	}
}

func TestEventRepository_InsertAndList(t *testing.T) {
	repo := NewAlarmEventRepository(openTestDB(t))

	require.NoError(t, repo.InsertEvent(testCtx(),
		sampleEvent("cpu-crit:n1", "n1", entities.EventTypeTriggered, "2026-08-24 10:00:00")))
	require.NoError(t, repo.InsertEvent(testCtx(),
		sampleEvent("cpu-crit:n1", "n1", entities.EventTypeRecovered, "2026-08-24 10:05:00")))

	events, err := repo.RecentEvents(testCtx(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entities.EventTypeRecovered, events[0].EventType, "newest first")
	assert.Equal(t, entities.EventTypeTriggered, events[1].EventType)
}

func TestEventRepository_LimitAndDefault(t *testing.T) {
	repo := NewAlarmEventRepository(openTestDB(t))

	for i := 0; i < 5; i++ {
		ts := fmt.Sprintf("2026-08-24 10:00:0%d", i)
		require.NoError(t, repo.InsertEvent(testCtx(),
			sampleEvent("r", "n1", entities.EventTypeTriggered, ts)))
	}

	events, err := repo.RecentEvents(testCtx(), 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	all, err := repo.RecentEvents(testCtx(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "non-positive limit falls back to the default")
}

func TestEventRepository_FilterByNode(t *testing.T) {
	repo := NewAlarmEventRepository(openTestDB(t))

	require.NoError(t, repo.InsertEvent(testCtx(),
		sampleEvent("r:n1", "n1", entities.EventTypeTriggered, "2026-08-24 10:00:00")))
	require.NoError(t, repo.InsertEvent(testCtx(),
		sampleEvent("r:n2", "n2", entities.EventTypeTriggered, "2026-08-24 10:01:00")))

	events, err := repo.RecentEventsForNode(testCtx(), "n2", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "n2", events[0].NodeID)
}

func TestEventRepository_SameTimestampOrderedByID(t *testing.T) {
	repo := NewAlarmEventRepository(openTestDB(t))

	ts := "2026-08-24 10:00:00"
	require.NoError(t, repo.InsertEvent(testCtx(), sampleEvent("first", "n", entities.EventTypeTriggered, ts)))
	require.NoError(t, repo.InsertEvent(testCtx(), sampleEvent("second", "n", entities.EventTypeRecovered, ts)))

	events, err := repo.RecentEvents(testCtx(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[0].RuleID, "id breaks the tie, newest insert first")
}
