package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// mockEventSink records inserted events and optionally fails.
type mockEventSink struct {
	mu     sync.Mutex
	events []*entities.AlarmEvent
	err    error
}

func (m *mockEventSink) InsertEvent(_ context.Context, event *entities.AlarmEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func firedRule() *Rule {
	return &Rule{
		RuleID:          "cpu-crit:node-01",
		TemplateID:      "cpu-crit",
		NodeID:          "node-01",
		MetricName:      "cpu.usage_percent",
		AlarmType:       "system",
		AlarmLevel:      "critical",
		ContentTemplate: "{state} on {nodeId}: {metricName}={value}",
		Condition:       GreaterThan(90),
		Actions:         []Action{{Type: ActionLog}, {Type: ActionDatabase}},
		IsTriggered:     true,
		LastValue:       95,
	}
}

func TestDispatcher_DatabaseActionPersistsEvent(t *testing.T) {
	sink := &mockEventSink{}
	dispatcher := NewActionDispatcher(sink, testLogger())

	dispatcher.Dispatch(firedRule())

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, "cpu-crit:node-01", event.RuleID)
	assert.Equal(t, "cpu-crit", event.TemplateID)
	assert.Equal(t, "node-01", event.NodeID)
	assert.Equal(t, "cpu.usage_percent", event.MetricName)
	assert.Equal(t, entities.EventTypeTriggered, event.EventType)
	assert.InDelta(t, 95.0, event.Value, 1e-9)
	assert.Equal(t, "TRIGGERED on node-01: cpu.usage_percent=95", event.Details)
	assert.NotEmpty(t, event.Timestamp)
}

func TestDispatcher_RecoveryEvent(t *testing.T) {
	sink := &mockEventSink{}
	dispatcher := NewActionDispatcher(sink, testLogger())

	rule := firedRule()
	rule.IsTriggered = false
	rule.LastValue = 10
	dispatcher.Dispatch(rule)

	require.Len(t, sink.events, 1)
	assert.Equal(t, entities.EventTypeRecovered, sink.events[0].EventType)
}

// A broken sink must never propagate into the evaluation path.
func TestDispatcher_SinkFailureIsSwallowed(t *testing.T) {
	sink := &mockEventSink{err: errors.New("connection refused")}
	dispatcher := NewActionDispatcher(sink, testLogger())

	assert.NotPanics(t, func() {
		dispatcher.Dispatch(firedRule())
	})
}

func TestDispatcher_NilSinkSkipsDatabaseAction(t *testing.T) {
	dispatcher := NewActionDispatcher(nil, testLogger())
	assert.NotPanics(t, func() {
		dispatcher.Dispatch(firedRule())
	})
}

func TestDispatcher_ActionsFireInOrderPerTransition(t *testing.T) {
	sink := &mockEventSink{}
	dispatcher := NewActionDispatcher(sink, testLogger())

	rule := firedRule()
	rule.Actions = []Action{{Type: ActionDatabase}, {Type: ActionDatabase}}
	dispatcher.Dispatch(rule)

	assert.Len(t, sink.events, 2, "each declared action fires once")
}

func TestAction_Validate(t *testing.T) {
	assert.NoError(t, (&Action{Type: ActionLog}).Validate())
	assert.NoError(t, (&Action{Type: ActionDatabase}).Validate())
	assert.Error(t, (&Action{Type: "Webhook"}).Validate())
}
