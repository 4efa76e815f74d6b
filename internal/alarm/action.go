package alarm

import (
	"context"
	"time"

	"github.com/clusterfleet/manager/internal/datastore/entities"
	"github.com/clusterfleet/manager/internal/logger"
	"github.com/clusterfleet/manager/internal/telemetry"
)

const (
	// insertEventTimeout is the context deadline for persisting one event.
	insertEventTimeout = 3 * time.Second
	// eventTimestampLayout is the format stored in the event row.
	eventTimestampLayout = "2006-01-02 15:04:05"
)

// EventSink abstracts event persistence for the Database action, keeping
// the alarm package decoupled from the repository implementation.
type EventSink interface {
	InsertEvent(ctx context.Context, event *entities.AlarmEvent) error
}

// ActionDispatcher executes a rule's declared actions on every state
// transition. Actions read the rule's IsTriggered flag at fire time to
// distinguish trigger from recovery. Sink failures are logged and swallowed
// so a broken database never stops evaluation.
type ActionDispatcher struct {
	events EventSink
	log    logger.Logger
}

// NewActionDispatcher creates an ActionDispatcher writing Database actions
// through the given sink.
func NewActionDispatcher(events EventSink, log logger.Logger) *ActionDispatcher {
	return &ActionDispatcher{events: events, log: log}
}

// Dispatch fires all of the rule's actions in declared order.
func (d *ActionDispatcher) Dispatch(rule *Rule) {
	telemetry.AlarmEvents.WithLabelValues(rule.State()).Inc()
	for i := range rule.Actions {
		switch rule.Actions[i].Type {
		case ActionLog:
			d.dispatchLog(rule)
		case ActionDatabase:
			d.dispatchDatabase(rule)
		default:
			d.log.Warn("unknown alarm action type",
				logger.String("action_type", rule.Actions[i].Type),
				logger.String("rule_id", rule.RuleID))
		}
	}
}

func (d *ActionDispatcher) dispatchLog(rule *Rule) {
	d.log.Info(rule.RenderContent(),
		logger.String("rule_id", rule.RuleID),
		logger.String("state", rule.State()),
		logger.Float64("value", rule.LastValue))
}

func (d *ActionDispatcher) dispatchDatabase(rule *Rule) {
	if d.events == nil {
		return
	}
	event := &entities.AlarmEvent{
		Timestamp:  time.Now().Format(eventTimestampLayout),
		RuleID:     rule.RuleID,
		TemplateID: rule.TemplateID,
		NodeID:     rule.NodeID,
		MetricName: rule.MetricName,
		Value:      rule.LastValue,
		AlarmType:  rule.AlarmType,
		AlarmLevel: rule.AlarmLevel,
		EventType:  rule.State(),
		Details:    rule.RenderContent(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), insertEventTimeout)
	defer cancel()
	if err := d.events.InsertEvent(ctx, event); err != nil {
		d.log.Error("failed to persist alarm event",
			logger.String("rule_id", rule.RuleID),
			logger.String("event_type", event.EventType),
			logger.Error(err))
	}
}
