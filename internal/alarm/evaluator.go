package alarm

import (
	"sync"
	"time"

	"github.com/clusterfleet/manager/internal/logger"
	"github.com/clusterfleet/manager/internal/telemetry"
)

// DispatchFunc fires a rule's actions after a state transition.
type DispatchFunc func(rule *Rule)

// Evaluator owns the rule map and the periodic evaluation loop. Each tick
// reads every rule's resource value, advances its debounce state machine and
// dispatches actions on transitions.
//
// The map mutex is held only for add/remove and to snapshot the rule set at
// tick start; evaluation itself runs without it. Ticks are serialized, so
// per-rule state needs no further locking.
type Evaluator struct {
	mu    sync.Mutex
	rules map[string]*Rule

	dispatch DispatchFunc
	interval time.Duration
	log      logger.Logger

	loopMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewEvaluator creates an Evaluator ticking at the given interval
// (DefaultEvaluateInterval if non-positive).
func NewEvaluator(interval time.Duration, dispatch DispatchFunc, log logger.Logger) *Evaluator {
	if interval <= 0 {
		interval = DefaultEvaluateInterval
	}
	return &Evaluator{
		rules:    make(map[string]*Rule),
		dispatch: dispatch,
		interval: interval,
		log:      log,
	}
}

// AddRule inserts or replaces a rule, keyed by its RuleID. A rule added
// during a tick is evaluated no earlier than the next tick.
func (e *Evaluator) AddRule(rule *Rule) {
	e.mu.Lock()
	e.rules[rule.RuleID] = rule
	size := len(e.rules)
	e.mu.Unlock()
	telemetry.ManagedRules.Set(float64(size))
}

// RemoveRule drops a rule. Removing an unknown id is a no-op.
func (e *Evaluator) RemoveRule(ruleID string) {
	e.mu.Lock()
	delete(e.rules, ruleID)
	size := len(e.rules)
	e.mu.Unlock()
	telemetry.ManagedRules.Set(float64(size))
}

// ManagedRuleIDs returns the ids of all rules currently in the map.
func (e *Evaluator) ManagedRuleIDs() map[string]struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make(map[string]struct{}, len(e.rules))
	for id := range e.rules {
		ids[id] = struct{}{}
	}
	return ids
}

// Tick runs one evaluation pass over a snapshot of the rule map. Exported
// so tests and manual triggers can drive the engine without the loop.
func (e *Evaluator) Tick() {
	e.mu.Lock()
	snapshot := make([]*Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		snapshot = append(snapshot, rule)
	}
	e.mu.Unlock()

	for _, rule := range snapshot {
		e.evaluateRule(rule)
	}
	telemetry.EvaluatorTicks.Inc()
}

// evaluateRule advances one rule's state machine:
//
//	normal --cond met, count reaches threshold--> triggered (fire actions)
//	triggered --cond not met--> normal (fire actions, reset count)
//
// The consecutive count stops mattering once triggered; any miss resets it.
func (e *Evaluator) evaluateRule(rule *Rule) {
	value := rule.Resource()
	rule.LastValue = value

	if rule.Condition.IsTriggered(value) {
		rule.ConsecutiveTriggerCount++
		if rule.ConsecutiveTriggerCount >= rule.TriggerCountThreshold && !rule.IsTriggered {
			rule.IsTriggered = true
			e.fireActions(rule)
		}
		return
	}

	if rule.IsTriggered {
		rule.IsTriggered = false
		e.fireActions(rule)
	}
	rule.ConsecutiveTriggerCount = 0
}

func (e *Evaluator) fireActions(rule *Rule) {
	if e.dispatch == nil {
		return
	}
	e.dispatch(rule)
}

// Start launches the tick loop. Calling Start on a running evaluator is a
// no-op.
func (e *Evaluator) Start() {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.stopCh != nil {
		return
	}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	go e.run(e.stopCh, e.doneCh)
	e.log.Info("alarm evaluator started", logger.Duration("interval", e.interval))
}

func (e *Evaluator) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Tick()
		case <-stopCh:
			return
		}
	}
}

// Stop halts the loop and blocks until it has exited. Idempotent.
func (e *Evaluator) Stop() {
	e.loopMu.Lock()
	stopCh, doneCh := e.stopCh, e.doneCh
	e.stopCh, e.doneCh = nil, nil
	e.loopMu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
	e.log.Info("alarm evaluator stopped")
}
