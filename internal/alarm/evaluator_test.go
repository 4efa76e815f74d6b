package alarm

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/clusterfleet/manager/internal/logger"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// transitionRecorder collects dispatched state transitions.
type transitionRecorder struct {
	mu          sync.Mutex
	transitions []string
	values      []float64
}

func (r *transitionRecorder) dispatch(rule *Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, rule.State())
	r.values = append(r.values, rule.LastValue)
}

func (r *transitionRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.transitions))
	copy(out, r.transitions)
	return out
}

// staticRule builds a rule whose resource reads from a settable variable.
func staticRule(id string, threshold int, cond *Condition, value *float64) *Rule {
	return &Rule{
		RuleID:                id,
		MetricName:            "cpu.usage_percent",
		NodeID:                "node-01",
		TriggerCountThreshold: threshold,
		Condition:             cond,
		Resource:              func() float64 { return *value },
	}
}

func TestEvaluator_DebounceBelowThreshold(t *testing.T) {
	rec := &transitionRecorder{}
	eval := NewEvaluator(time.Second, rec.dispatch, testLogger())

	value := 95.0
	eval.AddRule(staticRule("r", 3, GreaterThan(90), &value))

	// K-1 hits then a miss: no transition at all.
	eval.Tick()
	eval.Tick()
	value = 10
	eval.Tick()

	assert.Empty(t, rec.snapshot())
}

func TestEvaluator_TriggerAndRecover(t *testing.T) {
	rec := &transitionRecorder{}
	eval := NewEvaluator(time.Second, rec.dispatch, testLogger())

	value := 95.0
	eval.AddRule(staticRule("cpu-crit:node-01", 3, GreaterThan(90), &value))

	eval.Tick()
	eval.Tick()
	assert.Empty(t, rec.snapshot(), "no transition before the threshold tick")

	eval.Tick()
	require.Equal(t, []string{"TRIGGERED"}, rec.snapshot())
	assert.InDelta(t, 95.0, rec.values[0], 1e-9)

	value = 10
	eval.Tick()
	require.Equal(t, []string{"TRIGGERED", "RECOVERED"}, rec.snapshot())
	assert.InDelta(t, 10.0, rec.values[1], 1e-9)
}

// Consecutive ticks without a status change produce no extra events.
func TestEvaluator_TransitionIdempotence(t *testing.T) {
	rec := &transitionRecorder{}
	eval := NewEvaluator(time.Second, rec.dispatch, testLogger())

	value := 95.0
	eval.AddRule(staticRule("r", 1, GreaterThan(90), &value))

	for i := 0; i < 5; i++ {
		eval.Tick()
	}
	assert.Equal(t, []string{"TRIGGERED"}, rec.snapshot())

	value = 10
	for i := 0; i < 5; i++ {
		eval.Tick()
	}
	assert.Equal(t, []string{"TRIGGERED", "RECOVERED"}, rec.snapshot())
}

func TestEvaluator_MissResetsCount(t *testing.T) {
	rec := &transitionRecorder{}
	eval := NewEvaluator(time.Second, rec.dispatch, testLogger())

	value := 95.0
	rule := staticRule("r", 3, GreaterThan(90), &value)
	eval.AddRule(rule)

	eval.Tick()
	eval.Tick()
	value = 10
	eval.Tick()
	assert.Zero(t, rule.ConsecutiveTriggerCount)

	// The streak starts over; two more hits are not enough.
	value = 95
	eval.Tick()
	eval.Tick()
	assert.Empty(t, rec.snapshot())
	eval.Tick()
	assert.Equal(t, []string{"TRIGGERED"}, rec.snapshot())
}

func TestEvaluator_WindowedAndTransitions(t *testing.T) {
	rec := &transitionRecorder{}
	eval := NewEvaluator(time.Second, rec.dispatch, testLogger())

	value := 0.0
	eval.AddRule(staticRule("r", 1, And(GreaterThan(80), LessThan(95)), &value))

	expected := []struct {
		input float64
		want  []string
	}{
		{75, []string{}},
		{85, []string{"TRIGGERED"}},
		{97, []string{"TRIGGERED", "RECOVERED"}},
		{90, []string{"TRIGGERED", "RECOVERED", "TRIGGERED"}},
	}
	for _, step := range expected {
		value = step.input
		eval.Tick()
		assert.Equal(t, step.want, rec.snapshot(), "after input %v", step.input)
	}
}

func TestEvaluator_AddReplacesByID(t *testing.T) {
	eval := NewEvaluator(time.Second, nil, testLogger())
	value := 0.0
	eval.AddRule(staticRule("r", 1, GreaterThan(1), &value))
	eval.AddRule(staticRule("r", 2, GreaterThan(2), &value))

	ids := eval.ManagedRuleIDs()
	assert.Len(t, ids, 1)
	assert.Contains(t, ids, "r")
}

func TestEvaluator_RemoveUnknownIsNoop(t *testing.T) {
	eval := NewEvaluator(time.Second, nil, testLogger())
	eval.RemoveRule("ghost")
	assert.Empty(t, eval.ManagedRuleIDs())
}

// Concurrent add/remove against running ticks must not corrupt the map.
func TestEvaluator_ConcurrentMutation(t *testing.T) {
	eval := NewEvaluator(time.Second, nil, testLogger())
	value := 50.0

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := RuleID("tpl", string(rune('a'+w)))
				eval.AddRule(staticRule(id, 1, GreaterThan(90), &value))
				eval.Tick()
				if i%2 == 0 {
					eval.RemoveRule(id)
				}
			}
		}(w)
	}
	wg.Wait()

	for id := range eval.ManagedRuleIDs() {
		assert.NotEmpty(t, id)
	}
}

func TestEvaluator_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &transitionRecorder{}
	eval := NewEvaluator(10*time.Millisecond, rec.dispatch, testLogger())
	value := 95.0
	eval.AddRule(staticRule("r", 1, GreaterThan(90), &value))

	eval.Start()
	eval.Start() // second Start is a no-op

	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) >= 1
	}, time.Second, 5*time.Millisecond, "loop should evaluate the rule")

	eval.Stop()
	eval.Stop() // idempotent
}
