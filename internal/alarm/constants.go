// Package alarm implements the Manager's dynamic alarm engine: a thread-safe
// metric cache, a composite condition grammar, rule templates instantiated
// per active node, a debounced evaluation loop, and declarative actions.
package alarm

import "time"

// Condition types form a tagged tree: leaves compare a scalar against a
// threshold, composites combine children.
const (
	ConditionGreaterThan = "GreaterThan"
	ConditionLessThan    = "LessThan"
	ConditionAnd         = "And"
	ConditionOr          = "Or"
	ConditionNot         = "Not"
)

// Action types define the side effect fired on a rule state transition.
const (
	ActionLog      = "Log"
	ActionDatabase = "Database"
)

// Content-template placeholders recognized by the renderer. Unknown
// placeholders are left literal.
const (
	PlaceholderRuleID       = "{ruleId}"
	PlaceholderTemplateID   = "{templateId}"
	PlaceholderMetricName   = "{metricName}"
	PlaceholderAlarmType    = "{alarmType}"
	PlaceholderAlarmLevel   = "{alarmLevel}"
	PlaceholderResourceName = "{resourceName}"
	PlaceholderValue        = "{value}"
	PlaceholderCondition    = "{condition}"
	PlaceholderState        = "{state}"
	PlaceholderNodeID       = "{nodeId}"
)

// Engine timing defaults.
const (
	// DefaultEvaluateInterval is the evaluator tick period.
	DefaultEvaluateInterval = 1 * time.Second
	// DefaultSynchronizeInterval is the provisioner reconciliation period.
	DefaultSynchronizeInterval = 20 * time.Second
	// DefaultLivenessWindow is how long after its last update a node
	// counts as active.
	DefaultLivenessWindow = 5 * time.Minute
)

// ruleIDSeparator joins a template id and a node id into a rule id.
// Rule ids without the separator are treated as manually added and are
// never garbage-collected by the provisioner.
const ruleIDSeparator = ":"
