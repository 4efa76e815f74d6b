package alarm

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceFunc reads the current value of the metric a rule watches.
// Provisioned rules bind (nodeID, metricName, cache) into this closure.
type ResourceFunc func() float64

// Rule is a template bound to one node — the unit of evaluation. Runtime
// state (IsTriggered, ConsecutiveTriggerCount, LastValue) is mutated only by
// the evaluator; ticks are serialized, so no per-rule lock is needed.
type Rule struct {
	RuleID     string
	TemplateID string
	NodeID     string

	MetricName            string
	AlarmType             string
	AlarmLevel            string
	ContentTemplate       string
	TriggerCountThreshold int

	Resource  ResourceFunc
	Condition *Condition
	Actions   []Action

	IsTriggered             bool
	ConsecutiveTriggerCount int
	LastValue               float64
}

// RuleID joins a template id and node id with the provisioner separator.
func RuleID(templateID, nodeID string) string {
	return templateID + ruleIDSeparator + nodeID
}

// NewRuleFromTemplate instantiates a template for one node, binding a fresh
// resource closure over the cache. The template's condition and actions are
// carried by reference; templates are immutable, so sharing is safe.
func NewRuleFromTemplate(tpl *Template, nodeID string, cache *MetricCache) *Rule {
	templateID, metricName := tpl.TemplateID, tpl.MetricName
	threshold := tpl.TriggerCountThreshold
	if threshold < 1 {
		threshold = 1
	}
	return &Rule{
		RuleID:                RuleID(templateID, nodeID),
		TemplateID:            templateID,
		NodeID:                nodeID,
		MetricName:            metricName,
		AlarmType:             tpl.AlarmType,
		AlarmLevel:            tpl.AlarmLevel,
		ContentTemplate:       tpl.ContentTemplate,
		TriggerCountThreshold: threshold,
		Resource: func() float64 {
			return cache.GetMetric(nodeID, metricName)
		},
		Condition: tpl.Condition,
		Actions:   tpl.Actions,
	}
}

// ResourceName renders the human-readable identity of the watched metric.
func (r *Rule) ResourceName() string {
	return fmt.Sprintf("Metric '%s' on node '%s'", r.MetricName, r.NodeID)
}

// State returns the rule's transition label: TRIGGERED while in alarm,
// RECOVERED otherwise.
func (r *Rule) State() string {
	if r.IsTriggered {
		return "TRIGGERED"
	}
	return "RECOVERED"
}

// FormatValue renders a metric value with the shortest decimal form:
// 95 stays "95", 91.2 stays "91.2", no trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderContent substitutes the recognized placeholders into the rule's
// content template. Unknown placeholders are left literal.
func (r *Rule) RenderContent() string {
	replacer := strings.NewReplacer(
		PlaceholderRuleID, r.RuleID,
		PlaceholderTemplateID, r.TemplateID,
		PlaceholderMetricName, r.MetricName,
		PlaceholderAlarmType, r.AlarmType,
		PlaceholderAlarmLevel, r.AlarmLevel,
		PlaceholderResourceName, r.ResourceName(),
		PlaceholderValue, FormatValue(r.LastValue),
		PlaceholderCondition, r.Condition.Describe(),
		PlaceholderState, r.State(),
		PlaceholderNodeID, r.NodeID,
	)
	return replacer.Replace(r.ContentTemplate)
}
