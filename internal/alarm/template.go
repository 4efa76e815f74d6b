package alarm

import "fmt"

// Action is a declarative side effect attached to a template. Type is
// ActionLog or ActionDatabase; Params is free-form and reserved for
// sink-specific settings.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// Validate checks the action type is known.
func (a *Action) Validate() error {
	switch a.Type {
	case ActionLog, ActionDatabase:
		return nil
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

// Template is an immutable alarm specification. One template instantiates
// one rule per active node.
type Template struct {
	TemplateID            string     `json:"templateId"`
	MetricName            string     `json:"metricName"`
	AlarmType             string     `json:"alarmType"`
	AlarmLevel            string     `json:"alarmLevel"`
	ContentTemplate       string     `json:"contentTemplate"`
	TriggerCountThreshold int        `json:"triggerCountThreshold"`
	Condition             *Condition `json:"condition"`
	Actions               []Action   `json:"actions"`
}

// Validate checks required fields and the condition tree. A zero
// TriggerCountThreshold is normalized to 1.
func (t *Template) Validate() error {
	if t.TemplateID == "" {
		return fmt.Errorf("templateId is required")
	}
	if t.MetricName == "" {
		return fmt.Errorf("metricName is required")
	}
	if t.TriggerCountThreshold < 0 {
		return fmt.Errorf("triggerCountThreshold must be >= 1")
	}
	if t.TriggerCountThreshold == 0 {
		t.TriggerCountThreshold = 1
	}
	if t.Condition == nil {
		return fmt.Errorf("condition is required")
	}
	if err := t.Condition.Validate(); err != nil {
		return fmt.Errorf("invalid condition: %w", err)
	}
	for i := range t.Actions {
		if err := t.Actions[i].Validate(); err != nil {
			return fmt.Errorf("invalid action: %w", err)
		}
	}
	return nil
}
