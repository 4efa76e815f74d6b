package alarm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Condition is a node of a predicate tree over a single scalar. Leaves
// (GreaterThan, LessThan) carry a threshold; composites (And, Or, Not)
// carry children. Conditions are immutable after construction and free of
// I/O, so evaluation is pure and deterministic.
type Condition struct {
	Type      string
	Threshold float64
	Children  []*Condition
}

// GreaterThan builds a leaf that triggers when the value exceeds threshold.
func GreaterThan(threshold float64) *Condition {
	return &Condition{Type: ConditionGreaterThan, Threshold: threshold}
}

// LessThan builds a leaf that triggers when the value is below threshold.
func LessThan(threshold float64) *Condition {
	return &Condition{Type: ConditionLessThan, Threshold: threshold}
}

// And builds a composite that triggers when all children trigger.
func And(children ...*Condition) *Condition {
	return &Condition{Type: ConditionAnd, Children: children}
}

// Or builds a composite that triggers when any child triggers.
func Or(children ...*Condition) *Condition {
	return &Condition{Type: ConditionOr, Children: children}
}

// Not builds a composite that inverts its single child.
func Not(child *Condition) *Condition {
	return &Condition{Type: ConditionNot, Children: []*Condition{child}}
}

// IsTriggered evaluates the tree against a scalar. Composites short-circuit.
func (c *Condition) IsTriggered(value float64) bool {
	switch c.Type {
	case ConditionGreaterThan:
		return value > c.Threshold
	case ConditionLessThan:
		return value < c.Threshold
	case ConditionAnd:
		for _, child := range c.Children {
			if !child.IsTriggered(value) {
				return false
			}
		}
		return true
	case ConditionOr:
		for _, child := range c.Children {
			if child.IsTriggered(value) {
				return true
			}
		}
		return false
	case ConditionNot:
		return !c.Children[0].IsTriggered(value)
	default:
		return false
	}
}

// Describe returns a human-readable rendering of the tree, used for the
// {condition} placeholder.
func (c *Condition) Describe() string {
	switch c.Type {
	case ConditionGreaterThan:
		return "(x > " + strconv.FormatFloat(c.Threshold, 'f', -1, 64) + ")"
	case ConditionLessThan:
		return "(x < " + strconv.FormatFloat(c.Threshold, 'f', -1, 64) + ")"
	case ConditionAnd, ConditionOr:
		op := " AND "
		if c.Type == ConditionOr {
			op = " OR "
		}
		parts := make([]string, 0, len(c.Children))
		for _, child := range c.Children {
			parts = append(parts, child.Describe())
		}
		return "(" + strings.Join(parts, op) + ")"
	case ConditionNot:
		return "(NOT " + c.Children[0].Describe() + ")"
	default:
		return "(unknown)"
	}
}

// IsLeaf reports whether the condition carries a threshold instead of
// children.
func (c *Condition) IsLeaf() bool {
	return c.Type == ConditionGreaterThan || c.Type == ConditionLessThan
}

// Validate checks the structural invariants: leaves have no children,
// And/Or have at least one child, Not exactly one.
func (c *Condition) Validate() error {
	if c == nil {
		return fmt.Errorf("condition is nil")
	}
	switch c.Type {
	case ConditionGreaterThan, ConditionLessThan:
		if len(c.Children) != 0 {
			return fmt.Errorf("%s condition must not have children", c.Type)
		}
		return nil
	case ConditionAnd, ConditionOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("%s condition requires at least one child", c.Type)
		}
	case ConditionNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("Not condition requires exactly one child")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	for _, child := range c.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports structural equality of two trees under (type, threshold,
// children) comparison.
func (c *Condition) Equal(other *Condition) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Type != other.Type || c.Threshold != other.Threshold || len(c.Children) != len(other.Children) {
		return false
	}
	for i := range c.Children {
		if !c.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// conditionJSON is the wire shape of a condition: leaves carry "threshold",
// And/Or carry "conditions", Not carries "condition".
type conditionJSON struct {
	Type       string            `json:"type"`
	Threshold  *float64          `json:"threshold,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
	Condition  json.RawMessage   `json:"condition,omitempty"`
}

// MarshalJSON emits the wire shape.
func (c *Condition) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ConditionGreaterThan, ConditionLessThan:
		return json.Marshal(map[string]any{"type": c.Type, "threshold": c.Threshold})
	case ConditionAnd, ConditionOr:
		return json.Marshal(map[string]any{"type": c.Type, "conditions": c.Children})
	case ConditionNot:
		return json.Marshal(map[string]any{"type": c.Type, "condition": c.Children[0]})
	default:
		return nil, fmt.Errorf("unknown condition type %q", c.Type)
	}
}

// UnmarshalJSON parses the wire shape and validates the result.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw conditionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Children = nil
	c.Threshold = 0
	c.Type = raw.Type

	switch raw.Type {
	case ConditionGreaterThan, ConditionLessThan:
		if raw.Threshold == nil {
			return fmt.Errorf("%s condition requires a threshold", raw.Type)
		}
		c.Threshold = *raw.Threshold
	case ConditionAnd, ConditionOr:
		if len(raw.Conditions) == 0 {
			return fmt.Errorf("%s condition requires a non-empty \"conditions\" list", raw.Type)
		}
		for _, childRaw := range raw.Conditions {
			child := &Condition{}
			if err := json.Unmarshal(childRaw, child); err != nil {
				return err
			}
			c.Children = append(c.Children, child)
		}
	case ConditionNot:
		if len(raw.Condition) == 0 {
			return fmt.Errorf("Not condition requires a \"condition\" child")
		}
		child := &Condition{}
		if err := json.Unmarshal(raw.Condition, child); err != nil {
			return err
		}
		c.Children = []*Condition{child}
	default:
		return fmt.Errorf("unknown condition type %q", raw.Type)
	}
	return nil
}
