package entities

// Event types recorded in alarm_events.
const (
	EventTypeTriggered = "TRIGGERED"
	EventTypeRecovered = "RECOVERED"
)

// AlarmEvent records one alarm state transition. Rows are append-only.
// Timestamp is server local time formatted "2006-01-02 15:04:05".
type AlarmEvent struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Timestamp  string  `gorm:"size:32;not null;index" json:"timestamp"`
	RuleID     string  `gorm:"size:255;not null;index" json:"rule_id"`
	TemplateID string  `gorm:"size:128;not null" json:"template_id"`
	NodeID     string  `gorm:"size:128;not null;index" json:"node_id"`
	MetricName string  `gorm:"size:255;not null" json:"metric_name"`
	Value      float64 `gorm:"not null" json:"value"`
	AlarmType  string  `gorm:"size:64;not null" json:"alarm_type"`
	AlarmLevel string  `gorm:"size:64;not null" json:"alarm_level"`
	EventType  string  `gorm:"size:16;not null" json:"event_type"`
	Details    string  `gorm:"type:text;default:''" json:"details"`
}

// TableName returns the table name for GORM.
func (AlarmEvent) TableName() string {
	return "alarm_events"
}
