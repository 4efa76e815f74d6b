// Package entities defines the GORM persistence models for the Manager.
package entities

// AlarmTemplate is a persisted alarm rule template. The condition tree and
// the action list live in their own normalized tables.
type AlarmTemplate struct {
	TemplateID            string `gorm:"primaryKey;size:128" json:"template_id"`
	MetricName            string `gorm:"size:255;not null" json:"metric_name"`
	AlarmType             string `gorm:"size:64;not null" json:"alarm_type"`
	AlarmLevel            string `gorm:"size:64;not null" json:"alarm_level"`
	ContentTemplate       string `gorm:"size:2000;not null" json:"content_template"`
	TriggerCountThreshold int    `gorm:"not null;default:1" json:"trigger_count_threshold"`
	RootConditionID       uint   `gorm:"not null" json:"root_condition_id"`
}

// TableName returns the table name for GORM.
func (AlarmTemplate) TableName() string {
	return "alarm_templates"
}

// AlarmCondition is one node of a persisted condition tree. Threshold is
// meaningful only for leaf rows (GreaterThan, LessThan).
type AlarmCondition struct {
	ID            uint    `gorm:"primaryKey"`
	ConditionType string  `gorm:"size:32;not null"`
	Threshold     float64 `gorm:"default:0"`
}

// TableName returns the table name for GORM.
func (AlarmCondition) TableName() string {
	return "alarm_conditions"
}

// AlarmConditionLink records a parent→child edge of a condition tree.
// Children of a composite condition are ordered by ChildOrder.
type AlarmConditionLink struct {
	ParentConditionID uint `gorm:"primaryKey;autoIncrement:false"`
	ChildConditionID  uint `gorm:"primaryKey;autoIncrement:false"`
	ChildOrder        int  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM.
func (AlarmConditionLink) TableName() string {
	return "alarm_condition_composition"
}

// AlarmAction is a persisted declarative action ("Log" or "Database").
type AlarmAction struct {
	ID         uint   `gorm:"primaryKey"`
	ActionType string `gorm:"size:32;not null"`
	ParamsJSON string `gorm:"type:text;default:''"`
}

// TableName returns the table name for GORM.
func (AlarmAction) TableName() string {
	return "alarm_actions"
}

// AlarmTemplateAction links a template to one of its actions.
type AlarmTemplateAction struct {
	TemplateID string `gorm:"primaryKey;size:128"`
	ActionID   uint   `gorm:"primaryKey;autoIncrement:false"`
}

// TableName returns the table name for GORM.
func (AlarmTemplateAction) TableName() string {
	return "alarm_template_actions"
}
