package alarm

// DefaultTemplates returns the built-in alarm templates seeded when the
// template table is empty.
func DefaultTemplates() []Template {
	return []Template{
		{
			TemplateID:            "cpu-usage-critical",
			MetricName:            "cpu.usage_percent",
			AlarmType:             "system",
			AlarmLevel:            "critical",
			ContentTemplate:       "{state} on {nodeId}: {metricName}={value} ({condition})",
			TriggerCountThreshold: 3,
			Condition:             GreaterThan(90),
			Actions:               []Action{{Type: ActionLog}, {Type: ActionDatabase}},
		},
		{
			TemplateID:            "memory-usage-critical",
			MetricName:            "memory.usage_percent",
			AlarmType:             "system",
			AlarmLevel:            "critical",
			ContentTemplate:       "{state} on {nodeId}: {metricName}={value} ({condition})",
			TriggerCountThreshold: 3,
			Condition:             GreaterThan(90),
			Actions:               []Action{{Type: ActionLog}, {Type: ActionDatabase}},
		},
		{
			TemplateID:            "root-disk-warning",
			MetricName:            "disk[mount_point=/].usage_percent",
			AlarmType:             "system",
			AlarmLevel:            "warning",
			ContentTemplate:       "{state} on {nodeId}: {resourceName} at {value}%",
			TriggerCountThreshold: 2,
			Condition:             And(GreaterThan(80), LessThan(100)),
			Actions:               []Action{{Type: ActionLog}, {Type: ActionDatabase}},
		},
	}
}
