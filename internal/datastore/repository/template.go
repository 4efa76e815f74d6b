package repository

import (
	"context"

	"github.com/clusterfleet/manager/internal/alarm"
)

// TemplateRepository persists alarm templates, their condition trees and
// action lists in the normalized schema:
//
//	alarm_templates ─┬─ root_condition_id → alarm_conditions
//	                 │                        └─ alarm_condition_composition (ordered edges)
//	                 └─ alarm_template_actions → alarm_actions
//
// Saves are upserts by template id, atomic per template.
type TemplateRepository interface {
	SaveTemplate(ctx context.Context, tpl *alarm.Template) error
	LoadTemplate(ctx context.Context, templateID string) (*alarm.Template, error)
	// LoadAllTemplates returns every readable template. Templates whose
	// persisted shape is invalid are skipped; their errors are joined into
	// the returned error alongside the successfully loaded set.
	LoadAllTemplates(ctx context.Context) ([]alarm.Template, error)
	DeleteTemplate(ctx context.Context, templateID string) error
}
