package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// templateRepository implements TemplateRepository.
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a TemplateRepository backed by the given DB.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// SaveTemplate upserts a template inside one transaction: the previous
// condition subtree and action links are removed, the new tree is written
// depth-first, and the template row is saved last. Any failure rolls the
// whole template back.
func (r *templateRepository) SaveTemplate(ctx context.Context, tpl *alarm.Template) error {
	if err := tpl.Validate(); err != nil {
		return fmt.Errorf("invalid template %q: %w", tpl.TemplateID, err)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AlarmTemplate
		err := tx.First(&existing, "template_id = ?", tpl.TemplateID).Error
		switch {
		case err == nil:
			if err := deleteConditionTree(tx, existing.RootConditionID); err != nil {
				return err
			}
			if err := deleteTemplateActions(tx, tpl.TemplateID); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first save
		default:
			return fmt.Errorf("failed to look up template %q: %w", tpl.TemplateID, err)
		}

		rootID, err := saveConditionTree(tx, tpl.Condition)
		if err != nil {
			return err
		}
		if err := saveTemplateActions(tx, tpl.TemplateID, tpl.Actions); err != nil {
			return err
		}

		row := entities.AlarmTemplate{
			TemplateID:            tpl.TemplateID,
			MetricName:            tpl.MetricName,
			AlarmType:             tpl.AlarmType,
			AlarmLevel:            tpl.AlarmLevel,
			ContentTemplate:       tpl.ContentTemplate,
			TriggerCountThreshold: tpl.TriggerCountThreshold,
			RootConditionID:       rootID,
		}
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to save template %q: %w", tpl.TemplateID, err)
		}
		return nil
	})
}

// saveConditionTree inserts the parent row first so children can link to
// it, then recurses; returns the new row id.
func saveConditionTree(tx *gorm.DB, cond *alarm.Condition) (uint, error) {
	row := entities.AlarmCondition{ConditionType: cond.Type}
	if cond.IsLeaf() {
		row.Threshold = cond.Threshold
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to insert %s condition: %w", cond.Type, err)
	}
	for order, child := range cond.Children {
		childID, err := saveConditionTree(tx, child)
		if err != nil {
			return 0, err
		}
		link := entities.AlarmConditionLink{
			ParentConditionID: row.ID,
			ChildConditionID:  childID,
			ChildOrder:        order,
		}
		if err := tx.Create(&link).Error; err != nil {
			return 0, fmt.Errorf("failed to link condition %d to parent %d: %w", childID, row.ID, err)
		}
	}
	return row.ID, nil
}

// deleteConditionTree removes a condition subtree and its edges. Trees are
// never shared between templates, so each row has exactly one parent.
func deleteConditionTree(tx *gorm.DB, conditionID uint) error {
	var links []entities.AlarmConditionLink
	if err := tx.Where("parent_condition_id = ?", conditionID).Find(&links).Error; err != nil {
		return fmt.Errorf("failed to read children of condition %d: %w", conditionID, err)
	}
	for i := range links {
		if err := deleteConditionTree(tx, links[i].ChildConditionID); err != nil {
			return err
		}
	}
	if err := tx.Where("parent_condition_id = ?", conditionID).Delete(&entities.AlarmConditionLink{}).Error; err != nil {
		return fmt.Errorf("failed to delete edges of condition %d: %w", conditionID, err)
	}
	if err := tx.Delete(&entities.AlarmCondition{}, conditionID).Error; err != nil {
		return fmt.Errorf("failed to delete condition %d: %w", conditionID, err)
	}
	return nil
}

func saveTemplateActions(tx *gorm.DB, templateID string, actions []alarm.Action) error {
	for i := range actions {
		params := ""
		if len(actions[i].Params) > 0 {
			raw, err := json.Marshal(actions[i].Params)
			if err != nil {
				return fmt.Errorf("failed to encode action params: %w", err)
			}
			params = string(raw)
		}
		row := entities.AlarmAction{ActionType: actions[i].Type, ParamsJSON: params}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert %s action: %w", actions[i].Type, err)
		}
		link := entities.AlarmTemplateAction{TemplateID: templateID, ActionID: row.ID}
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to link action %d to template %q: %w", row.ID, templateID, err)
		}
	}
	return nil
}

// deleteTemplateActions removes a template's action links and rows.
func deleteTemplateActions(tx *gorm.DB, templateID string) error {
	var links []entities.AlarmTemplateAction
	if err := tx.Where("template_id = ?", templateID).Find(&links).Error; err != nil {
		return fmt.Errorf("failed to read actions of template %q: %w", templateID, err)
	}
	for i := range links {
		if err := tx.Delete(&entities.AlarmAction{}, links[i].ActionID).Error; err != nil {
			return fmt.Errorf("failed to delete action %d: %w", links[i].ActionID, err)
		}
	}
	if err := tx.Where("template_id = ?", templateID).Delete(&entities.AlarmTemplateAction{}).Error; err != nil {
		return fmt.Errorf("failed to delete action links of template %q: %w", templateID, err)
	}
	return nil
}

// LoadTemplate loads one template with its condition tree and actions.
func (r *templateRepository) LoadTemplate(ctx context.Context, templateID string) (*alarm.Template, error) {
	var row entities.AlarmTemplate
	if err := r.db.WithContext(ctx).First(&row, "template_id = ?", templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load template %q: %w", templateID, err)
	}
	return r.assembleTemplate(ctx, &row)
}

// LoadAllTemplates loads every template, skipping rows whose persisted
// shape is invalid and reporting them through a joined error.
func (r *templateRepository) LoadAllTemplates(ctx context.Context) ([]alarm.Template, error) {
	var rows []entities.AlarmTemplate
	if err := r.db.WithContext(ctx).Order("template_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	templates := make([]alarm.Template, 0, len(rows))
	var loadErrs []error
	for i := range rows {
		tpl, err := r.assembleTemplate(ctx, &rows[i])
		if err != nil {
			loadErrs = append(loadErrs, fmt.Errorf("template %q: %w", rows[i].TemplateID, err))
			continue
		}
		templates = append(templates, *tpl)
	}
	return templates, errors.Join(loadErrs...)
}

func (r *templateRepository) assembleTemplate(ctx context.Context, row *entities.AlarmTemplate) (*alarm.Template, error) {
	cond, err := r.loadConditionTree(ctx, row.RootConditionID)
	if err != nil {
		return nil, err
	}
	actions, err := r.loadActions(ctx, row.TemplateID)
	if err != nil {
		return nil, err
	}
	return &alarm.Template{
		TemplateID:            row.TemplateID,
		MetricName:            row.MetricName,
		AlarmType:             row.AlarmType,
		AlarmLevel:            row.AlarmLevel,
		ContentTemplate:       row.ContentTemplate,
		TriggerCountThreshold: row.TriggerCountThreshold,
		Condition:             cond,
		Actions:               actions,
	}, nil
}

// loadConditionTree reconstructs a condition subtree by recursive join on
// the composition table, children ordered by child_order.
func (r *templateRepository) loadConditionTree(ctx context.Context, conditionID uint) (*alarm.Condition, error) {
	var row entities.AlarmCondition
	if err := r.db.WithContext(ctx).First(&row, conditionID).Error; err != nil {
		return nil, fmt.Errorf("condition %d not found: %w", conditionID, err)
	}

	switch row.ConditionType {
	case alarm.ConditionGreaterThan:
		return alarm.GreaterThan(row.Threshold), nil
	case alarm.ConditionLessThan:
		return alarm.LessThan(row.Threshold), nil
	case alarm.ConditionAnd, alarm.ConditionOr, alarm.ConditionNot:
	default:
		return nil, fmt.Errorf("unknown condition type %q in row %d", row.ConditionType, conditionID)
	}

	var links []entities.AlarmConditionLink
	if err := r.db.WithContext(ctx).
		Where("parent_condition_id = ?", conditionID).
		Order("child_order ASC").
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to read children of condition %d: %w", conditionID, err)
	}
	children := make([]*alarm.Condition, 0, len(links))
	for i := range links {
		child, err := r.loadConditionTree(ctx, links[i].ChildConditionID)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	cond := &alarm.Condition{Type: row.ConditionType, Children: children}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	return cond, nil
}

func (r *templateRepository) loadActions(ctx context.Context, templateID string) ([]alarm.Action, error) {
	var rows []entities.AlarmAction
	if err := r.db.WithContext(ctx).
		Joins("JOIN alarm_template_actions ta ON ta.action_id = alarm_actions.id").
		Where("ta.template_id = ?", templateID).
		Order("alarm_actions.id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load actions of template %q: %w", templateID, err)
	}
	actions := make([]alarm.Action, 0, len(rows))
	for i := range rows {
		action := alarm.Action{Type: rows[i].ActionType}
		if err := action.Validate(); err != nil {
			return nil, err
		}
		if rows[i].ParamsJSON != "" {
			if err := json.Unmarshal([]byte(rows[i].ParamsJSON), &action.Params); err != nil {
				return nil, fmt.Errorf("failed to decode params of action %d: %w", rows[i].ID, err)
			}
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// DeleteTemplate removes a template, its condition tree and its actions.
func (r *templateRepository) DeleteTemplate(ctx context.Context, templateID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row entities.AlarmTemplate
		if err := tx.First(&row, "template_id = ?", templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTemplateNotFound
			}
			return fmt.Errorf("failed to look up template %q: %w", templateID, err)
		}
		if err := deleteConditionTree(tx, row.RootConditionID); err != nil {
			return err
		}
		if err := deleteTemplateActions(tx, templateID); err != nil {
			return err
		}
		if err := tx.Delete(&entities.AlarmTemplate{}, "template_id = ?", templateID).Error; err != nil {
			return fmt.Errorf("failed to delete template %q: %w", templateID, err)
		}
		return nil
	})
}
