package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterfleet/manager/internal/alarm"
	"github.com/clusterfleet/manager/internal/datastore/entities"
)

func sampleTemplate(id string) *alarm.Template {
	return &alarm.Template{
		TemplateID:            id,
		MetricName:            "cpu.usage_percent",
		AlarmType:             "system",
		AlarmLevel:            "critical",
		ContentTemplate:       "{state} on {nodeId}",
		TriggerCountThreshold: 3,
		Condition:             alarm.GreaterThan(90),
		Actions:               []alarm.Action{{Type: alarm.ActionLog}, {Type: alarm.ActionDatabase}},
	}
}

func TestTemplateRepository_SaveAndLoad(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))

	original := sampleTemplate("cpu-crit")
	require.NoError(t, repo.SaveTemplate(testCtx(), original))

	loaded, err := repo.LoadTemplate(testCtx(), "cpu-crit")
	require.NoError(t, err)

	assert.Equal(t, original.TemplateID, loaded.TemplateID)
	assert.Equal(t, original.MetricName, loaded.MetricName)
	assert.Equal(t, original.AlarmType, loaded.AlarmType)
	assert.Equal(t, original.AlarmLevel, loaded.AlarmLevel)
	assert.Equal(t, original.ContentTemplate, loaded.ContentTemplate)
	assert.Equal(t, original.TriggerCountThreshold, loaded.TriggerCountThreshold)
	assert.True(t, original.Condition.Equal(loaded.Condition))
	assert.Equal(t, original.Actions, loaded.Actions)
}

func TestTemplateRepository_NestedConditionRoundTrip(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))

	tpl := sampleTemplate("t")
	tpl.Condition = alarm.Or(
		alarm.Not(alarm.LessThan(5)),
		alarm.GreaterThan(100),
	)
	require.NoError(t, repo.SaveTemplate(testCtx(), tpl))

	loaded, err := repo.LoadTemplate(testCtx(), "t")
	require.NoError(t, err)
	assert.True(t, tpl.Condition.Equal(loaded.Condition),
		"loaded tree must be structurally equal under (type, threshold, children)")
}

func TestTemplateRepository_ChildOrderPreserved(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))

	tpl := sampleTemplate("t")
	tpl.Condition = alarm.And(
		alarm.GreaterThan(80),
		alarm.LessThan(95),
	)
	require.NoError(t, repo.SaveTemplate(testCtx(), tpl))

	loaded, err := repo.LoadTemplate(testCtx(), "t")
	require.NoError(t, err)
	require.Len(t, loaded.Condition.Children, 2)
	assert.Equal(t, alarm.ConditionGreaterThan, loaded.Condition.Children[0].Type)
	assert.Equal(t, alarm.ConditionLessThan, loaded.Condition.Children[1].Type)
}

func TestTemplateRepository_UpsertReplacesTree(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)

	tpl := sampleTemplate("t")
	require.NoError(t, repo.SaveTemplate(testCtx(), tpl))

	tpl.Condition = alarm.And(alarm.GreaterThan(50), alarm.LessThan(60))
	tpl.Actions = []alarm.Action{{Type: alarm.ActionLog}}
	require.NoError(t, repo.SaveTemplate(testCtx(), tpl))

	loaded, err := repo.LoadTemplate(testCtx(), "t")
	require.NoError(t, err)
	assert.True(t, tpl.Condition.Equal(loaded.Condition))
	assert.Equal(t, tpl.Actions, loaded.Actions)

	// The old tree's rows must not leak: one And + two leaves remain.
	var conditions int64
	require.NoError(t, db.Model(&entities.AlarmCondition{}).Count(&conditions).Error)
	assert.EqualValues(t, 3, conditions)

	var actions int64
	require.NoError(t, db.Model(&entities.AlarmAction{}).Count(&actions).Error)
	assert.EqualValues(t, 1, actions)
}

func TestTemplateRepository_InvalidTemplateNotPersisted(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)

	bad := sampleTemplate("bad")
	bad.Condition = &alarm.Condition{Type: alarm.ConditionAnd} // no children
	require.Error(t, repo.SaveTemplate(testCtx(), bad))

	var count int64
	require.NoError(t, db.Model(&entities.AlarmTemplate{}).Count(&count).Error)
	assert.Zero(t, count, "rejected template leaves no rows behind")
}

func TestTemplateRepository_LoadAllSkipsBrokenTemplates(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)

	require.NoError(t, repo.SaveTemplate(testCtx(), sampleTemplate("good")))
	require.NoError(t, repo.SaveTemplate(testCtx(), sampleTemplate("broken")))

	// Corrupt one row so its tree no longer loads.
	require.NoError(t, db.Model(&entities.AlarmCondition{}).
		Where("id = (SELECT root_condition_id FROM alarm_templates WHERE template_id = ?)", "broken").
		Update("condition_type", "Bogus").Error)

	templates, err := repo.LoadAllTemplates(testCtx())
	assert.Error(t, err, "broken template reported")
	require.Len(t, templates, 1, "good template still loads")
	assert.Equal(t, "good", templates[0].TemplateID)
}

func TestTemplateRepository_Delete(t *testing.T) {
	db := openTestDB(t)
	repo := NewTemplateRepository(db)

	require.NoError(t, repo.SaveTemplate(testCtx(), sampleTemplate("t")))
	require.NoError(t, repo.DeleteTemplate(testCtx(), "t"))

	_, err := repo.LoadTemplate(testCtx(), "t")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	var conditions, actions int64
	require.NoError(t, db.Model(&entities.AlarmCondition{}).Count(&conditions).Error)
	require.NoError(t, db.Model(&entities.AlarmAction{}).Count(&actions).Error)
	assert.Zero(t, conditions)
	assert.Zero(t, actions)
}

func TestTemplateRepository_LoadUnknown(t *testing.T) {
	repo := NewTemplateRepository(openTestDB(t))
	_, err := repo.LoadTemplate(testCtx(), "ghost")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
