package alarm

import (
	"context"
	"time"

	"github.com/clusterfleet/manager/internal/logger"
)

// TemplateStore abstracts template persistence for engine initialization.
// The concrete implementation lives in the repository package.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, tpl *Template) error
	LoadAllTemplates(ctx context.Context) ([]Template, error)
}

// Engine bundles the alarm subsystem: cache, evaluator, provisioner and
// dispatcher, wired together by Initialize.
type Engine struct {
	Cache       *MetricCache
	Evaluator   *Evaluator
	Provisioner *Provisioner
	Dispatcher  *ActionDispatcher

	templates TemplateStore
	log       logger.Logger
}

// Options configures Initialize. Zero values fall back to package defaults.
type Options struct {
	EvaluateInterval    time.Duration
	SynchronizeInterval time.Duration
	LivenessWindow      time.Duration
	SeedDefaults        bool
}

// Initialize builds the alarm engine: seeds default templates when the
// store is empty, loads the template set into the provisioner, and wires
// the dispatcher into the evaluator. Loops are not started; call Start.
func Initialize(templates TemplateStore, events EventSink, opts Options, log logger.Logger) (*Engine, error) {
	ctx := context.Background()

	cache := NewMetricCache()
	dispatcher := NewActionDispatcher(events, log)
	evaluator := NewEvaluator(opts.EvaluateInterval, dispatcher.Dispatch, log)
	provisioner := NewProvisioner(evaluator, cache, opts.SynchronizeInterval, opts.LivenessWindow, log)

	if opts.SeedDefaults {
		if err := seedDefaultTemplates(ctx, templates, log); err != nil {
			return nil, err
		}
	}

	loaded, err := templates.LoadAllTemplates(ctx)
	if err != nil {
		// Partial loads are usable; broken templates were skipped.
		log.Warn("some alarm templates failed to load", logger.Error(err))
	}
	provisioner.SetTemplates(loaded)
	log.Info("alarm engine initialized", logger.Int("templates_loaded", len(loaded)))

	return &Engine{
		Cache:       cache,
		Evaluator:   evaluator,
		Provisioner: provisioner,
		Dispatcher:  dispatcher,
		templates:   templates,
		log:         log,
	}, nil
}

// Start launches the evaluator and provisioner loops.
func (e *Engine) Start() {
	e.Evaluator.Start()
	e.Provisioner.Start()
}

// Stop halts both loops, provisioner first so no rules are added while the
// evaluator drains. Idempotent.
func (e *Engine) Stop() {
	e.Provisioner.Stop()
	e.Evaluator.Stop()
}

// ReloadTemplates re-reads the template set from the store into the
// provisioner. Called after template mutations through the admin API.
func (e *Engine) ReloadTemplates(ctx context.Context) error {
	loaded, err := e.templates.LoadAllTemplates(ctx)
	if err != nil {
		e.log.Warn("template reload completed with errors", logger.Error(err))
	}
	e.Provisioner.SetTemplates(loaded)
	return nil
}

// seedDefaultTemplates inserts the built-in templates when the store holds
// none. Seeding by emptiness keeps user deletions of individual defaults
// durable across restarts.
func seedDefaultTemplates(ctx context.Context, store TemplateStore, log logger.Logger) error {
	existing, err := store.LoadAllTemplates(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := DefaultTemplates()
	for i := range defaults {
		if err := store.SaveTemplate(ctx, &defaults[i]); err != nil {
			return err
		}
	}
	log.Info("seeded default alarm templates", logger.Int("created", len(defaults)))
	return nil
}
