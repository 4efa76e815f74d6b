package alarm

import (
	"strings"
	"sync"
	"time"

	"github.com/clusterfleet/manager/internal/logger"
	"github.com/clusterfleet/manager/internal/telemetry"
)

// Provisioner reconciles the evaluator's rule map against
// templates × active nodes on a timer. Rules it creates are keyed
// "templateId:nodeId"; ids without the separator are treated as manually
// added and never removed here.
type Provisioner struct {
	mu        sync.Mutex
	templates []Template

	evaluator *Evaluator
	cache     *MetricCache

	interval       time.Duration
	livenessWindow time.Duration
	log            logger.Logger

	loopMu sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewProvisioner creates a Provisioner. Non-positive interval or window fall
// back to the package defaults.
func NewProvisioner(evaluator *Evaluator, cache *MetricCache, interval, livenessWindow time.Duration, log logger.Logger) *Provisioner {
	if interval <= 0 {
		interval = DefaultSynchronizeInterval
	}
	if livenessWindow <= 0 {
		livenessWindow = DefaultLivenessWindow
	}
	return &Provisioner{
		evaluator:      evaluator,
		cache:          cache,
		interval:       interval,
		livenessWindow: livenessWindow,
		log:            log,
	}
}

// SetTemplates replaces the template set used for provisioning. Live rules
// keep the old template until the next synchronize cycle recreates them.
func (p *Provisioner) SetTemplates(templates []Template) {
	p.mu.Lock()
	p.templates = templates
	p.mu.Unlock()
}

// AddTemplate appends one template to the set.
func (p *Provisioner) AddTemplate(tpl Template) {
	p.mu.Lock()
	p.templates = append(p.templates, tpl)
	p.mu.Unlock()
}

// Templates returns a copy of the current template set.
func (p *Provisioner) Templates() []Template {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Template, len(p.templates))
	copy(out, p.templates)
	return out
}

// Synchronize performs one reconciliation pass: create missing rules for
// every (template, active node) pair, remove template-generated rules whose
// pair no longer exists.
func (p *Provisioner) Synchronize() {
	p.mu.Lock()
	templates := make([]Template, len(p.templates))
	copy(templates, p.templates)
	p.mu.Unlock()

	active := p.cache.ActiveNodeIDs(p.livenessWindow)
	existing := p.evaluator.ManagedRuleIDs()
	required := make(map[string]struct{}, len(templates)*len(active))

	for i := range templates {
		tpl := &templates[i]
		for nodeID := range active {
			ruleID := RuleID(tpl.TemplateID, nodeID)
			required[ruleID] = struct{}{}
			if _, ok := existing[ruleID]; ok {
				continue
			}
			p.log.Info("provisioning alarm rule", logger.String("rule_id", ruleID))
			p.evaluator.AddRule(NewRuleFromTemplate(tpl, nodeID, p.cache))
		}
	}

	for ruleID := range existing {
		if _, ok := required[ruleID]; ok {
			continue
		}
		// Only garbage-collect rules we created.
		if !strings.Contains(ruleID, ruleIDSeparator) {
			continue
		}
		p.log.Info("removing stale alarm rule", logger.String("rule_id", ruleID))
		p.evaluator.RemoveRule(ruleID)
	}
	telemetry.ProvisionerSyncs.Inc()
}

// Start launches the synchronize loop. The first pass runs immediately.
func (p *Provisioner) Start() {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(p.stopCh, p.doneCh)
	p.log.Info("rule provisioner started", logger.Duration("interval", p.interval))
}

func (p *Provisioner) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	p.Synchronize()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Synchronize()
		case <-stopCh:
			return
		}
	}
}

// Stop halts the loop and blocks until it has exited. Idempotent.
func (p *Provisioner) Stop() {
	p.loopMu.Lock()
	stopCh, doneCh := p.stopCh, p.doneCh
	p.stopCh, p.doneCh = nil, nil
	p.loopMu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
	p.log.Info("rule provisioner stopped")
}
