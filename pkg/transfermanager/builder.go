package transfermanager

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/connectorhq/transferproc/pkg/command"
	"github.com/connectorhq/transferproc/pkg/dataflow"
	"github.com/connectorhq/transferproc/pkg/dispatch"
	"github.com/connectorhq/transferproc/pkg/manifest"
	"github.com/connectorhq/transferproc/pkg/metrics"
	"github.com/connectorhq/transferproc/pkg/monitor"
	"github.com/connectorhq/transferproc/pkg/observe"
	"github.com/connectorhq/transferproc/pkg/provision"
	"github.com/connectorhq/transferproc/pkg/retry"
	"github.com/connectorhq/transferproc/pkg/statuscheck"
	"github.com/connectorhq/transferproc/pkg/store"
	"github.com/connectorhq/transferproc/pkg/typemanager"
)

// Builder assembles a Manager from its collaborators. Every field
// listed in Build's validation is required: the manager has no
// fallback behavior for a missing collaborator, it simply cannot run.
type Builder struct {
	m   *Manager
	err error
}

// NewBuilder starts a Builder with defaults for the collaborators that
// have a reasonable zero-config default (command queue/runner,
// observable, wait strategy, type manager, monitor, batch size).
func NewBuilder() *Builder {
	mon := monitor.New(nil)
	return &Builder{m: &Manager{
		observable:   observe.New(mon),
		commandQueue: command.NewInMemoryQueue(64),
		commandRunner: command.RunnerFunc(func(_ context.Context, c command.Command) error {
			return nil
		}),
		waitStrategy: &retry.ConstantWaitStrategy{Millis: 1000},
		typeManager:  typemanager.JSON{},
		monitor:      mon,
		batchSize:    5,
	}}
}

func (b *Builder) ProvisionManager(p *provision.Manager) *Builder {
	b.m.provisionManager = p
	return b
}

func (b *Builder) DataFlowManager(d *dataflow.Manager) *Builder {
	b.m.dataFlowManager = d
	return b
}

func (b *Builder) DispatcherRegistry(r *dispatch.Registry) *Builder {
	b.m.dispatcherRegistry = r
	return b
}

func (b *Builder) ManifestGenerator(g *manifest.Generator) *Builder {
	b.m.manifestGenerator = g
	return b
}

func (b *Builder) StatusCheckerRegistry(r *statuscheck.Registry) *Builder {
	b.m.statusCheckerRegistry = r
	return b
}

func (b *Builder) Store(s store.Store) *Builder {
	b.m.store = s
	return b
}

func (b *Builder) Observable(o *observe.Observable) *Builder {
	b.m.observable = o
	return b
}

func (b *Builder) CommandQueue(q command.Queue) *Builder {
	b.m.commandQueue = q
	return b
}

func (b *Builder) CommandRunner(r command.Runner) *Builder {
	b.m.commandRunner = r
	return b
}

func (b *Builder) WaitStrategy(w retry.WaitStrategy) *Builder {
	b.m.waitStrategy = w
	return b
}

func (b *Builder) TypeManager(t typemanager.TypeManager) *Builder {
	b.m.typeManager = t
	return b
}

func (b *Builder) Monitor(mon monitor.Monitor) *Builder {
	b.m.monitor = mon
	return b
}

func (b *Builder) Metrics(met *metrics.Metrics) *Builder {
	b.m.metrics = met
	return b
}

func (b *Builder) BatchSize(n int) *Builder {
	b.m.batchSize = n
	return b
}

// Build validates that every required collaborator is set and returns
// the assembled Manager.
func (b *Builder) Build() (*Manager, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := b.m
	switch {
	case m.provisionManager == nil:
		return nil, fmt.Errorf("transfermanager: ProvisionManager is required")
	case m.dataFlowManager == nil:
		return nil, fmt.Errorf("transfermanager: DataFlowManager is required")
	case m.dispatcherRegistry == nil:
		return nil, fmt.Errorf("transfermanager: DispatcherRegistry is required")
	case m.manifestGenerator == nil:
		return nil, fmt.Errorf("transfermanager: ManifestGenerator is required")
	case m.statusCheckerRegistry == nil:
		return nil, fmt.Errorf("transfermanager: StatusCheckerRegistry is required")
	case m.store == nil:
		return nil, fmt.Errorf("transfermanager: Store is required")
	case m.batchSize <= 0:
		return nil, fmt.Errorf("transfermanager: BatchSize must be positive")
	}
	if m.metrics == nil {
		m.metrics = metrics.New(prometheus.NewRegistry())
	}
	return m, nil
}
