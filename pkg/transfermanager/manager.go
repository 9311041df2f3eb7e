// Package transfermanager is the TransferProcessManager: the
// persistent, restartable state machine that drives a TransferProcess
// from INITIAL through provisioning, request dispatch, in-flight
// monitoring, and tear-down to ENDED. Every other package in this
// module exists to be wired into a Manager built through Builder.
package transfermanager

import (
	"context"
	"sync"
	"time"

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
	"github.com/connectorhq/transferproc/pkg/transfer"
	"github.com/connectorhq/transferproc/pkg/typemanager"
)

// Manager drives the transfer process state machine. Start runs the
// scheduler loop and Stop ends it. Building a Manager opens no
// resources of its own: collaborators such as S3Provisioner are opened
// and closed by whoever constructs them, so a Manager that is built
// and never started needs no Stop.
type Manager struct {
	provisionManager       *provision.Manager
	dataFlowManager        *dataflow.Manager
	dispatcherRegistry     *dispatch.Registry
	manifestGenerator      *manifest.Generator
	statusCheckerRegistry  *statuscheck.Registry
	store                  store.Store
	observable             *observe.Observable
	commandQueue           command.Queue
	commandRunner          command.Runner
	waitStrategy           retry.WaitStrategy
	typeManager            typemanager.TypeManager
	monitor                monitor.Monitor
	metrics                *metrics.Metrics
	batchSize              int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Start runs the scheduler loop in a background goroutine. Calling
// Start on an already-running Manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.monitor.Info("transfer_manager_start")
	go m.run(m.stopCh, m.doneCh)
}

// Stop signals the loop to exit and blocks until it has, or until ctx
// is done, whichever comes first.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	stopCh, doneCh := m.stopCh, m.doneCh
	m.running = false
	m.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		m.monitor.Info("transfer_manager_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) run(stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		productive := m.tick(context.Background())
		m.metrics.Ticks.Inc()
		if productive {
			m.metrics.ProductiveTicks.Inc()
			m.waitStrategy.Success()
		}

		select {
		case <-stopCh:
			return
		case <-time.After(time.Duration(m.waitStrategy.WaitForMillis()) * time.Millisecond):
		}
	}
}

// tick runs one scheduling pass: drain pending commands, then dispatch
// every active state's handler in turn. It returns true if any process
// was advanced or any command applied, per the WaitStrategy.Success
// contract (spec §4.2 step 3).
func (m *Manager) tick(ctx context.Context) bool {
	productive := m.drainCommands(ctx)
	for _, state := range transfer.ActiveStates {
		if m.processState(ctx, state) {
			productive = true
		}
	}
	return productive
}

func (m *Manager) drainCommands(ctx context.Context) bool {
	commands := m.commandQueue.Poll(m.batchSize)
	for _, c := range commands {
		if err := m.commandRunner.Run(ctx, c); err != nil {
			m.monitor.Severe("command_failed", "command", c.Name(), "error", err)
		}
		m.metrics.CommandsExecuted.Inc()
	}
	return len(commands) > 0
}

// processState polls the store for processes currently in state and
// runs each through the matching handler. A NextForState failure
// aborts this state for the current tick only, per spec §7's
// store-failure policy: it never stops the loop or other states.
func (m *Manager) processState(ctx context.Context, state transfer.State) bool {
	processes, err := m.store.NextForState(ctx, state, m.batchSize)
	if err != nil {
		m.monitor.Severe("next_for_state_failed", "state", state.String(), "error", err)
		return false
	}

	productive := false
	for _, p := range processes {
		if m.dispatch(ctx, state, p) {
			productive = true
		}
	}
	return productive
}

func (m *Manager) dispatch(ctx context.Context, state transfer.State, p *transfer.TransferProcess) bool {
	handler, ok := m.handlers()[state]
	if !ok {
		m.monitor.Severe("no_handler_for_active_state", "state", state.String())
		return false
	}
	return handler(ctx, p)
}

func (m *Manager) handlers() map[transfer.State]func(context.Context, *transfer.TransferProcess) bool {
	return map[transfer.State]func(context.Context, *transfer.TransferProcess) bool{
		transfer.Initial:        m.handleInitial,
		transfer.Provisioning:   m.handleProvisioning,
		transfer.Provisioned:    m.handleProvisioned,
		transfer.Requesting:     m.handleRequesting,
		transfer.Requested:      m.handleRequested,
		transfer.InProgress:     m.handleInProgress,
		transfer.Streaming:      m.handleStreaming,
		transfer.Deprovisioning: m.handleDeprovisioning,
		transfer.Deprovisioned:  m.handleDeprovisioned,
	}
}

// notify applies the transition's observable effects: it bumps the
// transition metric and invokes every registered listener. Call
// it only after a store.Update for p's new state has actually
// succeeded.
func (m *Manager) notify(p *transfer.TransferProcess) {
	m.metrics.Transitions.WithLabelValues(p.State.String()).Inc()
	m.observable.InvokeForEach(p)
}
