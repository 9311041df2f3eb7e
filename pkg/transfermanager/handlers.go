package transfermanager

import (
	"context"

	"github.com/connectorhq/transferproc/pkg/store"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

// handleInitial generates the process's resource manifest. An empty
// manifest (no destination needs provisioning) fast-paths straight to
// PROVISIONED; otherwise the process moves to PROVISIONING, whose
// handler runs later in the same tick and starts the provisioning work.
func (m *Manager) handleInitial(ctx context.Context, p *transfer.TransferProcess) bool {
	manifest, err := m.manifestGenerator.GenerateResourceManifest(p)
	if err != nil {
		m.monitor.Severe("manifest_generation_failed", "process_id", p.Id, "error", err)
		m.metrics.HandlerErrors.WithLabelValues(p.State.String()).Inc()
		return false
	}

	p.ResourceManifest = manifest
	if manifest.Empty() {
		p.TransitionTo(transfer.Provisioned)
	} else {
		p.TransitionTo(transfer.Provisioning)
	}
	return m.commit(ctx, p)
}

// handleProvisioning starts the ProvisionManager's async work and
// returns immediately without transitioning: per the concurrency
// contract (spec §4.2/§5), the scheduler never blocks on a future.
// Completion is applied from the goroutine via asyncComplete.
func (m *Manager) handleProvisioning(ctx context.Context, p *transfer.TransferProcess) bool {
	future := m.provisionManager.Provision(ctx, p)
	go func(processId string) {
		outcome := <-future
		m.asyncComplete(context.Background(), processId, transfer.Provisioning, func(proc *transfer.TransferProcess) bool {
			if outcome.Err != nil {
				proc.ErrorDetail = outcome.Err.Error()
				proc.TransitionTo(transfer.Error)
				return true
			}
			for _, resp := range outcome.Responses {
				proc.ProvisionedResourceSet.Add(resp.Resource)
			}
			proc.TransitionTo(transfer.Provisioned)
			return true
		})
	}(p.Id)
	return false
}

// handleProvisioned starts the consumer-side request flow, or for a
// provider synchronously starts serving data via DataFlowManager — the
// Java source's initiate() is not itself async, unlike provisioning.
func (m *Manager) handleProvisioned(ctx context.Context, p *transfer.TransferProcess) bool {
	if p.Type == transfer.Consumer {
		p.TransitionTo(transfer.Requesting)
		return m.commit(ctx, p)
	}

	result := m.dataFlowManager.Initiate(p)
	if result.Succeeded {
		p.TransitionTo(transfer.InProgress)
	} else {
		p.ErrorDetail = result.ErrorDetail
		p.TransitionTo(transfer.Error)
	}
	return m.commit(ctx, p)
}

// handleRequesting dispatches the DataRequest to the peer connector
// asynchronously. A dispatch failure leaves the process in REQUESTING
// for the next tick's retry rather than erroring it out: failure to
// reach a peer is transient, per spec §7.
func (m *Manager) handleRequesting(ctx context.Context, p *transfer.TransferProcess) bool {
	payload, err := m.typeManager.Marshal(p.DataRequest)
	if err != nil {
		m.monitor.Severe("data_request_marshal_failed", "process_id", p.Id, "error", err)
		m.metrics.HandlerErrors.WithLabelValues(p.State.String()).Inc()
		return false
	}

	future := m.dispatcherRegistry.Send(ctx, p.DataRequest.Protocol, p.DataRequest.ConnectorId, payload)
	go func(processId string) {
		outcome := <-future
		if outcome.Err != nil {
			m.monitor.Warn("dispatch_failed_will_retry", "process_id", processId, "error", outcome.Err)
			return
		}

		advanced := m.asyncComplete(context.Background(), processId, transfer.Requesting, func(proc *transfer.TransferProcess) bool {
			proc.TransitionTo(transfer.Requested)
			return true
		})
		if advanced {
			// The REQUESTED guard may already be satisfied (destination
			// resource provisioned ahead of the ack); re-check immediately
			// instead of waiting for the next poll of REQUESTED.
			m.cascadeFromRequested(context.Background(), processId)
		}
	}(p.Id)
	return false
}

// handleRequested advances a REQUESTED process once a destination
// resource has been provisioned for it. Until then it holds, because
// in-flight monitoring has nothing to check yet.
func (m *Manager) handleRequested(ctx context.Context, p *transfer.TransferProcess) bool {
	if !m.requestedGuardSatisfied(p) {
		return false
	}
	m.advanceRequested(p)
	return m.commit(ctx, p)
}

func (m *Manager) requestedGuardSatisfied(p *transfer.TransferProcess) bool {
	return p.ProvisionedResourceSet.HasDestinationResource()
}

func (m *Manager) advanceRequested(p *transfer.TransferProcess) {
	if p.DataRequest.TransferType.IsFinite {
		p.TransitionTo(transfer.InProgress)
	} else {
		p.TransitionTo(transfer.Streaming)
	}
}

// cascadeFromRequested re-fetches a process and, if it is still in
// REQUESTED and the guard now passes, advances it. It runs under
// WithTransaction because it reenters from a dispatch callback, racing
// against the scheduler's own tick over the same row (spec §5).
func (m *Manager) cascadeFromRequested(ctx context.Context, processId string) {
	m.asyncComplete(ctx, processId, transfer.Requested, func(proc *transfer.TransferProcess) bool {
		if !m.requestedGuardSatisfied(proc) {
			return false
		}
		m.advanceRequested(proc)
		return true
	})
}

// handleInProgress and handleStreaming share the in-flight monitoring
// logic of spec §4.3: both states are "waiting on a status checker
// matrix" and differ only in how they got there.
func (m *Manager) handleInProgress(ctx context.Context, p *transfer.TransferProcess) bool {
	return m.checkAndAdvance(ctx, p)
}

func (m *Manager) handleStreaming(ctx context.Context, p *transfer.TransferProcess) bool {
	return m.checkAndAdvance(ctx, p)
}

func (m *Manager) checkAndAdvance(ctx context.Context, p *transfer.TransferProcess) bool {
	done, checked := m.checkComplete(p)
	if !checked || !done {
		return false
	}
	p.TransitionTo(transfer.Completed)
	if !m.commit(ctx, p) {
		return false
	}
	// COMPLETED is not polled (spec §4.2's active-state list omits it):
	// cascade straight into the teardown decision in the same tick.
	m.completeAndCascade(ctx, p)
	return true
}

// checkComplete evaluates the status-checker matrix from spec §4.3.
// checked is false when there is nothing to evaluate yet (no resources
// provisioned, or unmanaged resources with no destination resource
// among them) or a managed resource is missing a registered checker;
// in all these cases the caller must not transition.
func (m *Manager) checkComplete(p *transfer.TransferProcess) (done bool, checked bool) {
	resources := p.ProvisionedResourceSet.Resources
	if len(resources) == 0 {
		return false, false
	}

	managed := p.DataRequest.ManagedResources
	if !managed && !p.ProvisionedResourceSet.HasDestinationResource() {
		return false, false
	}

	allComplete := true
	for _, r := range resources {
		checker := m.statusCheckerRegistry.Resolve(r.ResourceType)
		if checker == nil {
			if managed {
				return false, false
			}
			continue
		}
		if !checker(p, r) {
			allComplete = false
		}
	}
	return allComplete, true
}

// completeAndCascade decides the teardown path for a just-COMPLETED
// process and writes it as a distinct update, mirroring the Java
// source's two separate store.update calls for COMPLETED and the
// state that follows it.
func (m *Manager) completeAndCascade(ctx context.Context, p *transfer.TransferProcess) {
	if p.DataRequest.ManagedResources {
		p.TransitionTo(transfer.Deprovisioning)
	} else {
		p.TransitionTo(transfer.Deprovisioned)
	}
	m.commit(ctx, p)
}

// handleDeprovisioning mirrors handleProvisioning: start the
// ProvisionManager's async teardown and let the callback complete the
// transition.
func (m *Manager) handleDeprovisioning(ctx context.Context, p *transfer.TransferProcess) bool {
	future := m.provisionManager.Deprovision(ctx, p)
	go func(processId string) {
		outcome := <-future
		m.asyncComplete(context.Background(), processId, transfer.Deprovisioning, func(proc *transfer.TransferProcess) bool {
			if outcome.Err != nil {
				proc.ErrorDetail = outcome.Err.Error()
				proc.TransitionTo(transfer.Error)
				return true
			}
			proc.TransitionTo(transfer.Deprovisioned)
			return true
		})
	}(p.Id)
	return false
}

func (m *Manager) handleDeprovisioned(ctx context.Context, p *transfer.TransferProcess) bool {
	p.TransitionTo(transfer.Ended)
	return m.commit(ctx, p)
}

// commit persists p's current state and, on success, fires the
// observable and transition metric. It is the only path by which a
// synchronous (same-tick) handler writes a transition.
func (m *Manager) commit(ctx context.Context, p *transfer.TransferProcess) bool {
	if err := m.store.Update(ctx, p); err != nil {
		m.monitor.Severe("store_update_failed", "process_id", p.Id, "state", p.State.String(), "error", err)
		return false
	}
	m.notify(p)
	return true
}

// asyncComplete re-fetches processId inside a store transaction,
// verifies it is still in expectedState (it may have raced with
// another tick or already been picked up — spec §5), and applies
// mutate. mutate returns false to signal "guard not satisfied, leave
// the process untouched" without committing a write. asyncComplete
// reports whether a commit actually happened.
func (m *Manager) asyncComplete(ctx context.Context, processId string, expectedState transfer.State, mutate func(proc *transfer.TransferProcess) bool) (committed bool) {
	var final *transfer.TransferProcess

	err := m.store.WithTransaction(ctx, func(tx store.TransactionContext) error {
		proc, err := tx.Find(processId)
		if err != nil {
			return err
		}
		if proc == nil || proc.State != expectedState {
			return nil
		}
		if !mutate(proc) {
			return nil
		}
		final = proc
		return tx.Update(proc)
	})

	if err != nil {
		m.monitor.Severe("async_completion_failed", "process_id", processId, "error", err)
		return false
	}
	if final == nil {
		return false
	}
	m.notify(final)
	return true
}
