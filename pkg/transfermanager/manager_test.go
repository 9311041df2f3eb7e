package transfermanager

import (
	"context"
	"testing"
	"time"

	"github.com/connectorhq/transferproc/pkg/dataflow"
	"github.com/connectorhq/transferproc/pkg/dispatch"
	"github.com/connectorhq/transferproc/pkg/manifest"
	"github.com/connectorhq/transferproc/pkg/monitor"
	"github.com/connectorhq/transferproc/pkg/observe"
	"github.com/connectorhq/transferproc/pkg/provision"
	"github.com/connectorhq/transferproc/pkg/retry"
	"github.com/connectorhq/transferproc/pkg/statuscheck"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

const destType = "s3"

// fakeDispatcher acks every send immediately, or fails it with
// failWith when that is set.
type fakeDispatcher struct{ failWith error }

func (d *fakeDispatcher) Send(ctx context.Context, subject string, payload []byte) <-chan dispatch.SendOutcome {
	out := make(chan dispatch.SendOutcome, 1)
	if d.failWith != nil {
		out <- dispatch.SendOutcome{Err: d.failWith}
	} else {
		out <- dispatch.SendOutcome{Reply: []byte("ack")}
	}
	return out
}

func waitFor(t *testing.T, ch <-chan *transfer.TransferProcess, processId string, state transfer.State) *transfer.TransferProcess {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-ch:
			if p.Id == processId && p.State == state {
				return p
			}
		case <-deadline:
			t.Fatalf("timed out waiting for process %s to reach state %s", processId, state)
			return nil
		}
	}
}

func newTestManager(t *testing.T, st *memStore, rec *notifyRecorder, provisioner provision.Provisioner, initiator dataflow.Initiator, dispatcher dispatch.Dispatcher, checker statuscheck.Checker) *Manager {
	t.Helper()

	pm := provision.NewManager()
	pm.Register(destType, provisioner)

	dfm := dataflow.NewManager()
	dfm.Register(destType, initiator)

	dr := dispatch.NewRegistry()
	dr.Register("test-protocol", dispatcher)

	mg := manifest.NewGenerator()
	mg.Register(destType, manifest.SingleDefinitionGenerator(destType))

	scr := statuscheck.NewRegistry()
	scr.Register(destType, checker)

	obs := observe.New(monitor.New(nil))
	obs.RegisterListener(rec)

	m, err := NewBuilder().
		ProvisionManager(pm).
		DataFlowManager(dfm).
		DispatcherRegistry(dr).
		ManifestGenerator(mg).
		StatusCheckerRegistry(scr).
		Store(st).
		Observable(obs).
		WaitStrategy(&retry.ConstantWaitStrategy{Millis: 1}).
		BatchSize(10).
		Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	return m
}

func baseRequest(id string, finite, managed bool) transfer.DataRequest {
	return transfer.DataRequest{
		Id:               id,
		DestinationType:  destType,
		TransferType:     transfer.TransferType{DestinationType: destType, IsFinite: finite},
		ManagedResources: managed,
		ConnectorId:      "peer-connector",
		Protocol:         "test-protocol",
		DestinationKey:   "objects/" + id,
	}
}

// TestConsumerFiniteManagedLifecycle drives a consumer-side, finite,
// managed-resources transfer through every state to ENDED, mirroring
// spec §8 scenario S1.
func TestConsumerFiniteManagedLifecycle(t *testing.T) {
	st := newMemStore()
	rec := newNotifyRecorder()

	complete := false
	checker := statuscheck.Checker(func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool { return complete })

	m := newTestManager(t, st, rec,
		&fakeProvisioner{resourceType: destType, isDestination: true},
		func(p *transfer.TransferProcess) dataflow.Result { return dataflow.Success("unused") },
		&fakeDispatcher{},
		checker,
	)

	ctx := context.Background()
	req := baseRequest("transfer-1", true, true)
	processId, err := m.InitiateConsumerRequest(ctx, req)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// tick 1: INITIAL -> PROVISIONING (sync), kicks off async provisioning.
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Provisioning)
	waitFor(t, rec.ch, processId, transfer.Provisioned)

	// tick 2: PROVISIONED -> REQUESTING (sync), kicks off async dispatch,
	// whose callback cascades REQUESTED -> IN_PROGRESS in the same goroutine.
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Requesting)
	waitFor(t, rec.ch, processId, transfer.Requested)
	waitFor(t, rec.ch, processId, transfer.InProgress)

	// tick 3: status checker not yet satisfied, so the tick must not
	// advance past IN_PROGRESS.
	m.tick(ctx)
	select {
	case p := <-rec.ch:
		t.Fatalf("unexpected transition to %s before status checker reports done", p.State)
	case <-time.After(50 * time.Millisecond):
	}

	complete = true
	// tick 4: IN_PROGRESS -> COMPLETED -> DEPROVISIONING (cascaded, sync),
	// kicks off async deprovisioning.
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Completed)
	waitFor(t, rec.ch, processId, transfer.Deprovisioning)
	waitFor(t, rec.ch, processId, transfer.Deprovisioned)

	// tick 5: DEPROVISIONED -> ENDED (sync).
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Ended)

	final, err := st.Find(ctx, processId)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if final.State != transfer.Ended {
		t.Fatalf("final state = %s, want ENDED", final.State)
	}
}

// TestProviderUnmanagedStreamingLifecycle drives a provider-side,
// non-finite (streaming), unmanaged-resources transfer, which skips
// DEPROVISIONING entirely (spec §4.1: unmanaged COMPLETED goes
// straight to DEPROVISIONED).
func TestProviderUnmanagedStreamingLifecycle(t *testing.T) {
	st := newMemStore()
	rec := newNotifyRecorder()

	complete := false
	checker := statuscheck.Checker(func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool { return complete })

	m := newTestManager(t, st, rec,
		&fakeProvisioner{resourceType: destType, isDestination: true},
		func(p *transfer.TransferProcess) dataflow.Result { return dataflow.Success("endpoint-ref") },
		&fakeDispatcher{},
		checker,
	)

	ctx := context.Background()
	req := baseRequest("transfer-2", false, false)
	processId, err := m.InitiateProviderRequest(ctx, req)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// tick 1: INITIAL -> PROVISIONING, async provision.
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Provisioning)
	waitFor(t, rec.ch, processId, transfer.Provisioned)

	// tick 2: PROVISIONED -> IN_PROGRESS directly via DataFlowManager
	// (provider path has no REQUESTING/REQUESTED phase).
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.InProgress)

	complete = true
	// tick 3: IN_PROGRESS -> COMPLETED -> DEPROVISIONED (cascaded; unmanaged
	// skips DEPROVISIONING).
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Completed)
	waitFor(t, rec.ch, processId, transfer.Deprovisioned)

	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Ended)
}

// TestProvisioningFailureEndsInError exercises the failure edge of the
// async PROVISIONING handler: an error outcome must land the process
// in the terminal ERROR state rather than retrying or hanging.
func TestProvisioningFailureEndsInError(t *testing.T) {
	st := newMemStore()
	rec := newNotifyRecorder()

	failingProvisioner := &fakeProvisioner{resourceType: destType, failWith: errBoom}

	m := newTestManager(t, st, rec,
		failingProvisioner,
		func(p *transfer.TransferProcess) dataflow.Result { return dataflow.Success("unused") },
		&fakeDispatcher{},
		statuscheck.Checker(func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool { return true }),
	)

	ctx := context.Background()
	processId, err := m.InitiateConsumerRequest(ctx, baseRequest("transfer-3", true, true))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Provisioning)
	waitFor(t, rec.ch, processId, transfer.Error)

	final, err := st.Find(ctx, processId)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if final.ErrorDetail == "" {
		t.Fatalf("expected ErrorDetail to be set")
	}
}

var errBoom = &boomError{"provisioner exploded"}

type boomError struct{ msg string }

func (e *boomError) Error() string { return e.msg }

// TestInitiateIsIdempotent exercises spec §4.4: two initiations of the
// same transfer id return the same process id and create exactly one
// row.
func TestInitiateIsIdempotent(t *testing.T) {
	st := newMemStore()
	rec := newNotifyRecorder()

	m := newTestManager(t, st, rec,
		&fakeProvisioner{resourceType: destType, isDestination: true},
		func(p *transfer.TransferProcess) dataflow.Result { return dataflow.Success("unused") },
		&fakeDispatcher{},
		statuscheck.Checker(func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool { return true }),
	)

	ctx := context.Background()
	req := baseRequest("dup-transfer", true, true)

	id1, err := m.InitiateConsumerRequest(ctx, req)
	if err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	id2, err := m.InitiateConsumerRequest(ctx, req)
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected idempotent process id, got %q and %q", id1, id2)
	}
	if st.createCalls != 1 {
		t.Fatalf("expected exactly one Create call, got %d", st.createCalls)
	}
}

// TestNextForStateFailureAbortsOnlyThatState verifies spec §7's
// store-failure policy: a NextForState error for one state must not
// prevent other active states from being processed in the same tick.
func TestNextForStateFailureAbortsOnlyThatState(t *testing.T) {
	st := newMemStore()
	rec := newNotifyRecorder()
	st.failNextFor[transfer.Provisioning] = errBoom

	m := newTestManager(t, st, rec,
		&fakeProvisioner{resourceType: destType, isDestination: true},
		func(p *transfer.TransferProcess) dataflow.Result { return dataflow.Success("unused") },
		&fakeDispatcher{},
		statuscheck.Checker(func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool { return true }),
	)

	ctx := context.Background()
	processId, err := m.InitiateConsumerRequest(ctx, baseRequest("transfer-4", true, true))
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// A second process in DEPROVISIONED, a state the tick visits after
	// PROVISIONING, must still be advanced in the same tick.
	later := transfer.New(transfer.Consumer, baseRequest("transfer-5", true, true))
	later.State = transfer.Deprovisioned
	if err := st.Create(ctx, later); err != nil {
		t.Fatalf("create: %v", err)
	}

	// INITIAL still processes and writes PROVISIONING even though the
	// scheduler's later NextForState(PROVISIONING) call this same tick
	// will fail; the write already landed in the store.
	m.tick(ctx)
	waitFor(t, rec.ch, processId, transfer.Provisioning)
	waitFor(t, rec.ch, later.Id, transfer.Ended)

	final, err := st.Find(ctx, processId)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if final.State != transfer.Provisioning {
		t.Fatalf("state = %s, want PROVISIONING (async provision must not have started)", final.State)
	}
}
