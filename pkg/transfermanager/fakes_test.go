package transfermanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/connectorhq/transferproc/pkg/provision"
	"github.com/connectorhq/transferproc/pkg/store"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

// memStore is a hand-written in-memory Store, standing in for the
// SQLite-backed one under test: same interface, no database. Every
// public method locks; WithTransaction holds the lock for the whole
// callback so a re-entrant async completion sees a consistent view.
type memStore struct {
	mu            sync.Mutex
	processes     map[string]*transfer.TransferProcess
	transferIndex map[string]string
	order         []string

	createCalls int
	failNextFor map[transfer.State]error
}

func newMemStore() *memStore {
	return &memStore{
		processes:     make(map[string]*transfer.TransferProcess),
		transferIndex: make(map[string]string),
		failNextFor:   make(map[transfer.State]error),
	}
}

func cloneProcess(p *transfer.TransferProcess) *transfer.TransferProcess {
	cp := *p
	cp.ResourceManifest.Definitions = append([]transfer.ResourceDefinition(nil), p.ResourceManifest.Definitions...)
	cp.ProvisionedResourceSet.Resources = append([]transfer.ProvisionedResource(nil), p.ProvisionedResourceSet.Resources...)
	return &cp
}

func (s *memStore) NextForState(ctx context.Context, state transfer.State, batchSize int) ([]*transfer.TransferProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failNextFor[state]; err != nil {
		return nil, err
	}

	var out []*transfer.TransferProcess
	for _, id := range s.order {
		if len(out) >= batchSize {
			break
		}
		p := s.processes[id]
		if p.State == state {
			out = append(out, cloneProcess(p))
		}
	}
	return out, nil
}

func (s *memStore) Find(ctx context.Context, id string) (*transfer.TransferProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id), nil
}

func (s *memStore) findLocked(id string) *transfer.TransferProcess {
	p, ok := s.processes[id]
	if !ok {
		return nil
	}
	return cloneProcess(p)
}

func (s *memStore) Create(ctx context.Context, p *transfer.TransferProcess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.processes[p.Id]; exists {
		return &store.ErrDuplicateProcess{Id: p.Id}
	}
	s.createCalls++
	s.processes[p.Id] = cloneProcess(p)
	s.transferIndex[p.DataRequest.Id] = p.Id
	s.order = append(s.order, p.Id)
	return nil
}

func (s *memStore) Update(ctx context.Context, p *transfer.TransferProcess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(p)
}

func (s *memStore) updateLocked(p *transfer.TransferProcess) error {
	if _, ok := s.processes[p.Id]; !ok {
		return fmt.Errorf("memstore: update of unknown process %q", p.Id)
	}
	s.processes[p.Id] = cloneProcess(p)
	return nil
}

func (s *memStore) ProcessIdForTransferId(ctx context.Context, transferId string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transferIndex[transferId], nil
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(tx store.TransactionContext) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{s: s})
}

type memTx struct{ s *memStore }

func (t *memTx) Find(id string) (*transfer.TransferProcess, error) { return t.s.findLocked(id), nil }
func (t *memTx) Update(p *transfer.TransferProcess) error          { return t.s.updateLocked(p) }

// fakeProvisioner completes instantly and unconditionally, optionally
// failing, and optionally marking its resource a destination resource.
type fakeProvisioner struct {
	resourceType  string
	isDestination bool
	failWith      error
}

func (f *fakeProvisioner) Provision(ctx context.Context, p *transfer.TransferProcess, def transfer.ResourceDefinition) (provision.ProvisionResponse, error) {
	if f.failWith != nil {
		return provision.ProvisionResponse{}, f.failWith
	}
	return provision.ProvisionResponse{
		Resource: transfer.ProvisionedResource{
			Id:                   "res-" + def.Id,
			ResourceDefinitionId: def.Id,
			ResourceType:         f.resourceType,
			IsDestination:        f.isDestination,
		},
	}, nil
}

func (f *fakeProvisioner) Deprovision(ctx context.Context, p *transfer.TransferProcess, res transfer.ProvisionedResource) (provision.DeprovisionResponse, error) {
	if f.failWith != nil {
		return provision.DeprovisionResponse{}, f.failWith
	}
	return provision.DeprovisionResponse{Resource: res}, nil
}

// notifyRecorder is an observe.Listener that republishes every
// notification onto a channel, letting tests block on a specific
// transition instead of sleeping and polling.
type notifyRecorder struct {
	ch chan *transfer.TransferProcess
}

func newNotifyRecorder() *notifyRecorder {
	return &notifyRecorder{ch: make(chan *transfer.TransferProcess, 64)}
}

func (r *notifyRecorder) Changed(p *transfer.TransferProcess) {
	r.ch <- cloneProcess(p)
}
