package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/connectorhq/transferproc/pkg/transfer"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "transferproc.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestProcess(transferId string) *transfer.TransferProcess {
	p := transfer.New(transfer.Consumer, transfer.DataRequest{
		Id:               transferId,
		DestinationType:  "s3",
		TransferType:     transfer.TransferType{DestinationType: "s3", IsFinite: true},
		ManagedResources: true,
	})
	p.ResourceManifest = transfer.ResourceManifest{Definitions: []transfer.ResourceDefinition{
		{Id: "def-1", TransferId: transferId, DestinationType: "s3"},
	}}
	return p
}

func TestSQLStore_CreateAndFind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newTestProcess("t1")
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := s.Find(ctx, p.Id)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil {
		t.Fatalf("expected to find process %s", p.Id)
	}
	if found.Id != p.Id || found.Type != p.Type || found.State != p.State {
		t.Errorf("round-trip mismatch: got %+v, want %+v", found, p)
	}
	if len(found.ResourceManifest.Definitions) != 1 || found.ResourceManifest.Definitions[0].Id != "def-1" {
		t.Errorf("resource manifest did not round-trip: got %+v", found.ResourceManifest)
	}

	pid, err := s.ProcessIdForTransferId(ctx, "t1")
	if err != nil {
		t.Fatalf("processIdForTransferId failed: %v", err)
	}
	if pid != p.Id {
		t.Errorf("processIdForTransferId: got %q, want %q", pid, p.Id)
	}
}

func TestSQLStore_FindMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)

	found, err := s.Find(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found != nil {
		t.Errorf("expected nil for missing process, got %+v", found)
	}
}

func TestSQLStore_CreateDuplicateIdReturnsErrDuplicateProcess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newTestProcess("t1")
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	dup := newTestProcess("t2")
	dup.Id = p.Id // same process id, different transfer id
	err := s.Create(ctx, dup)
	if err == nil {
		t.Fatalf("expected error creating duplicate process id, got nil")
	}

	var dupErr *ErrDuplicateProcess
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected *ErrDuplicateProcess, got %T: %v", err, err)
	}
	if dupErr.Id != p.Id {
		t.Errorf("ErrDuplicateProcess.Id: got %q, want %q", dupErr.Id, p.Id)
	}
}

func TestSQLStore_Update(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newTestProcess("t1")
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	p.TransitionTo(transfer.Provisioning)
	p.ProvisionedResourceSet.Add(transfer.ProvisionedResource{
		Id:                   "res-1",
		ResourceDefinitionId: "def-1",
		ResourceType:         "s3-object",
		IsDestination:        true,
	})
	if err := s.Update(ctx, p); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	found, err := s.Find(ctx, p.Id)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.State != transfer.Provisioning {
		t.Errorf("state not updated: got %s, want %s", found.State, transfer.Provisioning)
	}
	if !found.ProvisionedResourceSet.HasDestinationResource() {
		t.Errorf("provisioned resource set did not round-trip: got %+v", found.ProvisionedResourceSet)
	}
}

func TestSQLStore_UpdateUnknownProcessFails(t *testing.T) {
	s := openTestStore(t)

	p := newTestProcess("t1")
	p.Id = "never-created"
	if err := s.Update(context.Background(), p); err == nil {
		t.Fatalf("expected error updating unknown process, got nil")
	}
}

func TestSQLStore_NextForState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, transferId := range []string{"t1", "t2", "t3"} {
		p := newTestProcess(transferId)
		if i == 2 {
			p.TransitionTo(transfer.Provisioning)
		}
		if err := s.Create(ctx, p); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	initial, err := s.NextForState(ctx, transfer.Initial, 10)
	if err != nil {
		t.Fatalf("nextForState failed: %v", err)
	}
	if len(initial) != 2 {
		t.Errorf("expected 2 processes in INITIAL, got %d", len(initial))
	}

	limited, err := s.NextForState(ctx, transfer.Initial, 1)
	if err != nil {
		t.Fatalf("nextForState failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected batchSize to cap results at 1, got %d", len(limited))
	}

	provisioning, err := s.NextForState(ctx, transfer.Provisioning, 10)
	if err != nil {
		t.Fatalf("nextForState failed: %v", err)
	}
	if len(provisioning) != 1 {
		t.Errorf("expected 1 process in PROVISIONING, got %d", len(provisioning))
	}
}

// TestSQLStore_WithTransactionReFetch exercises the read-modify-write
// path an async handler callback performs (spec §5): find the process
// inside the transaction, mutate it, and commit, without ever going
// through the top-level Update method.
func TestSQLStore_WithTransactionReFetch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newTestProcess("t1")
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := s.WithTransaction(ctx, func(tx TransactionContext) error {
		proc, err := tx.Find(p.Id)
		if err != nil {
			return err
		}
		if proc == nil {
			t.Fatalf("expected to find process %s inside transaction", p.Id)
		}
		proc.TransitionTo(transfer.Provisioned)
		return tx.Update(proc)
	})
	if err != nil {
		t.Fatalf("withTransaction failed: %v", err)
	}

	found, err := s.Find(ctx, p.Id)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.State != transfer.Provisioned {
		t.Errorf("state not committed by transaction: got %s, want %s", found.State, transfer.Provisioned)
	}
}

// TestSQLStore_WithTransactionRollsBackOnError verifies a failing
// callback's writes are not committed.
func TestSQLStore_WithTransactionRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newTestProcess("t1")
	if err := s.Create(ctx, p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(tx TransactionContext) error {
		proc, err := tx.Find(p.Id)
		if err != nil {
			return err
		}
		proc.TransitionTo(transfer.Provisioned)
		if err := tx.Update(proc); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got %v", err)
	}

	found, err := s.Find(ctx, p.Id)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.State != transfer.Initial {
		t.Errorf("expected rollback to leave state INITIAL, got %s", found.State)
	}
}
