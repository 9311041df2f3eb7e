package transfermanager

import (
	"testing"

	"github.com/connectorhq/transferproc/pkg/statuscheck"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

// TestCheckComplete exercises the status-checker matrix from spec §4.3:
// managed vs. unmanaged resources, present vs. missing checkers, and
// the destination-resource requirement for the unmanaged case.
func TestCheckComplete(t *testing.T) {
	destResource := transfer.ProvisionedResource{Id: "r1", ResourceType: "s3", IsDestination: true}
	nonDestResource := transfer.ProvisionedResource{Id: "r2", ResourceType: "vault-secret", IsDestination: false}

	tests := []struct {
		name      string
		managed   bool
		resources []transfer.ProvisionedResource
		checkers  map[string]statuscheck.Checker
		wantDone  bool
		wantOK    bool
	}{
		{
			name:      "no resources yet",
			managed:   true,
			resources: nil,
			wantDone:  false,
			wantOK:    false,
		},
		{
			name:      "managed, checker complete",
			managed:   true,
			resources: []transfer.ProvisionedResource{destResource},
			checkers:  map[string]statuscheck.Checker{"s3": func(*transfer.TransferProcess, transfer.ProvisionedResource) bool { return true }},
			wantDone:  true,
			wantOK:    true,
		},
		{
			name:      "managed, checker incomplete",
			managed:   true,
			resources: []transfer.ProvisionedResource{destResource},
			checkers:  map[string]statuscheck.Checker{"s3": func(*transfer.TransferProcess, transfer.ProvisionedResource) bool { return false }},
			wantDone:  false,
			wantOK:    true,
		},
		{
			name:      "managed, missing checker waits forever",
			managed:   true,
			resources: []transfer.ProvisionedResource{destResource},
			checkers:  nil,
			wantDone:  false,
			wantOK:    false,
		},
		{
			name:      "unmanaged, missing checker treated as done",
			managed:   false,
			resources: []transfer.ProvisionedResource{destResource},
			checkers:  nil,
			wantDone:  true,
			wantOK:    true,
		},
		{
			name:      "unmanaged, no destination resource waits",
			managed:   false,
			resources: []transfer.ProvisionedResource{nonDestResource},
			checkers:  nil,
			wantDone:  false,
			wantOK:    false,
		},
		{
			name:    "unmanaged, mixed resources: destination checker gates completion",
			managed: false,
			resources: []transfer.ProvisionedResource{
				destResource,
				nonDestResource,
			},
			checkers: map[string]statuscheck.Checker{"s3": func(*transfer.TransferProcess, transfer.ProvisionedResource) bool { return false }},
			wantDone: false,
			wantOK:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			registry := statuscheck.NewRegistry()
			for resourceType, checker := range tc.checkers {
				registry.Register(resourceType, checker)
			}

			m := &Manager{statusCheckerRegistry: registry}
			p := &transfer.TransferProcess{
				DataRequest:            transfer.DataRequest{ManagedResources: tc.managed},
				ProvisionedResourceSet: transfer.ProvisionedResourceSet{Resources: tc.resources},
			}

			done, ok := m.checkComplete(p)
			if done != tc.wantDone || ok != tc.wantOK {
				t.Fatalf("checkComplete() = (%v, %v), want (%v, %v)", done, ok, tc.wantDone, tc.wantOK)
			}
		})
	}
}
