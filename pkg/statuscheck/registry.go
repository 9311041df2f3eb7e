// Package statuscheck implements the StatusCheckerRegistry the
// scheduler consults from IN_PROGRESS/STREAMING (spec §4.3): a
// resource-type keyed dispatch table resolving to a completion
// predicate.
package statuscheck

import (
	"context"

	"github.com/connectorhq/transferproc/pkg/transfer"
)

// Checker decides whether a single provisioned resource's side of the
// transfer is done. A nil return from Resolve (no registered checker)
// is meaningful per spec §4.3 and handled by the caller, not here.
type Checker func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool

// Registry is the StatusCheckerRegistry.
type Registry struct {
	checkers map[string]Checker
}

func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register associates resourceType with a Checker.
func (r *Registry) Register(resourceType string, c Checker) {
	r.checkers[resourceType] = c
}

// Resolve returns the checker for resourceType, or nil if none is
// registered.
func (r *Registry) Resolve(resourceType string) Checker {
	return r.checkers[resourceType]
}

// S3ExistenceChecker returns a Checker that considers a destination
// resource complete once its marker/data object exists in the bucket.
// ctx is captured for use on every invocation; callers that need
// per-call cancellation should build a fresh checker per use instead.
func S3ExistenceChecker(ctx context.Context, exists func(ctx context.Context, key string) (bool, error), keyFor func(p *transfer.TransferProcess, r transfer.ProvisionedResource) string) Checker {
	return func(p *transfer.TransferProcess, r transfer.ProvisionedResource) bool {
		ok, err := exists(ctx, keyFor(p, r))
		if err != nil {
			return false
		}
		return ok
	}
}
