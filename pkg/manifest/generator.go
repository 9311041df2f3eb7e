// Package manifest implements the ResourceManifestGenerator the
// scheduler consults from the INITIAL handler (spec §4.1): a
// destination-type keyed dispatch table, per the teacher's pattern of
// modeling registries as lookup tables rather than inheritance
// hierarchies (spec §9).
package manifest

import (
	"fmt"

	"github.com/connectorhq/transferproc/pkg/transfer"
	"github.com/google/uuid"
)

// GeneratorFunc produces the ResourceManifest for a given process.
type GeneratorFunc func(p *transfer.TransferProcess) (transfer.ResourceManifest, error)

// Generator is the ResourceManifestGenerator registry: one
// GeneratorFunc per destination type.
type Generator struct {
	generators map[string]GeneratorFunc
}

func NewGenerator() *Generator {
	return &Generator{generators: make(map[string]GeneratorFunc)}
}

// Register associates destinationType with a manifest-generating
// function. Registering the same type twice replaces the previous one.
func (g *Generator) Register(destinationType string, fn GeneratorFunc) {
	g.generators[destinationType] = fn
}

// GenerateResourceManifest resolves the generator for the process's
// destination type and invokes it. A process whose destination type
// has no registered generator produces an empty manifest rather than
// an error: spec §4.1 treats an empty manifest as a legitimate,
// fast-path case (skip straight to PROVISIONED).
func (g *Generator) GenerateResourceManifest(p *transfer.TransferProcess) (transfer.ResourceManifest, error) {
	fn, ok := g.generators[p.DataRequest.DestinationType]
	if !ok {
		return transfer.ResourceManifest{}, nil
	}
	return fn(p)
}

// SingleDefinitionGenerator is a GeneratorFunc factory for the common
// case: one ResourceDefinition per transfer, scoped to destinationType.
func SingleDefinitionGenerator(destinationType string) GeneratorFunc {
	return func(p *transfer.TransferProcess) (transfer.ResourceManifest, error) {
		if p.DataRequest.Id == "" {
			return transfer.ResourceManifest{}, fmt.Errorf("manifest: data request id must be set")
		}
		return transfer.ResourceManifest{
			Definitions: []transfer.ResourceDefinition{
				{
					Id:              uuid.NewString(),
					TransferId:      p.DataRequest.Id,
					DestinationType: destinationType,
				},
			},
		}, nil
	}
}
