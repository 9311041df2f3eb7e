package commands

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/connectorhq/transferproc/internal/config"
	"github.com/connectorhq/transferproc/pkg/dataflow"
	"github.com/connectorhq/transferproc/pkg/dispatch"
	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/manifest"
	"github.com/connectorhq/transferproc/pkg/metrics"
	"github.com/connectorhq/transferproc/pkg/monitor"
	"github.com/connectorhq/transferproc/pkg/observe"
	"github.com/connectorhq/transferproc/pkg/provision"
	"github.com/connectorhq/transferproc/pkg/retry"
	"github.com/connectorhq/transferproc/pkg/security"
	"github.com/connectorhq/transferproc/pkg/statuscheck"
	"github.com/connectorhq/transferproc/pkg/storage"
	"github.com/connectorhq/transferproc/pkg/store"
	"github.com/connectorhq/transferproc/pkg/transfer"
	"github.com/connectorhq/transferproc/pkg/transfermanager"
)

// s3DestinationType is the only destination type this build wires up.
// Additional destination types are added by registering another
// Provisioner/Initiator/Checker triple under a new key, not by
// changing the manager.
const s3DestinationType = "s3"

const natsProtocol = "nats"

// wiring bundles everything newManager assembles so callers can close
// it cleanly regardless of which command they're running.
type wiring struct {
	manager        *transfermanager.Manager
	provisionMgr   *provision.Manager
	registry       *prometheus.Registry
	store          *store.SQLStore
	dispatcher     *dispatch.NatsDispatcher
	provisioner    *provision.S3Provisioner
}

func (w *wiring) Close() {
	if w.dispatcher != nil {
		w.dispatcher.Close()
	}
	if w.provisioner != nil {
		w.provisioner.Close()
	}
	if w.store != nil {
		w.store.Close()
	}
}

// newManager wires every collaborator the scheduler consumes against
// the S3 destination type and a NATS-based remote dispatcher, then
// builds the Manager. It is the single assembly point every command
// that needs a running manager goes through.
func newManager(ctx context.Context, cfg *config.Config) (*wiring, error) {
	if err := ensureDirectories(cfg.StorePath, cfg.FSMDBPath); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, errors.Wrap(err, "store init failed")
	}

	s3Client, err := storage.NewClient(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		st.Close()
		return nil, errors.Wrap(err, "S3 client init failed")
	}

	validator := security.NewValidator(cfg.MaxDestinationKeyLength)

	s3Provisioner, err := provision.NewS3Provisioner(ctx, s3Client, validator, s3DestinationType, cfg.FSMDBPath, cfg.FSMMaxRetries)
	if err != nil {
		st.Close()
		return nil, errors.Wrap(err, "S3 provisioner init failed")
	}

	pm := provision.NewManager()
	pm.Register(s3DestinationType, s3Provisioner)

	dfm := dataflow.NewManager()
	dfm.Register(s3DestinationType, func(p *transfer.TransferProcess) dataflow.Result {
		if err := s3Client.HeadBucket(ctx); err != nil {
			return dataflow.Failure(err.Error())
		}
		return dataflow.Success(s3Client.Bucket() + "/" + p.DataRequest.DestinationKey)
	})

	natsDispatcher, err := dispatch.NewNatsDispatcher(cfg.NatsURL, time.Duration(cfg.NatsTimeout)*time.Millisecond)
	if err != nil {
		s3Provisioner.Close()
		st.Close()
		return nil, errors.Wrap(err, "NATS dispatcher init failed")
	}

	dr := dispatch.NewRegistry()
	dr.Register(natsProtocol, natsDispatcher)

	mg := manifest.NewGenerator()
	mg.Register(s3DestinationType, manifest.SingleDefinitionGenerator(s3DestinationType))

	scr := statuscheck.NewRegistry()
	scr.Register(s3DestinationType, statuscheck.S3ExistenceChecker(ctx, s3Client.Exists, func(p *transfer.TransferProcess, r transfer.ProvisionedResource) string {
		return p.DataRequest.DestinationKey
	}))

	registry := prometheus.NewRegistry()
	met := metrics.New(registry)
	mon := monitor.New(nil)
	obs := observe.New(mon)

	manager, err := transfermanager.NewBuilder().
		ProvisionManager(pm).
		DataFlowManager(dfm).
		DispatcherRegistry(dr).
		ManifestGenerator(mg).
		StatusCheckerRegistry(scr).
		Store(st).
		Observable(obs).
		Monitor(mon).
		Metrics(met).
		WaitStrategy(retry.NewExponentialWaitStrategy(
			time.Duration(cfg.PollIntervalMs)*time.Millisecond,
			time.Duration(cfg.MaxPollMs)*time.Millisecond,
		)).
		BatchSize(cfg.BatchSize).
		Build()
	if err != nil {
		natsDispatcher.Close()
		s3Provisioner.Close()
		st.Close()
		return nil, errors.Wrap(err, "manager build failed")
	}

	return &wiring{
		manager:      manager,
		provisionMgr: pm,
		registry:     registry,
		store:        st,
		dispatcher:   natsDispatcher,
		provisioner:  s3Provisioner,
	}, nil
}
