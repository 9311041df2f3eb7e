package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/connectorhq/transferproc/internal/config"
	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

var (
	transferId       string
	connectorId      string
	streaming        bool
	managedResources bool
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Initiate a transfer process",
}

var consumeCmd = &cobra.Command{
	Use:   "consume <destination-key>",
	Short: "Start a consumer-side transfer for an S3 destination key",
	Args:  cobra.ExactArgs(1),
	RunE:  makeInitiateRunE(transfer.Consumer),
}

var provideCmd = &cobra.Command{
	Use:   "provide <destination-key>",
	Short: "Start a provider-side transfer for an S3 destination key",
	Args:  cobra.ExactArgs(1),
	RunE:  makeInitiateRunE(transfer.Provider),
}

func init() {
	rootCmd.AddCommand(transferCmd)
	transferCmd.AddCommand(consumeCmd, provideCmd)

	for _, c := range []*cobra.Command{consumeCmd, provideCmd} {
		c.Flags().StringVar(&transferId, "transfer-id", "", "transfer id (generated if empty)")
		c.Flags().StringVar(&connectorId, "connector-id", "", "peer connector id to dispatch the request to")
		c.Flags().BoolVar(&streaming, "streaming", false, "mark the transfer as non-finite (a consumer process moves to STREAMING instead of IN_PROGRESS; a provider process moves to IN_PROGRESS either way)")
		c.Flags().BoolVar(&managedResources, "managed-resources", true, "whether this module owns deprovisioning the destination resource")
	}
}

func makeInitiateRunE(t transfer.Type) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		destinationKey := args[0]

		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "config load failed")
		}
		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "config invalid")
		}

		w, err := newManager(ctx, cfg)
		if err != nil {
			return err
		}
		defer w.Close()

		if transferId == "" {
			transferId = uuid.NewString()
		}

		req := transfer.DataRequest{
			Id:               transferId,
			DestinationType:  s3DestinationType,
			TransferType:     transfer.TransferType{DestinationType: s3DestinationType, IsFinite: !streaming},
			ManagedResources: managedResources,
			ConnectorId:      connectorId,
			Protocol:         natsProtocol,
			DestinationKey:   destinationKey,
		}

		var processId string
		if t == transfer.Consumer {
			processId, err = w.manager.InitiateConsumerRequest(ctx, req)
		} else {
			processId, err = w.manager.InitiateProviderRequest(ctx, req)
		}
		if err != nil {
			return errors.Wrap(err, "initiate failed")
		}

		fmt.Printf("process %s created for transfer %s (%s)\n", processId, req.Id, t)
		fmt.Println("run `transferprocd serve` to advance it through the scheduler")
		return nil
	}
}
