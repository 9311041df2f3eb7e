package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connectorhq/transferproc/internal/config"
	"github.com/connectorhq/transferproc/pkg/errors"
)

var statusCmd = &cobra.Command{
	Use:   "status <process-id>",
	Short: "Show one transfer process's current state and resources",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	processId := args[0]

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	w, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	p, err := w.store.Find(ctx, processId)
	if err != nil {
		return errors.Wrap(err, "find failed")
	}
	if p == nil {
		return fmt.Errorf("no such process: %s", processId)
	}

	fmt.Printf("id:            %s\n", p.Id)
	fmt.Printf("type:          %s\n", p.Type)
	fmt.Printf("state:         %s (transitions so far: %d)\n", p.State, p.StateCount)
	fmt.Printf("transfer id:   %s\n", p.DataRequest.Id)
	fmt.Printf("destination:   %s\n", p.DataRequest.DestinationType)
	if p.ErrorDetail != "" {
		fmt.Printf("error:         %s\n", p.ErrorDetail)
	}

	fmt.Printf("resources:     %d\n", len(p.ProvisionedResourceSet.Resources))
	for _, r := range p.ProvisionedResourceSet.Resources {
		dest := ""
		if r.IsDestination {
			dest = " (destination)"
		}
		fmt.Printf("  - %s [%s]%s\n", r.Id, r.ResourceType, dest)
	}

	return nil
}
