package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connectorhq/transferproc/internal/config"
	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

var listAllStates = []transfer.State{
	transfer.Initial, transfer.Provisioning, transfer.Provisioned,
	transfer.Requesting, transfer.Requested, transfer.InProgress,
	transfer.Streaming, transfer.Completed, transfer.Deprovisioning,
	transfer.Deprovisioned, transfer.Ended, transfer.Error,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transfer processes across every state",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := ensureDirectories(cfg.StorePath, ""); err != nil {
		return err
	}

	w, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	var total int
	fmt.Printf("%-36s %-10s %-14s %-30s\n", "ID", "TYPE", "STATE", "TRANSFER ID")
	fmt.Println("-------------------------------------------------------------------------------------")

	for _, state := range listAllStates {
		processes, err := w.store.NextForState(ctx, state, 1000)
		if err != nil {
			return errors.Wrap(err, "list failed")
		}
		for _, p := range processes {
			fmt.Printf("%-36s %-10s %-14s %-30s\n", p.Id, p.Type, p.State, p.DataRequest.Id)
			total++
		}
	}

	if total == 0 {
		fmt.Println("No transfer processes found")
	}
	return nil
}
