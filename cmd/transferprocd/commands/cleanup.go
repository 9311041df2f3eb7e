package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/connectorhq/transferproc/internal/config"
	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/transfer"
)

var cleanupOrphaned bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Best-effort deprovisioning of resources left behind by failed transfers",
	Long: `A transfer that lands in ERROR mid-provisioning or mid-teardown may
leave destination resources allocated with no process left to tear them
down, since ERROR is an absorbing state the scheduler never revisits.
cleanup --orphaned finds every ERROR process with a non-empty
provisioned resource set and re-attempts deprovisioning for each.`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupOrphaned, "orphaned", false, "deprovision resources left behind by ERROR-state processes")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if !cleanupOrphaned {
		return fmt.Errorf("must specify --orphaned")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	w, err := newManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer w.Close()

	errored, err := w.store.NextForState(ctx, transfer.Error, 1000)
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	fmt.Printf("scanning %d ERROR-state processes for orphaned resources...\n", len(errored))

	var cleaned, skipped, failed int
	for _, p := range errored {
		if p.ProvisionedResourceSet.Empty() {
			skipped++
			continue
		}

		outcome := <-w.provisionMgr.Deprovision(ctx, p)
		if outcome.Err != nil {
			fmt.Printf("failed to clean %s: %v\n", p.Id, outcome.Err)
			failed++
			continue
		}

		fmt.Printf("cleaned: %s (%d resource(s))\n", p.Id, len(outcome.Responses))
		cleaned++
	}

	fmt.Printf("done: %d cleaned, %d skipped (no resources), %d failed\n", cleaned, skipped, failed)
	return nil
}
