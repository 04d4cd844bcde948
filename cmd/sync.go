package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"incus-sync/feature/instancesync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncJSON   bool
	syncPrune  bool
	syncDryRun bool
	yesConfirm bool
)

// syncCmd runs one sync pass.
var syncCmd = &cobra.Command{
	Use:   "sync [host|all]",
	Short: "Synchronize Incus instances into the inventory",
	Long: `Runs one sync pass over a single host or over every enabled host.

Examples:
  # Sync every enabled host
  sync

  # Sync one host and print the run result as JSON
  sync node-a --json

  # Report what would change without writing
  sync all --dry-run

  # Also delete interfaces and disks Incus no longer reports
  sync all --prune --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the run result as JSON")
	syncCmd.Flags().BoolVar(&syncPrune, "prune", false, "Delete interfaces and disks no longer reported by Incus")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Compute changes without writing to the inventory")
	syncCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) == 1 {
		target = args[0]
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.sync.Options(syncPrune, syncDryRun)
	if opts.Prune && !opts.DryRun && !confirmDestructiveAction() {
		a.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Starting sync", zap.String("target", target), zap.Bool("prune", opts.Prune), zap.Bool("dry_run", opts.DryRun))
	res, err := a.sync.Run(ctx, target, opts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if syncJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode run result: %w", err)
		}
	} else {
		printRunResult(res)
	}

	if res.Summary.Status == instancesync.StatusFailed {
		return fmt.Errorf("every host failed")
	}
	return nil
}

// printRunResult prints the per-host counters of a run.
func printRunResult(res *instancesync.RunResult) {
	s := res.Summary
	fmt.Printf("\n=== Sync Run %s ===\n", res.RunID)
	if res.DryRun {
		fmt.Println("Dry run: no changes were written")
	}
	for _, h := range res.Hosts {
		fmt.Printf("\n%s (%s)\n", h.Host, h.State)
		if h.Cluster != "" {
			fmt.Printf("  Cluster: %s\n", h.Cluster)
		}
		fmt.Printf("  Instances:    %s\n", formatCounts(h.Instances))
		fmt.Printf("  Interfaces:   %s\n", formatCounts(h.Interfaces))
		fmt.Printf("  IP Addresses: %s\n", formatCounts(h.IPAddresses))
		fmt.Printf("  Disks:        %s\n", formatCounts(h.Disks))
		for _, e := range h.Errors {
			if e.Instance != "" {
				fmt.Printf("  ! %s [%s]: %s\n", e.Instance, e.Kind, e.Message)
			} else {
				fmt.Printf("  ! [%s]: %s\n", e.Kind, e.Message)
			}
		}
	}
	fmt.Printf("\nStatus: %s (%d/%d hosts done, %d errors)\n", s.Status, s.HostsDone, s.Hosts, s.Errors)
	fmt.Printf("Execution Time: %s\n", res.Elapsed.String())
}

func formatCounts(c instancesync.Counts) string {
	return fmt.Sprintf("%d created, %d updated, %d unchanged, %d removed, %d failed",
		c.Created, c.Updated, c.Unchanged, c.Removed, c.Failed)
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
