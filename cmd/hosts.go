package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"incus-sync/feature/hosts"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	newHost          hosts.Host
	defaultClusterID uint
)

// hostsCmd is the parent command for the host registry.
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage the registered Incus hosts",
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered hosts",
	Args:  cobra.NoArgs,
	RunE: withHosts(func(ctx context.Context, svc *hosts.Service, _ []string) error {
		list, err := svc.All(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No hosts registered.")
			return nil
		}
		for _, h := range list {
			state := "enabled"
			if !h.Enabled {
				state = "disabled"
			}
			fmt.Printf("%-24s %-6s %-8s %s\n", h.Name, h.ConnectionType, state, h.Address())
		}
		return nil
	}),
}

var hostsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a host",
	Long: `Registers an Incus host reached over the local unix socket or over HTTPS
with a client certificate. Certificate flags take file paths; the files
themselves are never copied.

Examples:
  hosts add node-a --type unix
  hosts add node-b --type https --url https://10.0.0.2:8443 \
    --client-cert /etc/incus-sync/client.crt --client-key /etc/incus-sync/client.key`,
	Args: cobra.ExactArgs(1),
	RunE: withHosts(func(ctx context.Context, svc *hosts.Service, args []string) error {
		h := newHost
		h.Name = args[0]
		if defaultClusterID > 0 {
			id := defaultClusterID
			h.DefaultClusterID = &id
		}
		if err := svc.Create(ctx, &h); err != nil {
			var verr *hosts.ValidationError
			if errors.As(err, &verr) {
				for _, f := range verr.Fields {
					fmt.Printf("  %s: %s\n", f.Field, f.Message)
				}
			}
			return err
		}
		fmt.Printf("Host %s registered.\n", h.Name)
		return nil
	}),
}

var hostsTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Connect to a host and run the API handshake",
	Args:  cobra.ExactArgs(1),
	RunE: withHosts(func(ctx context.Context, svc *hosts.Service, args []string) error {
		h, err := svc.Get(ctx, args[0])
		if err != nil {
			return err
		}
		res := svc.Test(ctx, *h)
		if !res.OK {
			return fmt.Errorf("host %s at %s: %s", res.Host, res.Address, res.Error)
		}
		fmt.Printf("Host %s at %s: OK\n", res.Host, res.Address)
		fmt.Printf("  Server:    %s (Incus %s, API %s)\n", res.ServerName, res.ServerVersion, res.APIVersion)
		fmt.Printf("  Clustered: %t\n", res.Clustered)
		return nil
	}),
}

var hostsEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Include a host in sync runs",
	Args:  cobra.ExactArgs(1),
	RunE: withHosts(func(ctx context.Context, svc *hosts.Service, args []string) error {
		return svc.SetEnabled(ctx, args[0], true)
	}),
}

var hostsDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Exclude a host from sync runs",
	Args:  cobra.ExactArgs(1),
	RunE: withHosts(func(ctx context.Context, svc *hosts.Service, args []string) error {
		return svc.SetEnabled(ctx, args[0], false)
	}),
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a host from the registry",
	Long:  `Removes a host from the registry. Inventory records synchronized from it are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: withHosts(func(ctx context.Context, svc *hosts.Service, args []string) error {
		return svc.Delete(ctx, args[0])
	}),
}

// withHosts wires the host registry for a subcommand.
func withHosts(fn func(ctx context.Context, svc *hosts.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		timeout := a.cfg.Sync.Timeout() + 5*time.Second
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := fn(ctx, a.hosts, args); err != nil {
			return err
		}
		a.logger.Debug("Host registry command completed", zap.String("command", cmd.Name()), zap.Strings("args", args))
		return nil
	}
}

func init() {
	f := hostsAddCmd.Flags()
	f.StringVar(&newHost.ConnectionType, "type", "unix", "Connection type (unix, https)")
	f.StringVar(&newHost.SocketPath, "socket", "", "Unix socket path (default /var/lib/incus/unix.socket)")
	f.StringVar(&newHost.URL, "url", "", "HTTPS endpoint, e.g. https://10.0.0.2:8443")
	f.StringVar(&newHost.ClientCertPath, "client-cert", "", "Client certificate file")
	f.StringVar(&newHost.ClientKeyPath, "client-key", "", "Client key file")
	f.StringVar(&newHost.CACertPath, "ca-cert", "", "CA certificate file used to verify the server")
	f.BoolVar(&newHost.VerifyTLS, "verify-tls", true, "Verify the server certificate")
	f.StringVar(&newHost.Project, "project", "", "Incus project (default project when empty)")
	f.StringVar(&newHost.ClusterName, "cluster-name", "", "Inventory cluster name override for clustered hosts")
	f.StringVar(&newHost.Description, "description", "", "Free text description")
	f.BoolVar(&newHost.Enabled, "enabled", true, "Include the host in sync runs")
	f.UintVar(&defaultClusterID, "default-cluster", 0, "Inventory cluster ID for a standalone host")

	hostsCmd.AddCommand(hostsListCmd, hostsAddCmd, hostsTestCmd, hostsEnableCmd, hostsDisableCmd, hostsRemoveCmd)
	RootCmd.AddCommand(hostsCmd)
}
