package cmd

import (
	"context"
	"errors"
	"fmt"

	"incus-sync/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the sync deployment",
	Long:  `Checks the inventory schema, host credentials, host connectivity and the report archive bucket.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			cmd.Help()
			return
		}
		runIntegrityChecks(true, true, true, true)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the inventory database schema",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(true, false, false, false)
	},
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Check host sockets and certificate files",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(false, true, false, false)
	},
}

var connectivityCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Run the API handshake against every enabled host",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(false, false, true, false)
	},
}

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Check and fix the report archive bucket",
	Run: func(cmd *cobra.Command, args []string) {
		runIntegrityChecks(false, false, false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(schemaCmd, credentialsCmd, connectivityCmd, bucketCmd)

	bucketCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket if missing")
}

func runIntegrityChecks(runSchema, runCredentials, runHosts, runBucket bool) {
	a, err := bootstrap()
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		return
	}
	defer a.close()

	ctx := context.Background()
	logg := a.logger
	svc := a.integrity

	if runSchema {
		logg.Info("Checking inventory schema...")
		report, err := svc.CheckSchema()
		switch {
		case err != nil:
			logg.Error("Schema check failed", zap.Error(err))
		case report.Matched:
			logg.Info("Schema matches the inventory models.", zap.String("dialect", report.Dialect))
		default:
			logg.Warn("Schema mismatches found", zap.String("dialect", report.Dialect))
			for table, tblReport := range report.Tables {
				if tblReport.Status == "missing" {
					logg.Warn("Missing Table", zap.String("table", table))
				}
				if len(tblReport.MissingColumns) > 0 {
					logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tblReport.MissingColumns))
				}
				if len(tblReport.TypeMismatches) > 0 {
					logg.Warn("Type Mismatches", zap.String("table", table), zap.Strings("mismatches", tblReport.TypeMismatches))
				}
			}
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
			logg.Info("Run `migrate` to create missing tables and columns.")
		}
	}

	if runCredentials {
		logg.Info("Checking host credentials...")
		reports, err := svc.CheckCredentials(ctx)
		if err != nil {
			logg.Error("Credentials check failed", zap.Error(err))
		}
		for _, r := range reports {
			switch r.Status {
			case "ok":
				logg.Info("Credentials are in order.", zap.String("host", r.Host))
			case "warning":
				logg.Warn("Credentials need attention", zap.String("host", r.Host), zap.Strings("problems", r.Problems))
			default:
				logg.Error("Credentials are unusable", zap.String("host", r.Host), zap.Strings("problems", r.Problems))
			}
		}
	}

	if runHosts {
		logg.Info("Checking host connectivity...")
		results, err := svc.CheckConnectivity(ctx)
		if err != nil {
			logg.Error("Connectivity check failed", zap.Error(err))
		}
		for _, r := range results {
			if r.OK {
				logg.Info("Host reachable",
					zap.String("host", r.Host),
					zap.String("server_name", r.ServerName),
					zap.String("server_version", r.ServerVersion),
					zap.Bool("clustered", r.Clustered),
				)
			} else {
				logg.Error("Host unreachable", zap.String("host", r.Host), zap.String("address", r.Address), zap.String("error", r.Error))
			}
		}
	}

	if runBucket {
		logg.Info("Checking report archive bucket...")
		report, err := svc.CheckBucket(ctx)
		switch {
		case errors.Is(err, integrity.ErrArchiveDisabled):
			logg.Info("Report archive is disabled (sync.archive_reports=false).")
		case err != nil:
			logg.Error("Bucket check failed", zap.Error(err))
		case report.Exists:
			logg.Info("Report bucket is present.", zap.String("bucket", report.Bucket), zap.Int("reports", report.Reports))
		case fixFlag:
			logg.Info("Creating missing report bucket...")
			if err := svc.FixBucket(ctx); err != nil {
				logg.Error("Failed to create bucket", zap.Error(err))
			} else {
				logg.Info("Report bucket created.", zap.String("bucket", report.Bucket))
			}
		default:
			logg.Warn("Report bucket is missing", zap.String("bucket", report.Bucket))
			logg.Info("Run with --fix to create it.")
		}
	}
}
