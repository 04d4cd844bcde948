// Package config provides configuration management for incus-sync.
//
// Values come from environment variables, optionally seeded from a .env file,
// with defaults declared on the struct fields through `default:"..."` tags.
// Nested keys map to upper-case variables joined by underscores, for example
// sync.concurrency is read from SYNC_CONCURRENCY.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key, metrics toggle
//   - Database: inventory database connection (mysql or sqlite)
//   - Storage: S3/MinIO settings for the sync report archive
//   - Log: logging level and format
//   - Sync: host concurrency, timeouts, child pruning, report archiving
//
// Hypervisor hosts are not configured here; they live in the incus_hosts table
// and are managed with the hosts command.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.Concurrency)
package config
