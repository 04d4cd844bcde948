package instancesync

import "time"

// Config holds the reconciliation engine settings.
type Config struct {
	// Concurrency bounds how many hosts are synchronized at once.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// DetailConcurrency bounds parallel instance detail calls per host.
	DetailConcurrency int `mapstructure:"detail_concurrency" default:"8"`
	// TimeoutSeconds is the per-request timeout towards Incus.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PruneChildren deletes interfaces and disks no longer reported by Incus.
	PruneChildren bool `mapstructure:"prune_children" default:"false"`
	// ArchiveReports uploads every run result to object storage.
	ArchiveReports bool `mapstructure:"archive_reports" default:"false"`
	// ReportRetentionDays prunes archived reports older than this; 0 keeps them.
	ReportRetentionDays int `mapstructure:"report_retention_days" default:"30"`
	// ConflictRetries bounds re-reads after a cluster creation conflict.
	ConflictRetries int `mapstructure:"conflict_retries" default:"3"`
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
