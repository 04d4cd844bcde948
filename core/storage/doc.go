// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface. incus-sync uses it to
// archive one JSON report per sync run, so that results of scheduled runs can be
// inspected after the fact. Both AWS S3 and self-hosted MinIO are supported.
//
// The Client interface keeps storage interactions mockable (see core/storage/mocks).
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	created, err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
