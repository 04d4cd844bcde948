package checks

import (
	"context"
	"fmt"

	"incus-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ReportPrefix is where archived run reports live in the bucket.
const ReportPrefix = "runs/"

// BucketReport describes the state of the report archive bucket.
type BucketReport struct {
	Bucket  string `json:"bucket"`
	Exists  bool   `json:"exists"`
	Reports int    `json:"reports"`
}

// CheckBucket reports whether the archive bucket exists and how many run
// reports it holds.
func CheckBucket(ctx context.Context, client storage.Client, bucket string) (*BucketReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	report := &BucketReport{Bucket: bucket, Exists: exists}
	if !exists {
		return report, nil
	}

	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: ReportPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", obj.Err)
		}
		report.Reports++
	}
	return report, nil
}

// FixBucket creates the archive bucket when it is missing.
func FixBucket(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) error {
	created, err := storage.EnsureBucket(ctx, client, bucket, region)
	if err != nil {
		logger.Error("Failed to create report bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	if created {
		logger.Info("Created missing report bucket", zap.String("bucket", bucket))
	}
	return nil
}
