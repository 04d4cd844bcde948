package instancesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"incus-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const reportPrefix = "runs/"

// ReportArchive stores run results as JSON objects in a bucket, under
// runs/YYYY/MM/DD/<run id>.json.
type ReportArchive struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewReportArchive creates an archive on bucket.
func NewReportArchive(client storage.Client, bucket string, logger *zap.Logger) *ReportArchive {
	return &ReportArchive{client: client, bucket: bucket, logger: logger}
}

// ReportKey returns the object name of a run.
func ReportKey(res *RunResult) string {
	return fmt.Sprintf("%s%s/%s.json", reportPrefix, res.StartedAt.UTC().Format("2006/01/02"), res.RunID)
}

// Save uploads res and returns its object name.
func (a *ReportArchive) Save(ctx context.Context, res *RunResult) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run result: %w", err)
	}
	key := ReportKey(res)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}
	a.logger.Info("Sync report archived", zap.String("bucket", a.bucket), zap.String("key", key))
	return key, nil
}

// Get downloads the report stored under key.
func (a *ReportArchive) Get(ctx context.Context, key string) (*RunResult, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", key, err)
	}
	defer obj.Close()

	var res RunResult
	if err := json.NewDecoder(obj).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return &res, nil
}

// ReportInfo describes one archived report.
type ReportInfo struct {
	Key          string    `json:"key"`
	RunID        string    `json:"run_id"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// List returns the archived reports, newest first.
func (a *ReportArchive) List(ctx context.Context) ([]ReportInfo, error) {
	var out []ReportInfo
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: reportPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		out = append(out, ReportInfo{
			Key:          obj.Key,
			RunID:        strings.TrimSuffix(path.Base(obj.Key), ".json"),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out, nil
}

// Prune deletes reports last modified before cutoff and returns how many
// were removed.
func (a *ReportArchive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	reports, err := a.List(ctx)
	if err != nil {
		return 0, err
	}

	var stale []string
	for _, r := range reports {
		if r.LastModified.Before(cutoff) {
			stale = append(stale, r.Key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	objects := make(chan minio.ObjectInfo, len(stale))
	for _, key := range stale {
		objects <- minio.ObjectInfo{Key: key}
	}
	close(objects)

	var failed []string
	for rerr := range a.client.RemoveObjects(ctx, a.bucket, objects, minio.RemoveObjectsOptions{}) {
		failed = append(failed, rerr.ObjectName)
	}
	if len(failed) > 0 {
		return 0, fmt.Errorf("failed to remove %d reports: %s", len(failed), strings.Join(failed, ", "))
	}
	a.logger.Info("Old sync reports pruned", zap.Int("count", len(stale)), zap.Time("cutoff", cutoff))
	return len(stale), nil
}
