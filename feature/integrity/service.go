package integrity

import (
	"context"
	"errors"
	"time"

	"incus-sync/core/storage"
	"incus-sync/feature/hosts"
	"incus-sync/feature/integrity/checks"
	"incus-sync/feature/inventory/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrArchiveDisabled is returned by bucket checks when no object storage is configured.
var ErrArchiveDisabled = errors.New("report archive is disabled")

// connectivityWorkers bounds concurrent handshakes.
const connectivityWorkers = 4

// Service handles integrity checks.
type Service struct {
	client storage.Client
	bucket string
	region string
	logger *zap.Logger
	db     *gorm.DB
	hosts  *hosts.Service
}

// NewService creates a new integrity service. client may be nil when the
// report archive is disabled.
func NewService(client storage.Client, storageCfg storage.Config, logger *zap.Logger, db *gorm.DB, hostsSvc *hosts.Service) *Service {
	return &Service{
		client: client,
		bucket: storageCfg.Bucket,
		region: storageCfg.Region,
		logger: logger,
		db:     db,
		hosts:  hostsSvc,
	}
}

// CheckSchema compares the live schema with the inventory and host models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, append(models.All(), &hosts.Host{})...)
}

// CheckCredentials inspects the connection material of every registered host.
func (s *Service) CheckCredentials(ctx context.Context) ([]checks.CredentialReport, error) {
	list, err := s.hosts.All(ctx)
	if err != nil {
		return nil, err
	}
	return checks.CheckCredentials(list, time.Now()), nil
}

// CheckConnectivity runs the handshake against every enabled host.
func (s *Service) CheckConnectivity(ctx context.Context) ([]hosts.TestResult, error) {
	list, err := s.hosts.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]hosts.TestResult, len(list))
	g := new(errgroup.Group)
	g.SetLimit(connectivityWorkers)
	for i, h := range list {
		g.Go(func() error {
			results[i] = s.hosts.Test(ctx, h)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// CheckBucket reports on the report archive bucket.
func (s *Service) CheckBucket(ctx context.Context) (*checks.BucketReport, error) {
	if s.client == nil {
		return nil, ErrArchiveDisabled
	}
	return checks.CheckBucket(ctx, s.client, s.bucket)
}

// FixBucket creates the report archive bucket if it is missing.
func (s *Service) FixBucket(ctx context.Context) error {
	if s.client == nil {
		return ErrArchiveDisabled
	}
	return checks.FixBucket(ctx, s.client, s.bucket, s.region, s.logger)
}
