package integrity

import (
	"context"
	"errors"
	"testing"
	"time"

	"incus-sync/core/incus"
	"incus-sync/core/incus/incustest"
	"incus-sync/core/storage"
	"incus-sync/core/storage/mocks"
	"incus-sync/feature/hosts"
	"incus-sync/feature/inventory/inventorytest"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var storageCfg = storage.Config{Bucket: "test-bucket", Region: "us-east-1"}

func fakeDialer(apis map[string]*incustest.API) hosts.DialFunc {
	return func(ep incus.Endpoint, _ time.Duration) (incus.Requester, func(), error) {
		api, ok := apis[ep.Name]
		if !ok {
			return nil, nil, &incus.ConnectionError{Host: ep.Name, Op: "dial", Err: errors.New("connection refused")}
		}
		return api, func() {}, nil
	}
}

// setupService returns a service on a migrated in-memory database with two
// enabled hosts, node-a reachable and node-b not, plus a disabled node-c.
func setupService(t *testing.T, client storage.Client) *Service {
	t.Helper()

	db := inventorytest.NewDB(t)
	require.NoError(t, hosts.Migrate(db))

	apis := map[string]*incustest.API{
		"node-a": incustest.New().Server("node-a", "0123456789abcdef").Standalone(),
	}
	hostsSvc := hosts.NewService(db, zap.NewNop()).WithDialer(fakeDialer(apis), time.Second)

	ctx := context.Background()
	require.NoError(t, hostsSvc.Create(ctx, &hosts.Host{Name: "node-a", ConnectionType: "unix", Enabled: true}))
	require.NoError(t, hostsSvc.Create(ctx, &hosts.Host{Name: "node-b", ConnectionType: "unix", Enabled: true}))
	require.NoError(t, hostsSvc.Create(ctx, &hosts.Host{Name: "node-c", ConnectionType: "unix"}))

	return NewService(client, storageCfg, zap.NewNop(), db, hostsSvc)
}

func TestService_CheckSchema(t *testing.T) {
	svc := setupService(t, nil)

	report, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Contains(t, report.Tables, "incus_hosts")
	assert.Contains(t, report.Tables, "virtual_machines")
}

func TestService_CheckCredentials(t *testing.T) {
	svc := setupService(t, nil)

	reports, err := svc.CheckCredentials(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 3)
	for _, r := range reports {
		assert.Equal(t, "unix", r.Type)
		assert.Equal(t, "error", r.Status, r.Host)
	}
}

func TestService_CheckConnectivity(t *testing.T) {
	svc := setupService(t, nil)

	results, err := svc.CheckConnectivity(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "node-a", results[0].Host)
	assert.True(t, results[0].OK)
	assert.Equal(t, "node-a", results[0].ServerName)
	assert.False(t, results[0].Clustered)

	assert.Equal(t, "node-b", results[1].Host)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Error, "connection refused")
}

func TestService_Bucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Disabled archive", func(t *testing.T) {
		svc := setupService(t, nil)

		_, err := svc.CheckBucket(ctx)
		assert.ErrorIs(t, err, ErrArchiveDisabled)
		assert.ErrorIs(t, svc.FixBucket(ctx), ErrArchiveDisabled)
	})

	t.Run("Check and fix", func(t *testing.T) {
		client := new(mocks.Client)
		svc := setupService(t, client)
		client.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "test-bucket", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

		report, err := svc.CheckBucket(ctx)
		require.NoError(t, err)
		assert.False(t, report.Exists)

		require.NoError(t, svc.FixBucket(ctx))
		client.AssertExpectations(t)
	})
}
