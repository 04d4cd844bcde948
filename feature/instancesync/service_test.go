package instancesync

import (
	"testing"

	"incus-sync/core/incus/incustest"
	"incus-sync/core/storage/mocks"
	"incus-sync/feature/hosts"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_Options(t *testing.T) {
	e := newEnv(t, nil)
	svc := NewService(e.orch, nil, e.cfg, zap.NewNop())

	opts := svc.Options(false, true)
	assert.True(t, opts.DryRun)
	assert.False(t, opts.Prune)

	e.orch.cfg.PruneChildren = true
	assert.True(t, svc.Options(false, false).Prune)
}

func TestService_RunArchivesReport(t *testing.T) {
	e := newEnv(t, map[string]*incustest.API{"node-a": standaloneAPI("node-a", webInstance())})
	e.addHost(t, hosts.Host{Name: "node-a"})

	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, "reports", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil).Once()
	client.On("ListObjects", mock.Anything, "reports", mock.Anything).Return(objectList())

	cfg := e.cfg
	cfg.ReportRetentionDays = 30
	svc := NewService(e.orch, NewReportArchive(client, "reports", zap.NewNop()), cfg, zap.NewNop())
	assert.Nil(t, svc.Last())

	res, err := svc.Run(e.ctx, "all", svc.Options(false, false))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Summary.Status)
	assert.Same(t, res, svc.Last())
	client.AssertExpectations(t)
}

func TestService_DryRunIsNotArchived(t *testing.T) {
	e := newEnv(t, map[string]*incustest.API{"node-a": standaloneAPI("node-a", webInstance())})
	e.addHost(t, hosts.Host{Name: "node-a"})

	client := new(mocks.Client)
	svc := NewService(e.orch, NewReportArchive(client, "reports", zap.NewNop()), e.cfg, zap.NewNop())

	res, err := svc.Run(e.ctx, "node-a", svc.Options(false, true))
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UnknownHost(t *testing.T) {
	e := newEnv(t, nil)
	svc := NewService(e.orch, nil, e.cfg, zap.NewNop())

	_, err := svc.Run(e.ctx, "node-z", svc.Options(false, false))
	assert.ErrorIs(t, err, hosts.ErrNotFound)
	assert.Nil(t, svc.Last())
}
