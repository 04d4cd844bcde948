package hosts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"incus-sync/core/database"
	"incus-sync/core/incus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no host has the requested name.
	ErrNotFound = errors.New("host not found")
	// ErrExists is returned when a host name is already registered.
	ErrExists = errors.New("host already registered")
)

// DialFunc opens a connection to a host.
type DialFunc func(ep incus.Endpoint, timeout time.Duration) (incus.Requester, func(), error)

// DefaultDial connects with the incus client.
func DefaultDial(ep incus.Endpoint, timeout time.Duration) (incus.Requester, func(), error) {
	c, err := incus.Dial(ep, timeout)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// TestResult reports a connection test against one host.
type TestResult struct {
	Host          string `json:"host"`
	Address       string `json:"address"`
	OK            bool   `json:"ok"`
	ServerName    string `json:"server_name,omitempty"`
	ServerVersion string `json:"server_version,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
	Clustered     bool   `json:"clustered"`
	Error         string `json:"error,omitempty"`
}

// Service manages the host registry.
type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	dial    DialFunc
	timeout time.Duration
}

// NewService creates a host registry service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger, dial: DefaultDial, timeout: incus.DefaultTimeout}
}

// WithDialer replaces the connection function.
func (s *Service) WithDialer(dial DialFunc, timeout time.Duration) *Service {
	s.dial = dial
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// Migrate creates the host table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Host{})
}

// List returns enabled hosts ordered by name.
func (s *Service) List(ctx context.Context) ([]Host, error) {
	var out []Host
	err := s.db.WithContext(ctx).Where("enabled = ?", true).Order("name").Find(&out).Error
	return out, err
}

// All returns every registered host ordered by name.
func (s *Service) All(ctx context.Context) ([]Host, error) {
	var out []Host
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

// Get returns the host with the given name.
func (s *Service) Get(ctx context.Context, name string) (*Host, error) {
	var h Host
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create validates and stores a new host. Unix hosts default to the
// standard socket path.
func (s *Service) Create(ctx context.Context, h *Host) error {
	if h.ConnectionType == string(incus.ConnectionUnix) && h.SocketPath == "" {
		h.SocketPath = incus.DefaultSocketPath
	}
	if err := Validate(h); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Create(h).Error
	if database.IsDuplicate(err) {
		return fmt.Errorf("%w: %s", ErrExists, h.Name)
	}
	if err != nil {
		return err
	}
	s.logger.Info("Host registered", zap.String("host", h.Name), zap.String("address", h.Address()))
	return nil
}

// SetEnabled toggles whether a host takes part in sync runs.
func (s *Service) SetEnabled(ctx context.Context, name string, enabled bool) error {
	res := s.db.WithContext(ctx).Model(&Host{}).Where("name = ?", name).Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a host from the registry. Inventory rows stay.
func (s *Service) Delete(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&Host{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Connect opens a connection to the host.
func (s *Service) Connect(h Host) (incus.Requester, func(), error) {
	return s.dial(h.Endpoint(), s.timeout)
}

// Timeout returns the per-request connection timeout.
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// Test dials the host and runs the handshake. Failures are reported in
// the result, not as an error.
func (s *Service) Test(ctx context.Context, h Host) TestResult {
	res := TestResult{Host: h.Name, Address: h.Address()}

	client, closeFn, err := s.Connect(h)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer closeFn()

	info, err := incus.Handshake(ctx, client, h.Name)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.OK = true
	res.APIVersion = info.APIVersion
	res.ServerName = info.Environment.ServerName
	res.ServerVersion = info.Environment.ServerVersion
	res.Clustered = info.Environment.ServerClustered
	return res
}
