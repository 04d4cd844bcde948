package loader

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeature struct {
	name    string
	enabled bool
	err     error
	loaded  int
}

func (f *fakeFeature) Name() string    { return f.name }
func (f *fakeFeature) IsEnabled() bool { return f.enabled }
func (f *fakeFeature) Load(app fiber.Router) error {
	f.loaded++
	if f.err != nil {
		return f.err
	}
	app.Get("/"+f.name, func(c *fiber.Ctx) error { return c.SendString(f.name) })
	return nil
}

func TestManager_LoadAll(t *testing.T) {
	hosts := &fakeFeature{name: "hosts", enabled: true}
	off := &fakeFeature{name: "off"}

	mgr := NewManager()
	mgr.Register(hosts)
	mgr.Register(off)
	mgr.Register(&fakeFeature{name: "hosts", enabled: true})
	require.Len(t, mgr.Features(), 2)

	app := fiber.New()
	require.NoError(t, mgr.LoadAll(app))
	assert.Equal(t, 1, hosts.loaded)
	assert.Equal(t, 0, off.loaded)

	resp, err := app.Test(httptest.NewRequest("GET", "/hosts", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/off", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestManager_LoadAllError(t *testing.T) {
	mgr := NewManager()
	mgr.Register(&fakeFeature{name: "broken", enabled: true, err: errors.New("boom")})
	next := &fakeFeature{name: "next", enabled: true}
	mgr.Register(next)

	err := mgr.LoadAll(fiber.New())
	assert.EqualError(t, err, "load feature broken: boom")
	assert.Equal(t, 0, next.loaded)
}
