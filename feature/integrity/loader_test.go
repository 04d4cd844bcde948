package integrity

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestLoader(t *testing.T) {
	feature := NewFeature(setupService(t, nil))

	assert.Equal(t, "integrity", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	assert.NoError(t, feature.Load(app))
}

func TestLoader_WithoutDatabase(t *testing.T) {
	assert.False(t, NewFeature(nil).IsEnabled())
	assert.False(t, NewFeature(&Service{}).IsEnabled())
}
