package mqttc

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, DefaultKeepAlive, cfg.keepAlive)
	assert.True(t, cfg.cleanSession)
	assert.Equal(t, uint8(4), cfg.version)
	assert.NotNil(t, cfg.logger)
}

func TestOptionsApply(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{
		WithClientID("my-client"),
		WithAuth("alice", "secret"),
		WithKeepAlive(45 * time.Second),
		WithCleanSession(false),
		WithVersion(3),
		WithWill(true, 1, "lwt/topic", []byte("bye")),
	} {
		opt(cfg)
	}

	assert.Equal(t, "my-client", cfg.clientID)
	assert.Equal(t, "alice", cfg.username)
	assert.Equal(t, "secret", cfg.password)
	assert.True(t, cfg.authSet)
	assert.Equal(t, 45*time.Second, cfg.keepAlive)
	assert.False(t, cfg.cleanSession)
	assert.Equal(t, uint8(3), cfg.version)
	require.NotNil(t, cfg.will)
	assert.Equal(t, "lwt/topic", cfg.will.topic)
	assert.Equal(t, uint8(1), cfg.will.qos)
	assert.True(t, cfg.will.retain)
}

func TestWithAuthEmptyUserDisablesAuth(t *testing.T) {
	cfg := defaultConfig()
	WithAuth("", "")(cfg)
	assert.False(t, cfg.authSet)
}

func TestRandomClientIDFormat(t *testing.T) {
	id := RandomClientID()
	assert.True(t, strings.HasPrefix(id, "libmqtt/"))
	assert.NotEqual(t, RandomClientID(), RandomClientID(), "two calls must not collide")
}

func TestDefaultClientIDFormat(t *testing.T) {
	id := defaultClientID()
	assert.True(t, strings.HasPrefix(id, "libmqtt/"))
}

func TestNewAssignsDefaultClientIDWhenUnset(t *testing.T) {
	c := New(Callbacks{})
	assert.True(t, strings.HasPrefix(c.cfg.clientID, "libmqtt/"))
}

func TestNewHonorsExplicitClientID(t *testing.T) {
	c := New(Callbacks{}, WithClientID("fixed-id"))
	assert.Equal(t, "fixed-id", c.cfg.clientID)
}
