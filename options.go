package mqttc

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultKeepAlive is the keep-alive interval used when no WithKeepAlive
// option is supplied.
const DefaultKeepAlive = 30 * time.Second

// config holds every tunable the facade and session consult. It is built
// once from the defaults plus the caller's Options and never mutated
// afterward - any apparent in-place update is rebuilding the whole value.
type config struct {
	clientID     string
	username     string
	password     string
	authSet      bool
	keepAlive    time.Duration
	cleanSession bool
	version      uint8

	will       *willMessage
	logger     *logrus.Logger

	onConnect        func()
	onConnectionLost func(error)
}

type willMessage struct {
	topic   string
	payload []byte
	qos     uint8
	retain  bool
}

// Option configures a Client at construction time, following the
// functional-options pattern.
type Option func(*config)

// WithClientID sets the MQTT client identifier. If never set (or set to
// the empty string), New generates a default of the form
// "libmqtt/<pid>-<hostname>".
func WithClientID(id string) Option {
	return func(c *config) { c.clientID = id }
}

// RandomClientID returns a client id of the form "libmqtt/<uuid>",
// suitable for passing to WithClientID when the caller wants a
// collision-resistant id but not the default pid/hostname form.
func RandomClientID() string {
	return "libmqtt/" + uuid.NewString()
}

// WithAuth sets the username and password carried in CONNECT. Passing an
// empty user disables authentication (the default).
func WithAuth(user, pass string) Option {
	return func(c *config) {
		c.username = user
		c.password = pass
		c.authSet = user != ""
	}
}

// WithKeepAlive sets the keep-alive interval (default DefaultKeepAlive).
// The same duration governs both the PING cycle and the in-flight
// publication retransmission timeout.
func WithKeepAlive(d time.Duration) Option {
	return func(c *config) { c.keepAlive = d }
}

// WithCleanSession sets the CONNECT clean-session flag (default true).
func WithCleanSession(clean bool) Option {
	return func(c *config) { c.cleanSession = clean }
}

// WithVersion selects the protocol version: 3 for MQTT 3.1 ("MQIsdp", wire
// byte 0x03) or 4 for MQTT 3.1.1 ("MQTT", wire byte 0x04). Default is 4.
func WithVersion(version uint8) Option {
	return func(c *config) { c.version = version }
}

// WithWill sets the Last Will and Testament published by the broker on
// this client's behalf if it disconnects abnormally. topic and payload
// must both be non-empty.
func WithWill(retain bool, qos uint8, topic string, payload []byte) Option {
	return func(c *config) {
		c.will = &willMessage{topic: topic, payload: payload, qos: qos, retain: retain}
	}
}

// WithLogger sets the logrus.Logger used for session diagnostics. The
// default discards all output; a nil logger keeps that default.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnConnect registers a hook invoked once CONNACK carries an accepted
// return code.
func WithOnConnect(fn func()) Option {
	return func(c *config) { c.onConnect = fn }
}

// WithOnConnectionLost registers a hook invoked when the link dies, after
// the single reconnect attempt has also failed.
func WithOnConnectionLost(fn func(error)) Option {
	return func(c *config) { c.onConnectionLost = fn }
}

func defaultConfig() *config {
	logger := logrus.New()
	logger.SetOutput(discardWriter{})
	return &config{
		keepAlive:    DefaultKeepAlive,
		cleanSession: true,
		version:      4,
		logger:       logger,
	}
}

// defaultClientID builds the default client identifier:
// "libmqtt/<pid>-<hostname>".
func defaultClientID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("libmqtt/%d-%s", os.Getpid(), host)
}

// discardWriter is an io.Writer that drops everything written to it, used
// so a Client defaults to discarding logs without importing io/ioutil's
// deprecated surface.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
