package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
)

// Client records usage events. Track never blocks the caller.
type Client interface {
	Track(event string, properties map[string]any)
	Close() error
}

// Properties is a type alias for event properties.
type Properties = map[string]any

// allowedProps are the only property keys forwarded. Anything else, such as
// a stray comment or airport, is dropped before it leaves the process.
var allowedProps = map[string]struct{}{
	"category":    {},
	"custom_form": {},
	"error_kind":  {},
	"task_id":     {},
	"attempts":    {},
	"command":     {},
	"success":     {},
	"duration_ms": {},
	"error_type":  {},
}

// enqueuer is the part of the PostHog client we use.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient forwards events to PostHog.
type PostHogClient struct {
	client  enqueuer
	config  *Config
	version string

	mu     sync.RWMutex
	closed bool
}

// ClientConfig holds configuration for initializing the telemetry client.
type ClientConfig struct {
	// APIKey is the PostHog project API key.
	APIKey  string
	Version string
	Config  *Config
	// Endpoint overrides the PostHog cloud endpoint for self-hosted setups.
	Endpoint string
}

// New returns a PostHog client when an API key is set and the user opted in,
// and a NoopClient otherwise.
func New(cfg ClientConfig) (Client, error) {
	if cfg.APIKey == "" || cfg.Config == nil || !cfg.Config.IsEnabled() {
		return NewNoopClient(), nil
	}

	phConfig := posthog.Config{
		BatchSize: 10,
		Interval:  1 * time.Second,
		Logger:    quietPostHogLogger{},
	}
	if cfg.Endpoint != "" {
		phConfig.Endpoint = cfg.Endpoint
	}

	ph, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}
	return newPostHogClient(ph, cfg.Config, cfg.Version), nil
}

func newPostHogClient(enq enqueuer, cfg *Config, version string) *PostHogClient {
	return &PostHogClient{client: enq, config: cfg, version: version}
}

// Track enqueues event. Properties outside the allow-list are dropped.
func (c *PostHogClient) Track(event string, properties map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || c.config == nil || !c.config.IsEnabled() {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		if _, ok := allowedProps[k]; ok {
			props.Set(k, v)
		}
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("cli_version", c.version)
	// No person profiles; events stay anonymous.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.config.AnonymousID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes the queue. Later Track calls are ignored.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// NoopClient is used when telemetry is off or no API key is configured.
type NoopClient struct{}

func (c *NoopClient) Track(event string, properties map[string]any) {}

func (c *NoopClient) Close() error { return nil }

func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// quietPostHogLogger keeps transport warnings out of CLI output.
type quietPostHogLogger struct{}

func (quietPostHogLogger) Debugf(string, ...any) {}
func (quietPostHogLogger) Logf(string, ...any)   {}
func (quietPostHogLogger) Warnf(string, ...any)  {}
func (quietPostHogLogger) Errorf(string, ...any) {}
