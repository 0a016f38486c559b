package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
)

// Client is the interface for telemetry clients.
type Client interface {
	// Track enqueues an event and returns immediately.
	Track(event string, properties Properties)

	// Close flushes pending events.
	Close() error
}

// Properties is a type alias for event properties.
type Properties = map[string]any

// Event names.
const (
	EventCommandExecuted   = "command_executed"
	EventFeatureAdded      = "feature_added"
	EventTasksGenerated    = "tasks_generated"
	EventDocumentValidated = "document_validated"
)

// enqueuer is the subset of the PostHog client we use.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// Options configures New.
type Options struct {
	Enabled     bool
	APIKey      string
	Endpoint    string // empty uses PostHog cloud
	Version     string
	AnonymousID string
}

// PostHogClient wraps the PostHog SDK.
type PostHogClient struct {
	mu          sync.Mutex
	client      enqueuer
	version     string
	anonymousID string
	closed      bool
}

// New returns a PostHog client when telemetry is enabled and an API key is
// configured, and a NoopClient otherwise.
func New(opts Options) (Client, error) {
	if !opts.Enabled || opts.APIKey == "" || opts.AnonymousID == "" {
		return NoopClient{}, nil
	}
	cfg := posthog.Config{
		BatchSize: 10,
		Interval:  time.Second,
		Logger:    quietLogger{},
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	c, err := posthog.NewWithConfig(opts.APIKey, cfg)
	if err != nil {
		return nil, err
	}
	return newPostHogClient(c, opts), nil
}

func newPostHogClient(enq enqueuer, opts Options) *PostHogClient {
	return &PostHogClient{client: enq, version: opts.Version, anonymousID: opts.AnonymousID}
}

func (c *PostHogClient) Track(event string, properties Properties) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("cli_version", c.version)
	// no person profiles: events stay anonymous
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.anonymousID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes the queue. Later Track calls are dropped.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// NoopClient is used when telemetry is off.
type NoopClient struct{}

func (NoopClient) Track(string, Properties) {}
func (NoopClient) Close() error             { return nil }

// quietLogger keeps PostHog transport warnings out of CLI output.
type quietLogger struct{}

func (quietLogger) Debugf(string, ...interface{}) {}
func (quietLogger) Logf(string, ...interface{})   {}
func (quietLogger) Warnf(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}
