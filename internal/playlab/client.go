// Package playlab is a client for the PlayLab conversational API.
package playlab

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/molino-storefront/internal/domain/chat"
	"github.com/xenking/molino-storefront/internal/domain/failure"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://www.playlab.ai/api/v1"

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 1 << 10

// Config holds PlayLab credentials.
type Config struct {
	ProjectID string        `usage:"PlayLab project id (PLAYLAB_PROJECT_ID)" flag:"playlab-project-id"`
	APIKey    string        `usage:"PlayLab API key (PLAYLAB_API_KEY)" flag:"playlab-api-key"`
	BaseURL   string        `default:"https://www.playlab.ai/api/v1" usage:"PlayLab API base URL"`
	Timeout   time.Duration `default:"60s" usage:"PlayLab request timeout, including the streamed reply"`
}

// Validate reports missing credentials.
func (c Config) Validate() error {
	var missing []string
	if c.ProjectID == "" {
		missing = append(missing, "PLAYLAB_PROJECT_ID")
	}
	if c.APIKey == "" {
		missing = append(missing, "PLAYLAB_API_KEY")
	}
	if len(missing) > 0 {
		return &failure.ConfigError{Component: "PlayLab", Missing: missing}
	}
	return nil
}

// Option configures a Client.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the tracer provider for outbound requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for outbound requests.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Client implements chat.Assistant. Configuration is checked per call so a
// server without credentials still starts.
type Client struct {
	cfg  Config
	http *http.Client
	base string
}

var _ chat.Assistant = (*Client)(nil)

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	o := options{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithTracerProvider(o.tracerProvider),
				otelhttp.WithMeterProvider(o.meterProvider),
			),
		},
	}
}

// CreateConversation starts a conversation in the configured project.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}

	resp, err := c.post(ctx, c.projectPath("conversations"), []byte("{}"))
	if err != nil {
		return "", errors.Wrap(err, "create conversation")
	}
	defer func() { _ = resp.Body.Close() }()

	var id string
	if err := jx.Decode(resp.Body, 512).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "conversation" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "id" {
				return d.Skip()
			}
			s, err := d.Str()
			id = s
			return err
		})
	}); err != nil {
		return "", errors.Wrap(err, "decode conversation")
	}
	if id == "" {
		return "", errors.New("response carries no conversation id")
	}
	return id, nil
}

// SendMessage posts text and returns the streamed reply body. The caller
// closes it.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (io.ReadCloser, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	e := jx.Encoder{}
	e.ObjStart()
	e.FieldStart("input")
	e.ObjStart()
	e.FieldStart("message")
	e.Str(text)
	e.ObjEnd()
	e.ObjEnd()

	path := c.projectPath("conversations", conversationID, "messages")
	resp, err := c.post(ctx, path, e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "send message")
	}
	return resp.Body, nil
}

func (c *Client) projectPath(parts ...string) string {
	var b strings.Builder
	b.WriteString("/projects/")
	b.WriteString(url.PathEscape(c.cfg.ProjectID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// post returns the response for a 2xx status. Other statuses become
// *failure.VendorError carrying a prefix of the body.
func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &failure.VendorError{StatusCode: resp.StatusCode, Message: msg}
	}
	return resp, nil
}
