// Package square adapts the Square Go SDK to the storefront's catalog and
// checkout ports.
package square

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	sq "github.com/square/square-go-sdk"
	squareclient "github.com/square/square-go-sdk/client"
	"github.com/square/square-go-sdk/core"
	"github.com/square/square-go-sdk/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/internal/domain/menu"
)

// Base URLs per environment.
var (
	ProductionURL = sq.Environments.Production
	SandboxURL    = sq.Environments.Sandbox
)

// Environment names.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
)

// DefaultVersion is the Square-Version header sent with every request.
const DefaultVersion = "2024-10-17"

// Config holds Square credentials and transport settings.
type Config struct {
	AccessToken   string        `usage:"Square access token (SQUARE_ACCESS_TOKEN)" flag:"square-access-token"`
	Environment   string        `default:"sandbox" usage:"Square environment: sandbox or production (SQUARE_ENVIRONMENT)" flag:"square-environment"`
	LocationID    string        `usage:"Square location id (SQUARE_LOCATION_ID)" flag:"square-location-id"`
	ApplicationID string        `usage:"Square application id for the web payments SDK (SQUARE_APPLICATION_ID)" flag:"square-application-id"`
	Version       string        `default:"2024-10-17" usage:"Square-Version API header"`
	Timeout       time.Duration `default:"15s" usage:"Square request timeout"`
	MaxAttempts   uint          `default:"2" usage:"Attempts per Square call; 408, 429 and 5xx responses are retried"`
	// BaseURL overrides the environment URL.
	BaseURL string `usage:"Override the Square API base URL"`
}

// Production reports whether cfg targets the production environment.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// EnvironmentName is the normalized environment name.
func (c Config) EnvironmentName() string {
	if c.Production() {
		return EnvProduction
	}
	return EnvSandbox
}

// Validate reports missing server-side credentials.
func (c Config) Validate() error {
	var missing []string
	if c.AccessToken == "" {
		missing = append(missing, "SQUARE_ACCESS_TOKEN")
	}
	if c.LocationID == "" {
		missing = append(missing, "SQUARE_LOCATION_ID")
	}
	if len(missing) > 0 {
		return &failure.ConfigError{Component: "Square", Missing: missing}
	}
	return nil
}

// PublicConfig is what the browser payments SDK needs.
type PublicConfig struct {
	ApplicationID string
	LocationID    string
	Environment   string
}

// Public returns the browser-facing configuration.
func (c Config) Public() (PublicConfig, error) {
	var missing []string
	if c.ApplicationID == "" {
		missing = append(missing, "SQUARE_APPLICATION_ID")
	}
	if c.LocationID == "" {
		missing = append(missing, "SQUARE_LOCATION_ID")
	}
	if len(missing) > 0 {
		return PublicConfig{}, &failure.ConfigError{Component: "Square", Missing: missing}
	}
	return PublicConfig{
		ApplicationID: c.ApplicationID,
		LocationID:    c.LocationID,
		Environment:   c.EnvironmentName(),
	}, nil
}

// Option configures a Client.
type Option func(*options)

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	transport      http.RoundTripper
}

// WithTracerProvider sets the tracer provider for outbound requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for outbound requests.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTransport sets the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// Client talks to one Square location.
type Client struct {
	api      *squareclient.Client
	baseURL  string
	location string
}

var (
	_ menu.Catalog    = (*Client)(nil)
	_ checkout.Vendor = (*Client)(nil)
)

// New creates a Client. It fails with *failure.ConfigError when credentials
// are missing and never touches the network.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		transport:      http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := cfg.BaseURL
	if base == "" {
		base = SandboxURL
		if cfg.Production() {
			base = ProductionURL
		}
	}
	base = strings.TrimRight(base, "/")
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(o.transport,
			otelhttp.WithTracerProvider(o.tracerProvider),
			otelhttp.WithMeterProvider(o.meterProvider),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "square " + r.Method + " " + r.URL.Path
			}),
		),
	}
	sdkOpts := []option.RequestOption{
		option.WithToken(cfg.AccessToken),
		option.WithBaseURL(base),
		option.WithHTTPClient(httpClient),
		&core.VersionOption{Version: version},
	}
	if cfg.MaxAttempts > 0 {
		sdkOpts = append(sdkOpts, option.WithMaxAttempts(cfg.MaxAttempts))
	}

	return &Client{
		api:      squareclient.NewClient(sdkOpts...),
		baseURL:  base,
		location: cfg.LocationID,
	}, nil
}

// LocationID is the location orders and payments are attached to.
func (c *Client) LocationID() string { return c.location }

// vendorError maps an SDK failure to *failure.VendorError. Transport errors
// are returned unchanged.
func vendorError(err error) error {
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	var body []byte
	if inner := apiErr.Unwrap(); inner != nil {
		body = []byte(inner.Error())
	}
	return decodeError(apiErr.StatusCode, body)
}

// decodeError maps a Square error envelope to the first reported error.
func decodeError(status int, data []byte) *failure.VendorError {
	vErr := &failure.VendorError{StatusCode: status}
	_ = jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "errors" {
			return d.Skip()
		}
		first := true
		return d.Arr(func(d *jx.Decoder) error {
			if !first {
				return d.Skip()
			}
			first = false
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				var err error
				switch string(key) {
				case "category":
					vErr.Category, err = d.Str()
				case "code":
					vErr.Code, err = d.Str()
				case "detail":
					vErr.Message, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		})
	})
	fillMessage(vErr)
	return vErr
}

// envelopeError reports the first error of a 2xx response that carries no
// payload.
func envelopeError(errs []*sq.Error, fallback string) *failure.VendorError {
	vErr := &failure.VendorError{StatusCode: http.StatusBadGateway, Message: fallback}
	if len(errs) > 0 && errs[0] != nil {
		e := errs[0]
		vErr.Category = string(e.Category)
		vErr.Code = string(e.Code)
		vErr.Message = deref(e.Detail)
		fillMessage(vErr)
	}
	return vErr
}

func fillMessage(vErr *failure.VendorError) {
	if vErr.Message == "" && vErr.Code != "" {
		vErr.Message = strings.ToLower(strings.ReplaceAll(vErr.Code, "_", " "))
	}
	if vErr.Message == "" {
		vErr.Message = http.StatusText(vErr.StatusCode)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
