// Package client provides the JustCall REST API client with client-side rate
// limiting, retries and typed resource services.
package client

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/justcall-client/pkg/logging"
	"github.com/Sternrassler/justcall-client/pkg/ratelimit"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Version is reported in the default User-Agent.
const Version = "0.3.0"

// DefaultBaseURL is the JustCall API root.
const DefaultBaseURL = "https://api.justcall.io"

// Prometheus metrics for JustCall client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_requests_total",
		Help: "Total JustCall requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "justcall_request_duration_seconds",
		Help:    "JustCall request duration in seconds by endpoint, including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_errors_total",
		Help: "Total JustCall errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "justcall_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Config holds the client configuration.
type Config struct {
	// Credentials (REQUIRED). Sent as "Authorization: key:secret".
	APIKey    string
	APISecret string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent defaults to "justcall-client-go/<Version>".
	UserAgent string

	// Rate limiting: at most RateLimit requests per RateInterval.
	// Zero selects the default, negative values are rejected.
	RateLimit    int
	RateInterval time.Duration

	// Gate replaces the default in-memory sliding window, e.g. with a
	// ratelimit.RedisWindow shared between processes.
	Gate ratelimit.Admitter

	// Timeout per HTTP attempt. Ignored when HTTPClient is set.
	Timeout time.Duration

	// Retry
	MaxRetries int         // retries after the first attempt
	Retry      RetryConfig // zero value selects per-class defaults

	// HTTPClient is used for every attempt. Optional.
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey, apiSecret string) Config {
	return Config{
		APIKey:       apiKey,
		APISecret:    apiSecret,
		BaseURL:      DefaultBaseURL,
		UserAgent:    "justcall-client-go/" + Version,
		RateLimit:    ratelimit.DefaultLimit,
		RateInterval: ratelimit.DefaultInterval,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
	}
}

// Client is the JustCall API client. It is safe for concurrent use; all
// requests and iterations on one Client share its rate gate.
type Client struct {
	http    *retryablehttp.Client
	gate    ratelimit.Admitter
	tracker *ratelimit.Tracker
	config  Config
	logger  zerolog.Logger

	campaigns        *CampaignsService
	campaignCalls    *CampaignCallsService
	campaignContacts *CampaignContactsService
	calls            *CallsService
	contacts         *ContactsService
	users            *UsersService
	messages         *MessagesService
	phoneNumbers     *PhoneNumbersService
}

// New creates a new JustCall client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: api key and secret are required", ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: max_retries must be >= 0 (got %d)", ErrInvalidConfig, cfg.MaxRetries)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "justcall-client-go/" + Version
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	gate := cfg.Gate
	if gate == nil {
		limit, interval := cfg.RateLimit, cfg.RateInterval
		if limit == 0 {
			limit = ratelimit.DefaultLimit
		}
		if interval == 0 {
			interval = ratelimit.DefaultInterval
		}
		window, err := ratelimit.NewWindow(limit, interval)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		gate = window
	}

	logger := logging.NewLogger("justcall-client")

	c := &Client{
		gate:    gate,
		tracker: ratelimit.NewTracker(logger),
		config:  cfg,
		logger:  logger,
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = cfg.MaxRetries
	rc.CheckRetry = c.checkRetry
	rc.Backoff = c.backoff
	rc.PrepareRetry = c.prepareRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger: logger}
	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		if err := c.tracker.UpdateFromHeaders(resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}
	c.http = rc

	c.campaigns = &CampaignsService{client: c}
	c.campaignCalls = &CampaignCallsService{client: c}
	c.campaignContacts = &CampaignContactsService{client: c}
	c.calls = &CallsService{client: c}
	c.contacts = &ContactsService{client: c}
	c.users = &UsersService{client: c}
	c.messages = &MessagesService{client: c}
	c.phoneNumbers = &PhoneNumbersService{client: c}

	return c, nil
}

// Campaigns returns the Sales Dialer campaigns service.
func (c *Client) Campaigns() *CampaignsService { return c.campaigns }

// CampaignCalls returns the Sales Dialer calls service.
func (c *Client) CampaignCalls() *CampaignCallsService { return c.campaignCalls }

// CampaignContacts returns the Sales Dialer campaign contacts service.
func (c *Client) CampaignContacts() *CampaignContactsService { return c.campaignContacts }

// Calls returns the calls service.
func (c *Client) Calls() *CallsService { return c.calls }

// Contacts returns the contacts service.
func (c *Client) Contacts() *ContactsService { return c.contacts }

// Users returns the users service.
func (c *Client) Users() *UsersService { return c.users }

// Messages returns the SMS service.
func (c *Client) Messages() *MessagesService { return c.messages }

// PhoneNumbers returns the phone numbers service.
func (c *Client) PhoneNumbers() *PhoneNumbersService { return c.phoneNumbers }

// Gate returns the rate gate shared by every request of this client.
func (c *Client) Gate() ratelimit.Admitter { return c.gate }

// RateLimitState returns the last rate limit state reported by JustCall.
func (c *Client) RateLimitState() ratelimit.RateLimitState { return c.tracker.State() }

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

// leveledLogger routes retryablehttp's logging onto zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

// Debug is used by retryablehttp for every attempt, so it maps to trace.
func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
