package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/ipl-snapshot/internal/domain/tournament"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/logging"
	"github.com/riskibarqy/ipl-snapshot/internal/platform/resilience"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 4 * time.Second
	maxBodyBytes   = 6 << 20
	userAgent      = "ipl-snapshot/1.0 (+https://github.com/riskibarqy/ipl-snapshot)"
)

var (
	apiKeyParamRegex = regexp.MustCompile(`(?i)(apikey|api_key|token)=[^&\s"']+`)
	errTransient     = crerr.New("upstream transient failure")
)

type Config struct {
	// Name identifies the upstream in errors, logs and breaker state.
	Name           string
	BaseURL        string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Headers        map[string]string
	Secrets        []string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Clock          clockwork.Clock
}

// Client performs GET requests against one upstream. It never retries:
// a failure is reported straight away so the next source can be tried.
type Client struct {
	name           string
	baseURL        string
	httpClient     *http.Client
	headers        map[string]string
	secrets        []string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight[[]byte]
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	secrets := make([]string, 0, len(cfg.Secrets))
	for _, secret := range cfg.Secrets {
		if s := strings.TrimSpace(secret); s != "" {
			secrets = append(secrets, s)
		}
	}

	return &Client{
		name:           cfg.Name,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient:     httpClient,
		headers:        cfg.Headers,
		secrets:        secrets,
		logger:         logger.With("upstream", cfg.Name),
		breaker:        resilience.NewCircuitBreaker(cfg.Name, cfg.CircuitBreaker, cfg.Clock),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}
}

func (c *Client) Name() string {
	return c.name
}

// Get fetches path relative to the base URL. Errors are marked with
// tournament.ErrFetchFailed.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "upstream circuit breaker rejected request", "state", c.breaker.State())
			return nil, tournament.FetchFailed(c.name, err)
		}
	}

	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err, _ := c.flight.Do(fullURL, func() ([]byte, error) {
		raw, reqErr := c.execute(ctx, fullURL)
		switch {
		case !c.circuitEnabled:
		case reqErr != nil && crerr.Is(ctx.Err(), context.Canceled):
			// Caller cancellation is not an upstream failure.
			c.breaker.Release()
		default:
			c.breaker.Record(reqErr != nil && crerr.Is(reqErr, errTransient))
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, tournament.FetchFailed(c.name, err)
	}
	return raw, nil
}

// GetJSON fetches path and decodes the body into target.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	raw, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: source=%s: decode %s: %v", tournament.ErrParseFailed, c.name, path, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %s", c.redact(err.Error()))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = crerr.Mark(crerr.Newf("send request: %s", c.redact(err.Error())), errTransient)
		c.logger.WarnContext(ctx, "upstream request failed", "url", c.redact(fullURL), "duration", time.Since(started), "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
		return nil, crerr.Mark(crerr.Newf("read response body: %s", c.redact(err.Error())), errTransient)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := crerr.Newf("upstream status=%d body=%s", resp.StatusCode, abbreviate(c.redact(buf.String())))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			statusErr = crerr.Mark(statusErr, errTransient)
		}
		c.logger.WarnContext(ctx, "upstream returned non-2xx", "url", c.redact(fullURL), "status", resp.StatusCode)
		return nil, statusErr
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func (c *Client) redact(value string) string {
	for _, secret := range c.secrets {
		value = strings.ReplaceAll(value, secret, "REDACTED")
		value = strings.ReplaceAll(value, url.QueryEscape(secret), "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "$1=REDACTED")
}

func abbreviate(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= 256 {
		return body
	}
	return body[:256] + "..."
}
