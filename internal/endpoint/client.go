// Package endpoint posts rendered SOAP payloads to a single ticketing
// web-service endpoint.
package endpoint

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client talks to one endpoint with one SOAP action.
type Client struct {
	url      *url.URL
	action   string
	client   *http.Client
	timeout  time.Duration
	insecure bool
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Timeout and TLS options are then ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(cl *Client) { cl.insecure = skip }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for rawURL. The URL must be absolute http or https.
func New(rawURL, action string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "missing host"}
	}

	c := &Client{
		url:     u,
		action:  action,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.client == nil {
		c.client = c.defaultHTTPClient()
	}
	return c, nil
}

func (c *Client) defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.insecure {
		c.logger.Warn("TLS certificate verification is disabled", "url", c.url.String())
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Timeout: c.timeout, Transport: transport}
}

// Post sends payload and returns the raw response body of a 200 response.
// Exactly one attempt is made.
func (c *Client) Post(ctx context.Context, payload string) (string, error) {
	target := c.url.String()
	headers := map[string]string{
		"Content-Type": "text/xml",
		"SOAPAction":   `"` + c.action + `"`,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(payload))
	if err != nil {
		return "", c.transportError(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.Info("posting request", "method", http.MethodPost, "url", target, "headers", headers)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", c.transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.transportError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("raw response", "body", string(body))
		msg := fmt.Sprintf("request response error: %d (%s)", resp.StatusCode, reasonPhrase(resp))
		if fault := parseFault(body); fault != "" {
			msg += ": " + fault
		}
		return "", &Error{
			Kind:        KindStatus,
			URL:         target,
			Method:      http.MethodPost,
			Message:     msg,
			StatusCode:  resp.StatusCode,
			SOAPAction:  c.action,
			SOAPPayload: payload,
		}
	}

	c.logger.Info("request successful", "status", resp.StatusCode)
	c.logger.Debug("raw response", "body", string(body))
	return string(body), nil
}

func (c *Client) transportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		URL:     c.url.String(),
		Method:  http.MethodPost,
		Message: err.Error(),
		Err:     err,
	}
}

// reasonPhrase prefers the phrase the server sent over the canonical one.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}
