// Package api is the only transport to the clinic backend. Every operation is a POST to
// one endpoint, selected by the "action" field of the JSON body.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/muhammadahmed9211/clinic-saas/internal/metrics"
)

const (
	DefaultTimeout  = 30 * time.Second
	fallbackMessage = "An error occurred"
	requestIDHeader = "X-Request-Id"
)

// IdentifierSource yields the persisted stable user id attached to every call.
type IdentifierSource interface {
	StableID(ctx context.Context) (string, bool)
}

type Config struct {
	Endpoint   string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	HTTPClient *http.Client
}

type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	ids        IdentifierSource
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

func New(cfg Config, ids IdentifierSource, log zerolog.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("backend endpoint is required")
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse backend endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	// copy so the caller's client keeps its own timeout
	bounded := *httpClient
	bounded.Timeout = timeout

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: &bounded,
		timeout:    timeout,
		limiter:    limiter,
		ids:        ids,
		log:        log,
		metrics:    m,
	}, nil
}

// call performs one action and decodes the response body into out (which may be nil).
// It never retries.
func (c *Client) call(ctx context.Context, action string, fields map[string]any, out any) error {
	start := time.Now()
	requestID := uuid.NewString()
	logger := c.log.With().Str("action", action).Str("request_id", requestID).Logger()

	status, raw, err := c.send(ctx, action, requestID, fields)
	if err == nil {
		err = decodePayload(status, raw, out)
	}

	outcome := metrics.OutcomeOK
	var apiErr *Error
	if errors.As(err, &apiErr) {
		outcome = metrics.OutcomeTransport
		if apiErr.Kind == KindApplication {
			outcome = metrics.OutcomeApplication
		}
		logger.Error().Int("status", apiErr.Status).Str("error", apiErr.Message).Msg("api error")
	} else {
		logger.Debug().Int("status", status).Dur("latency", time.Since(start)).Msg("api call")
	}
	c.metrics.ObserveBackendCall(action, outcome, time.Since(start))

	return err
}

func (c *Client) send(ctx context.Context, action, requestID string, fields map[string]any) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, c.transportError(0, err)
		}
	}

	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["action"] = action

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Message: fallbackMessage, Err: fmt.Errorf("encode %s: %w", action, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(ctx), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, &Error{Kind: KindTransport, Message: fallbackMessage, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, c.transportError(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, c.transportError(resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := serverError(raw); msg != "" {
			return resp.StatusCode, raw, &Error{Kind: KindApplication, Status: resp.StatusCode, Message: msg}
		}
		return resp.StatusCode, raw, &Error{
			Kind:    KindTransport,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Request failed with status code %d", resp.StatusCode),
		}
	}

	if msg := serverError(raw); msg != "" {
		return resp.StatusCode, raw, &Error{Kind: KindApplication, Status: resp.StatusCode, Message: msg}
	}
	return resp.StatusCode, raw, nil
}

// requestURL adds uuid only when a stable id is persisted; an empty value is never sent.
func (c *Client) requestURL(ctx context.Context) string {
	u := *c.endpoint
	if c.ids == nil {
		return u.String()
	}
	id, ok := c.ids.StableID(ctx)
	if !ok || id == "" {
		return u.String()
	}
	q := u.Query()
	q.Set("uuid", id)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) transportError(status int, err error) *Error {
	msg := "Network Error"

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		msg = fmt.Sprintf("timeout of %dms exceeded", c.timeout.Milliseconds())
	case errors.Is(err, context.Canceled):
		msg = "canceled"
	}
	return &Error{Kind: KindTransport, Status: status, Message: msg, Err: err}
}

// serverError returns the top-level string "error" field of a backend body, if any.
func serverError(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	field := gjson.GetBytes(raw, "error")
	if field.Type != gjson.String {
		return ""
	}
	return field.String()
}

// decodePayload maps the body onto out. Sheet-backed records are loosely typed, so
// numbers may arrive as strings and ids as numbers.
func decodePayload(status int, raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return &Error{Kind: KindTransport, Status: status, Message: fallbackMessage, Err: fmt.Errorf("decode response: %w", err)}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return &Error{Kind: KindTransport, Status: status, Message: fallbackMessage, Err: err}
	}
	if err := decoder.Decode(generic); err != nil {
		return &Error{Kind: KindTransport, Status: status, Message: fallbackMessage, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
