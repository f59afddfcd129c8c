package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// request describes one API call.
type request struct {
	method string
	path   string // concrete path, e.g. /v2.1/calls/42
	route  string // path template used as metric label, e.g. /v2.1/calls/{id}
	query  url.Values
	body   any

	// admitted is set when a pagination driver already passed the gate for this request.
	admitted bool
	// once marks a request with side effects. It is sent at most once and never retried.
	once bool
}

type onceKey struct{}

// sentOnce reports whether the request carrying ctx must not be retried.
func sentOnce(ctx context.Context) bool {
	once, _ := ctx.Value(onceKey{}).(bool)
	return once
}

// retries reports whether a failure of r may have been retried.
func (c *Client) retries(r request) bool {
	return c.config.MaxRetries > 0 && !r.once
}

func (r request) endpoint() string {
	if r.route != "" {
		return r.route
	}
	return r.path
}

// send runs the request pipeline and returns the body of a 2xx response.
//
// Pipeline: gate admission, remote limit hold, retried HTTP exchange, error translation.
func (c *Client) send(ctx context.Context, r request) ([]byte, int, error) {
	endpoint := r.endpoint()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if !r.admitted {
		if err := c.gate.Admit(ctx); err != nil {
			return nil, 0, fmt.Errorf("%s %s: rate gate: %w", r.method, endpoint, err)
		}
	}
	if err := c.tracker.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s %s: rate limit hold: %w", r.method, endpoint, err)
	}

	u := c.config.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var rawBody interface{}
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, 0, fmt.Errorf("%s %s: encode body: %w", r.method, endpoint, err)
		}
		rawBody = raw
	}

	reqCtx := ctx
	if r.once {
		reqCtx = context.WithValue(ctx, onceKey{}, true)
	}
	req, err := retryablehttp.NewRequestWithContext(reqCtx, r.method, u, rawBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey+":"+c.config.APISecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if rawBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", r.method).
		Str("endpoint", endpoint).
		Msg("Executing JustCall request")

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("%s %s: %w", r.method, endpoint, ctxErr)
		}
		return nil, 0, c.networkError(r, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, c.networkError(r, err)
	}

	status := resp.StatusCode
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()

	if status < 200 || status >= 300 {
		class := classifyStatus(status)
		if class == "" {
			class = ErrorClassClient
		}
		errorsTotal.WithLabelValues(string(class)).Inc()
		if retryableStatus(status) && c.retries(r) {
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
		}

		apiErr := &APIError{
			StatusCode: status,
			Class:      class,
			Method:     r.method,
			Endpoint:   endpoint,
			Message:    errorMessage(body, resp.Status),
		}
		event := c.logger.Warn()
		if class == ErrorClassServer {
			event = c.logger.Error()
		}
		event.
			Str("endpoint", endpoint).
			Int("status", status).
			Str("error_class", string(class)).
			Str("message", apiErr.Message).
			Msg("JustCall request error")
		return nil, status, apiErr
	}

	return body, status, nil
}

func (c *Client) networkError(r request, err error) error {
	endpoint := r.endpoint()
	errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
	if c.retries(r) {
		retryExhaustedTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	}
	c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Class:      ErrorClassNetwork,
		Method:     r.method,
		Endpoint:   endpoint,
		Message:    "Request failed",
		Err:        err,
	}
}

// doJSON sends the request and decodes the JSON object in the response.
func (c *Client) doJSON(ctx context.Context, r request) (Record, error) {
	body, status, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{
			StatusCode: status,
			Class:      ErrorClassDecode,
			Method:     r.method,
			Endpoint:   r.endpoint(),
			Message:    "Invalid JSON response",
			Err:        err,
		}
	}
	return rec, nil
}

// doList sends the request and extracts the list under itemsKey.
func (c *Client) doList(ctx context.Context, r request, itemsKey string) (*ListResult, error) {
	rec, err := c.doJSON(ctx, r)
	if err != nil {
		return nil, err
	}
	list, err := newListResult(rec, itemsKey)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Class:      ErrorClassDecode,
			Method:     r.method,
			Endpoint:   r.endpoint(),
			Message:    "Unexpected response shape",
			Err:        err,
		}
	}
	return list, nil
}

// doRaw sends the request and returns the body bytes unmodified.
func (c *Client) doRaw(ctx context.Context, r request) ([]byte, error) {
	body, _, err := c.send(ctx, r)
	return body, err
}

// errorMessage extracts the "message" field of a JustCall error body.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return status
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Error != "":
		return payload.Error
	default:
		return "Unknown error"
	}
}

// query builds URL query strings. Empty values are omitted; booleans are sent as 1/0.
type query url.Values

func (q query) setString(key, v string) {
	if v != "" {
		url.Values(q).Set(key, v)
	}
}

func (q query) setInt(key string, v int64) {
	if v != 0 {
		url.Values(q).Set(key, strconv.FormatInt(v, 10))
	}
}

func (q query) setIntPtr(key string, v *int) {
	if v != nil {
		url.Values(q).Set(key, strconv.Itoa(*v))
	}
}

func (q query) setBool(key string, v bool) {
	if v {
		url.Values(q).Set(key, "1")
	} else {
		url.Values(q).Set(key, "0")
	}
}

func (q query) setTime(key string, t time.Time, layout string) {
	if !t.IsZero() {
		url.Values(q).Set(key, t.Format(layout))
	}
}
