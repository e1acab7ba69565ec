// Package toggl is the live entry source backed by the Toggl Track v9 API.
package toggl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"timereport/internal/source"
)

const DefaultBaseURL = "https://api.track.toggl.com/api/v9"

// Client talks to the Toggl API. Every request waits on a shared rate limiter
// so that all accounts together stay under the upstream quota.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	limiter *rate.Limiter
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(c *fasthttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func New(baseURL string, perSecond float64, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		http:    &fasthttp.Client{Name: "timereport"},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		timeout: timeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func basicAuth(token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(token+":api_token"))
}

// get performs an authenticated GET and decodes the JSON body into dst.
func (c *Client) get(ctx context.Context, token, path string, args *fasthttp.Args, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if args != nil && args.Len() > 0 {
		uri += "?" + args.String()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAuthorization, basicAuth(token))
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return fmt.Errorf("toggl GET %s: %w", path, err)
	}

	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return &source.AuthError{Status: status}
	case status == fasthttp.StatusTooManyRequests:
		return &source.RateLimitError{RetryAfter: retryAfter(resp.Header.Peek(fasthttp.HeaderRetryAfter))}
	case status < 200 || status > 299:
		return &source.UpstreamError{Status: status, Body: string(resp.Body())}
	}

	if err := json.Unmarshal(resp.Body(), dst); err != nil {
		return fmt.Errorf("toggl GET %s: decode: %w", path, err)
	}
	return nil
}

func retryAfter(v []byte) time.Duration {
	secs, err := strconv.Atoi(string(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
