package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"feedesk/internal/core"
	"feedesk/internal/log"
	"feedesk/internal/middleware/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Backend routes.
const (
	PathMembers      = "/api/members"
	PathMember       = "/api/member"
	pathTransactions = "/transactions"
)

// RequestIDHeader carries the UI request id to the backend.
const RequestIDHeader = "X-Request-ID"

// Client talks to the member/fee backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
// A client passed to WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api base url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
		logger:  log.New(log.DefaultConfig()).WithComponent(log.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListTotals implements TotalsReader.
func (c *Client) ListTotals(ctx context.Context) ([]core.MemberSummary, error) {
	var out []core.MemberSummary
	if err := c.do(ctx, http.MethodGet, PathMembers, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMember implements MemberWriter.
func (c *Client) AddMember(ctx context.Context, in core.MemberInput) error {
	return c.do(ctx, http.MethodPost, PathMember, "", in, nil)
}

// UpdateMember implements MemberWriter. The id is not checked; an empty id
// produces a request the backend rejects.
func (c *Client) UpdateMember(ctx context.Context, in core.MemberInput) error {
	return c.do(ctx, http.MethodPut, memberPath(in.ID), "", in, nil)
}

// SearchTransactions implements TransactionSearcher. Both bounds are always
// sent, empty or not.
func (c *Client) SearchTransactions(ctx context.Context, q core.SearchQuery) ([]core.TransactionRecord, error) {
	query := "start=" + url.QueryEscape(q.StartDate) + "&end=" + url.QueryEscape(q.EndDate)
	var out []core.TransactionRecord
	if err := c.do(ctx, http.MethodGet, memberPath(q.MemberID)+pathTransactions, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that the backend answers HTTP at all. Any status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+PathMembers, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func memberPath(id core.ID) string {
	return PathMember + "/" + url.PathEscape(id.String())
}

func (c *Client) do(ctx context.Context, method, path, rawQuery string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, requestID(ctx))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend request failed",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldError, err.Error(),
			"error_type", log.ErrorTypeNetwork)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Backend request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func requestID(ctx context.Context) string {
	if id := trace.GetRequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
