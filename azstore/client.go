package azstore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Client assembles a Config, a Credential, and a signing+retry+
// executor Pipeline into something a service façade (Blob/Queue/Table)
// can issue calls through. One Client is built per Service, since the
// canonicalization form and DNS suffix are fixed per service.
type Client struct {
	cfg      *Config
	service  Service
	pipeline *Pipeline
}

// NewClient builds a Client for the given service.
func NewClient(cfg *Config, service Service) *Client {
	return &Client{
		cfg:     cfg,
		service: service,
		pipeline: NewPipeline(
			newExecutorPolicy(cfg.Agent),
			newRetryPolicyFactory(cfg),
		),
	}
}

// CallOptions describes one façade-level operation: method/path/
// headers/payload plus the sorted list of query parameters this
// operation signs.
type CallOptions struct {
	Method    string
	Path      string
	Query     url.Values
	Headers   map[string]string
	Payload   []byte
	Supported []string
}

// Do signs, retries, and executes one façade call.
func (c *Client) Do(ctx context.Context, opts CallOptions) (*Response, error) {
	headers := cloneHeaders(opts.Headers)
	headers["x-ms-date"] = time.Now().UTC().Format(http.TimeFormat)
	headers["x-ms-version"] = c.cfg.APIVersion
	if c.cfg.ClientID != "" {
		headers["x-ms-client-request-id"] = c.cfg.ClientID
	} else {
		headers["x-ms-client-request-id"] = uuid.NewString()
	}
	if len(opts.Payload) > 0 {
		headers["Content-Length"] = strconv.Itoa(len(opts.Payload))
	}

	query := opts.Query
	if query == nil {
		query = url.Values{}
	}
	if query.Get("timeout") == "" {
		query.Set("timeout", strconv.Itoa(int(c.cfg.ServerTimeout/time.Second)))
	}

	descriptor, err := c.cfg.authorize(ctx, signRequest{
		AccountID: c.cfg.AccountID,
		Service:   c.service,
		Supported: opts.Supported,
		Method:    opts.Method,
		Path:      opts.Path,
		Query:     query,
		Headers:   headers,
		Payload:   opts.Payload,
	})
	if err != nil {
		return nil, err
	}

	return c.pipeline.Do(ctx, descriptor)
}
