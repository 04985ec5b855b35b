package azstore

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RequestDescriptor is a fully-formed, ready-to-send request: host,
// method, path with its query string serialized in, headers with
// authorization already applied, and an optional payload. Produced by
// a Credential, consumed by the executor.
type RequestDescriptor struct {
	Host    string
	Method  string
	Path    string
	Headers map[string]string
	Payload []byte
}

// signRequest carries everything a Credential needs to authorize a
// call: given (method, path, query, headers), produce a fully-formed
// request descriptor.
type signRequest struct {
	AccountID string
	Service   Service
	Supported []string // sorted, service-specific signed query params
	Method    string
	Path      string // path only, no query string
	Query     url.Values
	Headers   map[string]string
	Payload   []byte
}

// Credential is one of {SharedKey, StaticSAS, RefreshingSAS,
// Anonymous}, selected once at client construction rather than
// switched on per call.
type Credential interface {
	authorize(ctx context.Context, r signRequest) (*RequestDescriptor, error)
}

func buildHost(accountID string, service Service) string {
	return accountID + "." + service.dnsName() + ".core.windows.net"
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// serializeQuery renders path+query exactly as it goes on the wire.
// This is independent of the canonicalized-resource form used for
// signing, which reads query values directly rather than from this
// encoded string.
func serializeQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

// serializeQueryWithSAS appends a raw SAS query string (no leading
// "?", already URL-encoded) after the caller's own query parameters.
// Used by StaticSASCredential and RefreshingSASCredential.
func serializeQueryWithSAS(path string, query url.Values, sas string) string {
	base := serializeQuery(path, query)
	if sas == "" {
		return base
	}
	sep := "?"
	if len(query) > 0 {
		sep = "&"
	}
	return base + sep + sas
}

// SharedKeyCredential signs every request synchronously with an
// account key. It never stores the raw base64 key string, only the
// decoded bytes.
type SharedKeyCredential struct {
	accountID string
	key       []byte
}

// NewSharedKeyCredential decodes accountKey (base64) once and returns
// a credential that can sign Blob/Queue/File ("full" form) or Table
// ("lite" form) requests, chosen per-request by Service.
func NewSharedKeyCredential(accountID, accountKey string) (*SharedKeyCredential, error) {
	key, err := decodeAccountKey(accountKey)
	if err != nil {
		return nil, err
	}
	return &SharedKeyCredential{accountID: accountID, key: key}, nil
}

func (c *SharedKeyCredential) authorize(_ context.Context, r signRequest) (*RequestDescriptor, error) {
	sig := signable{Method: r.Method, Path: r.Path, Query: r.Query, Headers: r.Headers}

	var canonical, scheme string
	if r.Service == ServiceTable {
		canonical = canonicalStringLite(sig, r.AccountID)
		scheme = "SharedKeyLite"
	} else {
		canonical = canonicalStringFull(sig, r.AccountID, r.Supported)
		scheme = "SharedKey"
	}

	headers := cloneHeaders(r.Headers)
	headers["Authorization"] = scheme + " " + r.AccountID + ":" + sign(c.key, canonical)

	return &RequestDescriptor{
		Host:    buildHost(r.AccountID, r.Service),
		Method:  r.Method,
		Path:    serializeQuery(r.Path, r.Query),
		Headers: headers,
		Payload: r.Payload,
	}, nil
}

// StaticSASCredential carries a fixed, already-signed SAS query
// string. No per-request signing.
type StaticSASCredential struct {
	sas string
}

// NewStaticSASCredential takes a SAS query string, with or without a
// leading "?".
func NewStaticSASCredential(sas string) *StaticSASCredential {
	return &StaticSASCredential{sas: strings.TrimPrefix(sas, "?")}
}

func (c *StaticSASCredential) authorize(_ context.Context, r signRequest) (*RequestDescriptor, error) {
	return &RequestDescriptor{
		Host:    buildHost(r.AccountID, r.Service),
		Method:  r.Method,
		Path:    serializeQueryWithSAS(r.Path, r.Query, c.sas),
		Headers: cloneHeaders(r.Headers),
		Payload: r.Payload,
	}, nil
}

// AnonymousCredential signs nothing; used for public containers/blobs.
type AnonymousCredential struct{}

func (AnonymousCredential) authorize(_ context.Context, r signRequest) (*RequestDescriptor, error) {
	return &RequestDescriptor{
		Host:    buildHost(r.AccountID, r.Service),
		Method:  r.Method,
		Path:    serializeQuery(r.Path, r.Query),
		Headers: cloneHeaders(r.Headers),
		Payload: r.Payload,
	}, nil
}

// SASProvider fetches a freshly minted SAS query string (no leading
// "?") from the application, typically by calling out to a service
// that holds the account key.
type SASProvider func(ctx context.Context) (string, error)

// RefreshingSASCredential refreshes its SAS string on demand, ahead of
// expiry, collapsing concurrent refreshes into a single provider
// call. nextRefreshAt == 0 is the sentinel "a refresh is in progress";
// singleflight.Group supplies the one-shot awaitable every concurrent
// caller shares.
type RefreshingSASCredential struct {
	provider      SASProvider
	minAuthExpiry time.Duration
	onRefreshErr  func(error)

	mu            sync.Mutex
	currentSAS    string
	nextRefreshAt int64 // unix milliseconds; 0 means "refreshing now"

	group singleflight.Group
}

// NewRefreshingSASCredential builds a credential that calls provider
// to mint a new SAS whenever the current one is within minAuthExpiry
// of its declared "se" expiry. onRefreshErr, if non-nil, receives
// every refresh failure and the "refreshed SAS already too close to
// expiry" condition; requests unrelated to the refresh are unaffected.
func NewRefreshingSASCredential(provider SASProvider, minAuthExpiry time.Duration, onRefreshErr func(error)) *RefreshingSASCredential {
	return &RefreshingSASCredential{provider: provider, minAuthExpiry: minAuthExpiry, onRefreshErr: onRefreshErr}
}

func (c *RefreshingSASCredential) authorize(ctx context.Context, r signRequest) (*RequestDescriptor, error) {
	sas, err := c.currentOrRefreshed(ctx)
	if err != nil {
		return nil, err
	}
	return &RequestDescriptor{
		Host:    buildHost(r.AccountID, r.Service),
		Method:  r.Method,
		Path:    serializeQueryWithSAS(r.Path, r.Query, sas),
		Headers: cloneHeaders(r.Headers),
		Payload: r.Payload,
	}, nil
}

func (c *RefreshingSASCredential) currentOrRefreshed(ctx context.Context) (string, error) {
	c.mu.Lock()
	now := time.Now().UnixMilli()
	stale := c.nextRefreshAt == 0 || now >= c.nextRefreshAt
	sas := c.currentSAS
	c.mu.Unlock()

	if !stale {
		return sas, nil
	}

	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *RefreshingSASCredential) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.nextRefreshAt = 0
	c.mu.Unlock()

	sas, err := c.provider(ctx)
	if err != nil {
		wrapped := newError(KindTransient, "SASRefreshFailed", err.Error())
		if c.onRefreshErr != nil {
			c.onRefreshErr(wrapped)
		}
		return "", wrapped
	}

	expiry, err := parseSASExpiry(sas)
	if err != nil {
		wrapped := newError(KindPermanent, "SASRefreshFailed", "refreshed SAS has no parseable se= expiry: "+err.Error())
		if c.onRefreshErr != nil {
			c.onRefreshErr(wrapped)
		}
		return "", wrapped
	}

	nextRefreshAt := expiry.Add(-c.minAuthExpiry).UnixMilli()
	c.mu.Lock()
	c.currentSAS = sas
	c.nextRefreshAt = nextRefreshAt
	c.mu.Unlock()

	if time.Now().UnixMilli() >= nextRefreshAt {
		tooClose := newError(KindTransient, "SASRefreshTooCloseToExpiry", "refreshed SAS expires too soon relative to the configured minimum auth expiry")
		if c.onRefreshErr != nil {
			c.onRefreshErr(tooClose)
		}
	}

	return sas, nil
}

// parseSASExpiry extracts and parses the "se" query parameter from a
// raw SAS query string, in Azure's ISO-8601-without-milliseconds date
// format.
func parseSASExpiry(sas string) (time.Time, error) {
	values, err := url.ParseQuery(sas)
	if err != nil {
		return time.Time{}, err
	}
	se := values.Get("se")
	if se == "" {
		return time.Time{}, newError(KindMalformed, "ErrorWithoutCode", "SAS has no se= parameter")
	}
	return time.Parse(sasDateLayout, se)
}
