// Package blob implements the Blob service façade: container and
// blob operations built on top of azstore's authenticated request
// pipeline. Each method supplies azstore.CallOptions (method, path,
// query, headers, payload, signed params) and interprets the
// resulting azstore.Response.
package blob

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/azstore/azstore/azstore"
)

// Client issues Blob service requests for one storage account.
type Client struct {
	core *azstore.Client
}

// NewClient builds a blob Client from a shared azstore.Config.
func NewClient(cfg *azstore.Config) *Client {
	return &Client{core: azstore.NewClient(cfg, azstore.ServiceBlob)}
}

func metadataHeaders(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	h := make(map[string]string, len(metadata))
	for k, v := range metadata {
		h["x-ms-meta-"+k] = v
	}
	return h
}

// extractMetadata recovers x-ms-meta-<Name> headers with their
// original casing. The lowercased Headers map can't tell "Foo" from
// "foo", so this consults RawHeaders instead.
func extractMetadata(resp *azstore.Response) map[string]string {
	const prefix = "x-ms-meta-"
	var metadata map[string]string
	for _, h := range resp.RawHeaders {
		if len(h.Name) <= len(prefix) || !strings.EqualFold(h.Name[:len(prefix)], prefix) {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[h.Name[len(prefix):]] = h.Value
	}
	return metadata
}

func containerPath(name string) string { return "/" + name }
func blobPath(container, name string) string {
	return "/" + container + "/" + name
}

func leaseHeaders(leaseID string) map[string]string {
	if leaseID == "" {
		return nil
	}
	return map[string]string{"x-ms-lease-id": leaseID}
}

// setLeaseBreakPeriod sets x-ms-lease-break-period from the caller's
// value only, never from a configured default: the caller's value
// always wins, and a zero period omits the header entirely (break
// immediately).
func setLeaseBreakPeriod(headers map[string]string, breakPeriodSeconds int) {
	if breakPeriodSeconds > 0 {
		headers["x-ms-lease-break-period"] = strconv.Itoa(breakPeriodSeconds)
	}
}

func newQuery() url.Values { return url.Values{} }

func newMalformedError(err error) *azstore.Error {
	return &azstore.Error{
		Kind:    azstore.KindMalformed,
		Code:    "ErrorWithoutCode",
		Message: "failed to parse response body: " + err.Error(),
	}
}
