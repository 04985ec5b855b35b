package blob

import (
	"context"
	"strconv"

	"github.com/azstore/azstore/azstore"
)

// ListContainersOptions configures a container enumeration call.
type ListContainersOptions struct {
	Prefix     string
	Marker     string
	MaxResults int
	Include    bool // include container metadata
}

// ListContainers enumerates containers in the account.
func (c *Client) ListContainers(ctx context.Context, opts ListContainersOptions) (*ListContainersResult, error) {
	q := newQuery()
	q.Set("comp", "list")
	if opts.Prefix != "" {
		q.Set("prefix", opts.Prefix)
	}
	if opts.Marker != "" {
		q.Set("marker", opts.Marker)
	}
	if opts.MaxResults > 0 {
		q.Set("maxResults", strconv.Itoa(opts.MaxResults))
	}
	if opts.Include {
		q.Set("include", "metadata")
	}

	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      "/",
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseListContainers(resp.Payload)
}

// CreateContainer creates a new container with the given metadata.
func (c *Client) CreateContainer(ctx context.Context, name string, metadata map[string]string) error {
	q := newQuery()
	q.Set("restype", "container")
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      containerPath(name),
		Query:     q,
		Headers:   metadataHeaders(metadata),
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// DeleteContainer deletes a container. A retry after the container
// already started deleting may surface QueueBeingDeleted-style
// Conflict errors; callers that expect this should treat Conflict as
// benign.
func (c *Client) DeleteContainer(ctx context.Context, name string) error {
	q := newQuery()
	q.Set("restype", "container")
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      containerPath(name),
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// GetContainerMetadata retrieves a container's metadata with a HEAD
// request. A missing container yields a NotFound Error with
// StatusCode 404 and Code "ErrorWithoutCode" (HEAD carries no body).
func (c *Client) GetContainerMetadata(ctx context.Context, name string) (map[string]string, error) {
	q := newQuery()
	q.Set("restype", "container")
	q.Set("comp", "metadata")
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "HEAD",
		Path:      containerPath(name),
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return extractMetadata(resp), nil
}

// GetContainerACL retrieves a container's stored access policies.
func (c *Client) GetContainerACL(ctx context.Context, name string) ([]AccessPolicy, error) {
	q := newQuery()
	q.Set("restype", "container")
	q.Set("comp", "acl")
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      containerPath(name),
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseContainerACL(resp.Payload)
}

// SetContainerACL replaces a container's stored access policies.
func (c *Client) SetContainerACL(ctx context.Context, name string, policies []AccessPolicy) error {
	q := newQuery()
	q.Set("restype", "container")
	q.Set("comp", "acl")
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      containerPath(name),
		Query:     q,
		Payload:   encodeSignedIdentifiers(policies),
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// AcquireContainerLease acquires a lease; durationSeconds of 0 (or
// negative) requests an infinite lease.
func (c *Client) AcquireContainerLease(ctx context.Context, name, proposedLeaseID string, durationSeconds int) (string, error) {
	q := newQuery()
	q.Set("restype", "container")
	q.Set("comp", "lease")
	headers := map[string]string{"x-ms-lease-action": "acquire"}
	if durationSeconds > 0 {
		headers["x-ms-lease-duration"] = strconv.Itoa(durationSeconds)
	} else {
		headers["x-ms-lease-duration"] = "-1"
	}
	if proposedLeaseID != "" {
		headers["x-ms-proposed-lease-id"] = proposedLeaseID
	}
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      containerPath(name),
		Query:     q,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return "", err
	}
	return resp.Header("x-ms-lease-id"), nil
}

// BreakContainerLease breaks a lease. breakPeriodSeconds is the
// caller's requested break period; requires this value —
// never a configured default — to be the one sent on the wire.
func (c *Client) BreakContainerLease(ctx context.Context, name string, breakPeriodSeconds int) error {
	q := newQuery()
	q.Set("restype", "container")
	q.Set("comp", "lease")
	headers := map[string]string{"x-ms-lease-action": "break"}
	setLeaseBreakPeriod(headers, breakPeriodSeconds)
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      containerPath(name),
		Query:     q,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// ReleaseContainerLease releases a held lease.
func (c *Client) ReleaseContainerLease(ctx context.Context, name, leaseID string) error {
	q := newQuery()
	q.Set("restype", "container")
	q.Set("comp", "lease")
	headers := leaseHeaders(leaseID)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["x-ms-lease-action"] = "release"
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      containerPath(name),
		Query:     q,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

func encodeSignedIdentifiers(policies []AccessPolicy) []byte {
	if len(policies) == 0 {
		return []byte(`<?xml version="1.0" encoding="utf-8"?><SignedIdentifiers></SignedIdentifiers>`)
	}
	var b []byte
	b = append(b, []byte(`<?xml version="1.0" encoding="utf-8"?><SignedIdentifiers>`)...)
	for _, p := range policies {
		perm := azstore.Permissions{Read: p.Read, Add: p.Add, Create: p.Create, Write: p.Write, Delete: p.Delete, List: p.List}.String()
		b = append(b, []byte("<SignedIdentifier><Id>"+xmlEscape(p.ID)+"</Id><AccessPolicy>"+
			"<Start>"+xmlEscape(p.Start)+"</Start>"+
			"<Expiry>"+xmlEscape(p.Expiry)+"</Expiry>"+
			"<Permission>"+xmlEscape(perm)+"</Permission>"+
			"</AccessPolicy></SignedIdentifier>")...)
	}
	b = append(b, []byte(`</SignedIdentifiers>`)...)
	return b
}

func xmlEscape(s string) string {
	var out []byte
	for _, r := range s {
		switch r {
		case '&':
			out = append(out, []byte("&amp;")...)
		case '<':
			out = append(out, []byte("&lt;")...)
		case '>':
			out = append(out, []byte("&gt;")...)
		default:
			out = append(out, []byte(string(r))...)
		}
	}
	return string(out)
}
