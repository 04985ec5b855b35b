package blob

import (
	"context"
	"encoding/base64"
	"strconv"

	"github.com/azstore/azstore/azstore"
)

// MaxPageBlobSize is the largest size a page blob may declare.
// PutPageBlob rejects a size only when it exceeds this limit, not
// when it's below it.
const MaxPageBlobSize = 8 * 1024 * 1024 * 1024 * 1024 // 8 TiB

// ListBlobsOptions configures a blob enumeration call.
type ListBlobsOptions struct {
	Prefix     string
	Marker     string
	MaxResults int
	Delimiter  string
	// Include is comma-joined, e.g. "snapshots,metadata,uncommittedblobs,copy".
	Include []string
}

func joinInclude(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

// ListBlobs enumerates blobs in a container.
func (c *Client) ListBlobs(ctx context.Context, container string, opts ListBlobsOptions) (*ListBlobsResult, error) {
	q := newQuery()
	q.Set("restype", "container")
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
	if opts.Delimiter != "" {
		q.Set("delimiter", opts.Delimiter)
	}
	if len(opts.Include) > 0 {
		q.Set("include", joinInclude(opts.Include))
	}

	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      containerPath(container),
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseListBlobs(resp.Payload)
}

// PutBlobOptions configures a whole-buffer block blob upload. No
// streaming: scopes that out.
type PutBlobOptions struct {
	ContentType string
	Metadata    map[string]string
	LeaseID     string
}

// PutBlob uploads data as a single block blob.
func (c *Client) PutBlob(ctx context.Context, container, name string, data []byte, opts PutBlobOptions) error {
	headers := metadataHeaders(opts.Metadata)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["x-ms-blob-type"] = "BlockBlob"
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	if opts.LeaseID != "" {
		headers["x-ms-lease-id"] = opts.LeaseID
	}
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Payload:   data,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// PutPageBlob creates an empty page blob of the given size, which
// must be a multiple of 512 bytes and no larger than MaxPageBlobSize.
func (c *Client) PutPageBlob(ctx context.Context, container, name string, size int64, opts PutBlobOptions) error {
	if size > MaxPageBlobSize {
		return &azstore.Error{Kind: azstore.KindPermanent, Code: "ErrorWithoutCode", Message: "page blob size exceeds the service maximum"}
	}
	headers := metadataHeaders(opts.Metadata)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["x-ms-blob-type"] = "PageBlob"
	headers["x-ms-blob-content-length"] = strconv.FormatInt(size, 10)
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// GetBlob downloads a blob's full content and metadata.
func (c *Client) GetBlob(ctx context.Context, container, name string) ([]byte, map[string]string, error) {
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      blobPath(container, name),
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, nil, err
	}
	return resp.Payload, extractMetadata(resp), nil
}

// GetBlobMetadata retrieves a blob's metadata with a HEAD request.
func (c *Client) GetBlobMetadata(ctx context.Context, container, name string) (map[string]string, error) {
	q := newQuery()
	q.Set("comp", "metadata")
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "HEAD",
		Path:      blobPath(container, name),
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return extractMetadata(resp), nil
}

// SetBlobMetadata replaces a blob's metadata.
func (c *Client) SetBlobMetadata(ctx context.Context, container, name string, metadata map[string]string) error {
	q := newQuery()
	q.Set("comp", "metadata")
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Query:     q,
		Headers:   metadataHeaders(metadata),
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// DeleteBlob deletes a blob.
func (c *Client) DeleteBlob(ctx context.Context, container, name string) error {
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      blobPath(container, name),
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// PutBlock stages an uncommitted block for a block blob. blockID is
// raw bytes; it is base64-encoded for the wire, per the service
// contract.
func (c *Client) PutBlock(ctx context.Context, container, name string, blockID []byte, data []byte) error {
	q := newQuery()
	q.Set("comp", "block")
	q.Set("blockid", base64.StdEncoding.EncodeToString(blockID))
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Query:     q,
		Payload:   data,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// PutBlockList commits a block blob from previously staged blocks, in
// order. Each block ID is given as raw bytes, the same form PutBlock
// takes, and is base64-encoded for the wire.
func (c *Client) PutBlockList(ctx context.Context, container, name string, blockIDs [][]byte, opts PutBlobOptions) error {
	q := newQuery()
	q.Set("comp", "blocklist")
	headers := metadataHeaders(opts.Metadata)
	if headers == nil {
		headers = map[string]string{}
	}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Query:     q,
		Headers:   headers,
		Payload:   encodeBlockList(blockIDs),
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// GetBlockList retrieves a block blob's committed and/or uncommitted
// block list. listType is "committed", "uncommitted", or "all".
func (c *Client) GetBlockList(ctx context.Context, container, name, listType string) (*BlockListResult, error) {
	if listType == "" {
		listType = "all"
	}
	q := newQuery()
	q.Set("comp", "blocklist")
	q.Set("blocklisttype", listType)
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      blobPath(container, name),
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseBlockList(resp.Payload)
}

func encodeBlockList(blockIDs [][]byte) []byte {
	out := []byte(`<?xml version="1.0" encoding="utf-8"?><BlockList>`)
	for _, id := range blockIDs {
		out = append(out, []byte("<Latest>"+base64.StdEncoding.EncodeToString(id)+"</Latest>")...)
	}
	out = append(out, []byte(`</BlockList>`)...)
	return out
}

// AcquireBlobLease acquires a lease on a blob.
func (c *Client) AcquireBlobLease(ctx context.Context, container, name, proposedLeaseID string, durationSeconds int) (string, error) {
	q := newQuery()
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
		Path:      blobPath(container, name),
		Query:     q,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return "", err
	}
	return resp.Header("x-ms-lease-id"), nil
}

// BreakBlobLease breaks a blob lease using the caller's requested
// break period verbatim (see and setLeaseBreakPeriod).
func (c *Client) BreakBlobLease(ctx context.Context, container, name string, breakPeriodSeconds int) error {
	q := newQuery()
	q.Set("comp", "lease")
	headers := map[string]string{"x-ms-lease-action": "break"}
	setLeaseBreakPeriod(headers, breakPeriodSeconds)
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Query:     q,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// ReleaseBlobLease releases a held blob lease.
func (c *Client) ReleaseBlobLease(ctx context.Context, container, name, leaseID string) error {
	q := newQuery()
	q.Set("comp", "lease")
	headers := leaseHeaders(leaseID)
	if headers == nil {
		headers = map[string]string{}
	}
	headers["x-ms-lease-action"] = "release"
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      blobPath(container, name),
		Query:     q,
		Headers:   headers,
		Supported: azstore.BlobSupportedParams,
	})
	return err
}

// GetServiceProperties retrieves the Blob service's logging/metrics/
// CORS configuration.
func (c *Client) GetServiceProperties(ctx context.Context) (*ServiceProperties, error) {
	q := newQuery()
	q.Set("restype", "service")
	q.Set("comp", "properties")
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      "/",
		Query:     q,
		Supported: azstore.BlobSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseServiceProperties(resp.Payload)
}
