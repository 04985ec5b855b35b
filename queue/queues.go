package queue

import (
	"context"
	"strconv"

	"github.com/azstore/azstore/azstore"
)

// ListQueuesOptions configures a queue enumeration call.
type ListQueuesOptions struct {
	Prefix     string
	Marker     string
	MaxResults int
	Include    bool // include queue metadata
}

// ListQueues enumerates queues in the account.
func (c *Client) ListQueues(ctx context.Context, opts ListQueuesOptions) (*ListQueuesResult, error) {
	q := newQuery()
	q.Set("comp", "list")
	if opts.Prefix != "" {
		q.Set("prefix", opts.Prefix)
	}
	if opts.Marker != "" {
		q.Set("marker", opts.Marker)
	}
	if opts.MaxResults > 0 {
		q.Set("maxresults", strconv.Itoa(opts.MaxResults))
	}
	if opts.Include {
		q.Set("include", "metadata")
	}
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      "/",
		Query:     q,
		Supported: azstore.QueueSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return parseListQueues(resp.Payload)
}

// CreateQueue creates a queue. A delete immediately followed by a
// create of the same name may surface QueueBeingDeleted on retry;
// IsQueueBeingDeleted identifies it.
func (c *Client) CreateQueue(ctx context.Context, name string, metadata map[string]string) error {
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      queuePath(name),
		Headers:   metadataHeaders(metadata),
		Supported: azstore.QueueSupportedParams,
	})
	return err
}

// DeleteQueue deletes a queue.
func (c *Client) DeleteQueue(ctx context.Context, name string) error {
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      queuePath(name),
		Supported: azstore.QueueSupportedParams,
	})
	return err
}

// GetQueueMetadata retrieves a queue's metadata. The approximate
// message count the service sends alongside it is not returned.
func (c *Client) GetQueueMetadata(ctx context.Context, name string) (map[string]string, error) {
	q := newQuery()
	q.Set("comp", "metadata")
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      queuePath(name),
		Query:     q,
		Supported: azstore.QueueSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return extractMetadata(resp), nil
}

// SetQueueMetadata replaces a queue's metadata.
func (c *Client) SetQueueMetadata(ctx context.Context, name string, metadata map[string]string) error {
	q := newQuery()
	q.Set("comp", "metadata")
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "PUT",
		Path:      queuePath(name),
		Query:     q,
		Headers:   metadataHeaders(metadata),
		Supported: azstore.QueueSupportedParams,
	})
	return err
}
