// Package queue implements the Queue service façade: queue and
// message operations built on top of azstore's authenticated request
// pipeline.
package queue

import (
	"net/url"
	"strings"

	"github.com/azstore/azstore/azstore"
)

// Client issues Queue service requests for one storage account.
type Client struct {
	core *azstore.Client
}

// NewClient builds a queue Client from a shared azstore.Config.
func NewClient(cfg *azstore.Config) *Client {
	return &Client{core: azstore.NewClient(cfg, azstore.ServiceQueue)}
}

func queuePath(name string) string { return "/" + name }

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

func newQuery() url.Values { return url.Values{} }

func newMalformedError(err error) *azstore.Error {
	return &azstore.Error{
		Kind:    azstore.KindMalformed,
		Code:    "ErrorWithoutCode",
		Message: "failed to parse response body: " + err.Error(),
	}
}

// QueueBeingDeletedCode is the code the Queue service returns while a
// prior delete of the same name is still settling. A façade may
// re-classify a code the core left generically Conflict/Transient;
// callers that created then immediately deleted a queue should treat
// this code as benign if seen on a subsequent create.
const QueueBeingDeletedCode = "QueueBeingDeleted"

// IsQueueBeingDeleted reports whether err is the QueueBeingDeleted
// condition.
func IsQueueBeingDeleted(err error) bool {
	azErr, ok := err.(*azstore.Error)
	return ok && azErr.Code == QueueBeingDeletedCode
}
