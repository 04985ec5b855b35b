package table

import (
	"context"
	"encoding/json"

	"github.com/azstore/azstore/azstore"
)

// InsertEntity inserts a new entity. entity must carry PartitionKey
// and RowKey properties.
func (c *Client) InsertEntity(ctx context.Context, tableName string, entity Entity) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	_, err = c.core.Do(ctx, azstore.CallOptions{
		Method:    "POST",
		Path:      "/" + tableName,
		Headers:   commonHeaders(nil),
		Payload:   payload,
		Supported: azstore.TableSupportedParams,
	})
	return err
}

// GetEntity retrieves a single entity by key.
func (c *Client) GetEntity(ctx context.Context, tableName, partitionKey, rowKey string) (Entity, error) {
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      entityPath(tableName, partitionKey, rowKey),
		Headers:   commonHeaders(nil),
		Supported: azstore.TableSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	return decodeEntity(resp.Payload)
}

// UpdateEntity replaces an entity's properties entirely (PUT). etag,
// if non-empty, is sent as If-Match for optimistic concurrency; "*"
// forces an unconditional update.
func (c *Client) UpdateEntity(ctx context.Context, tableName, partitionKey, rowKey string, entity Entity, etag string) error {
	return c.putOrMerge(ctx, "PUT", tableName, partitionKey, rowKey, entity, etag)
}

// MergeEntity merges properties into an existing entity (MERGE via
// the X-HTTP-Method override, since Go's net/http and most proxies
// only forward the common verbs cleanly).
func (c *Client) MergeEntity(ctx context.Context, tableName, partitionKey, rowKey string, entity Entity, etag string) error {
	return c.putOrMerge(ctx, "MERGE", tableName, partitionKey, rowKey, entity, etag)
}

func (c *Client) putOrMerge(ctx context.Context, verb, tableName, partitionKey, rowKey string, entity Entity, etag string) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	headers := commonHeaders(nil)
	if etag != "" {
		headers["If-Match"] = etag
	}
	method := verb
	if verb == "MERGE" {
		method = "POST"
		headers["X-HTTP-Method"] = "MERGE"
	}
	_, err = c.core.Do(ctx, azstore.CallOptions{
		Method:    method,
		Path:      entityPath(tableName, partitionKey, rowKey),
		Headers:   headers,
		Payload:   payload,
		Supported: azstore.TableSupportedParams,
	})
	return err
}

// DeleteEntity deletes an entity. etag of "*" deletes unconditionally.
func (c *Client) DeleteEntity(ctx context.Context, tableName, partitionKey, rowKey, etag string) error {
	headers := commonHeaders(nil)
	if etag == "" {
		etag = "*"
	}
	headers["If-Match"] = etag
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      entityPath(tableName, partitionKey, rowKey),
		Headers:   headers,
		Supported: azstore.TableSupportedParams,
	})
	return err
}

type queryEntitiesResponseJSON struct {
	Value []Entity `json:"value"`
}

// QueryEntities runs an OData $filter query against a table.
func (c *Client) QueryEntities(ctx context.Context, tableName, filter string) ([]Entity, error) {
	q := newQuery()
	if filter != "" {
		q.Set("$filter", filter)
	}
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      "/" + tableName + "()",
		Query:     q,
		Headers:   commonHeaders(nil),
		Supported: azstore.TableSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	var body queryEntitiesResponseJSON
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		return nil, &azstore.Error{Kind: azstore.KindMalformed, Code: "ErrorWithoutCode", Message: "failed to parse entity query result: " + err.Error()}
	}
	return body.Value, nil
}
