package table

import (
	"context"
	"encoding/json"

	"github.com/azstore/azstore/azstore"
)

type tableEntryJSON struct {
	TableName string `json:"TableName"`
}

type listTablesResponseJSON struct {
	Value []tableEntryJSON `json:"value"`
}

// ListTables enumerates tables in the account.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	resp, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "GET",
		Path:      "/Tables",
		Headers:   commonHeaders(nil),
		Supported: azstore.TableSupportedParams,
	})
	if err != nil {
		return nil, err
	}
	var body listTablesResponseJSON
	if err := json.Unmarshal(resp.Payload, &body); err != nil {
		return nil, &azstore.Error{Kind: azstore.KindMalformed, Code: "ErrorWithoutCode", Message: "failed to parse table list: " + err.Error()}
	}
	names := make([]string, 0, len(body.Value))
	for _, t := range body.Value {
		names = append(names, t.TableName)
	}
	return names, nil
}

// CreateTable creates a table.
func (c *Client) CreateTable(ctx context.Context, name string) error {
	payload, _ := json.Marshal(tableEntryJSON{TableName: name})
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "POST",
		Path:      "/Tables",
		Headers:   commonHeaders(nil),
		Payload:   payload,
		Supported: azstore.TableSupportedParams,
	})
	return err
}

// DeleteTable deletes a table.
func (c *Client) DeleteTable(ctx context.Context, name string) error {
	_, err := c.core.Do(ctx, azstore.CallOptions{
		Method:    "DELETE",
		Path:      "/Tables('" + odataQuote(name) + "')",
		Headers:   commonHeaders(nil),
		Supported: azstore.TableSupportedParams,
	})
	return err
}
