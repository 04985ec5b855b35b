// Package table implements the Table service façade: table and entity
// operations built on top of azstore's authenticated request
// pipeline. Table uses shared-key-lite signing and a JSON (OData)
// wire format.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/azstore/azstore/azstore"
)

// Client issues Table service requests for one storage account.
type Client struct {
	core *azstore.Client
}

// NewClient builds a table Client from a shared azstore.Config.
func NewClient(cfg *azstore.Config) *Client {
	return &Client{core: azstore.NewClient(cfg, azstore.ServiceTable)}
}

// Entity is a table row: arbitrary typed properties plus the two
// required key fields.
type Entity map[string]interface{}

func entityPath(tableName, partitionKey, rowKey string) string {
	return fmt.Sprintf("/%s(PartitionKey='%s',RowKey='%s')", tableName, odataQuote(partitionKey), odataQuote(rowKey))
}

// odataQuote escapes a single-quoted OData key literal by doubling
// embedded quotes, the format's own escaping convention.
func odataQuote(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		if r == '\'' {
			b.WriteByte('\'')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func commonHeaders(extra map[string]string) map[string]string {
	h := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json;odata=nometadata",
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func newQuery() url.Values { return url.Values{} }

func decodeEntity(payload []byte) (Entity, error) {
	var e Entity
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, &azstore.Error{Kind: azstore.KindMalformed, Code: "ErrorWithoutCode", Message: "failed to parse entity body: " + err.Error()}
	}
	delete(e, "odata.metadata")
	return e, nil
}
