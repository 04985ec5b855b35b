package azstore

// Signed query parameter lists per service. Each list must already be
// sorted lexicographically: canonicalizedResourceFull walks it in
// order and does not sort it itself.

// BlobSupportedParams are the Blob service's signed query parameters.
var BlobSupportedParams = []string{
	"blockid", "blocklisttype", "comp", "delimiter", "include",
	"marker", "maxResults", "prefix", "restype", "timeout",
}

// QueueSupportedParams are the Queue service's signed query
// parameters.
var QueueSupportedParams = []string{
	"comp", "marker", "maxresults", "messagettl", "numofmessages",
	"popreceipt", "prefix", "timeout", "visibilitytimeout",
}

// TableSupportedParams are the Table service's signed query
// parameters (Table uses shared-key-lite, which only ever signs
// "comp").
var TableSupportedParams = []string{"comp"}
