package blob

import "encoding/xml"

// metadataXML collects an arbitrary <Metadata> element's children into
// a map, since encoding/xml has no declarative way to unmarshal
// "every child element is a key" into a map[string]string.
type metadataXML map[string]string

// UnmarshalXML implements xml.Unmarshaler.
func (m *metadataXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	result := map[string]string{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			result[t.Name.Local] = value
		case xml.EndElement:
			*m = result
			return nil
		}
	}
}

type enumerationResultsXML struct {
	XMLName    xml.Name        `xml:"EnumerationResults"`
	Prefix     string          `xml:"Prefix"`
	Marker     string          `xml:"Marker"`
	MaxResults int             `xml:"MaxResults"`
	Delimiter  string          `xml:"Delimiter"`
	NextMarker string          `xml:"NextMarker"`
	Containers []containerXML  `xml:"Containers>Container"`
	Blobs      []blobEntryXML  `xml:"Blobs>Blob"`
}

type containerXML struct {
	Name     string      `xml:"Name"`
	Metadata metadataXML `xml:"Metadata"`
}

type blobEntryXML struct {
	Name       string             `xml:"Name"`
	Snapshot   string             `xml:"Snapshot"`
	Properties blobPropertiesXML  `xml:"Properties"`
	Metadata   metadataXML        `xml:"Metadata"`
}

type blobPropertiesXML struct {
	LastModified  string `xml:"Last-Modified"`
	Etag          string `xml:"Etag"`
	ContentLength int64  `xml:"Content-Length"`
	ContentType   string `xml:"Content-Type"`
	BlobType      string `xml:"BlobType"`
	LeaseStatus   string `xml:"LeaseStatus"`
	LeaseState    string `xml:"LeaseState"`
}

// ContainerItem is one entry of a container listing.
type ContainerItem struct {
	Name     string
	Metadata map[string]string
}

// ListContainersResult is the parsed response of a container
// enumeration call. Lists are always normalized to (possibly empty)
// slices, never nil.
type ListContainersResult struct {
	Prefix     string
	Marker     string
	MaxResults int
	NextMarker string
	Containers []ContainerItem
}

func parseListContainers(payload []byte) (*ListContainersResult, error) {
	var x enumerationResultsXML
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := &ListContainersResult{
		Prefix:     x.Prefix,
		Marker:     x.Marker,
		MaxResults: x.MaxResults,
		NextMarker: x.NextMarker,
		Containers: make([]ContainerItem, 0, len(x.Containers)),
	}
	for _, c := range x.Containers {
		result.Containers = append(result.Containers, ContainerItem{Name: c.Name, Metadata: map[string]string(c.Metadata)})
	}
	return result, nil
}

// BlobItem is one entry of a blob listing.
type BlobItem struct {
	Name          string
	Snapshot      string
	ContentLength int64
	ContentType   string
	Etag          string
	LastModified  string
	BlobType      string
	Metadata      map[string]string
}

// ListBlobsResult is the parsed response of a blob enumeration call.
// Delimiter has its own field and never overwrites NextMarker.
type ListBlobsResult struct {
	Prefix     string
	Marker     string
	MaxResults int
	Delimiter  string
	NextMarker string
	Blobs      []BlobItem
}

func parseListBlobs(payload []byte) (*ListBlobsResult, error) {
	var x enumerationResultsXML
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := &ListBlobsResult{
		Prefix:     x.Prefix,
		Marker:     x.Marker,
		MaxResults: x.MaxResults,
		Delimiter:  x.Delimiter,
		NextMarker: x.NextMarker,
		Blobs:      make([]BlobItem, 0, len(x.Blobs)),
	}
	for _, b := range x.Blobs {
		result.Blobs = append(result.Blobs, BlobItem{
			Name:          b.Name,
			Snapshot:      b.Snapshot,
			ContentLength: b.Properties.ContentLength,
			ContentType:   b.Properties.ContentType,
			Etag:          b.Properties.Etag,
			LastModified:  b.Properties.LastModified,
			BlobType:      b.Properties.BlobType,
			Metadata:      map[string]string(b.Metadata),
		})
	}
	return result, nil
}

type signedIdentifiersXML struct {
	XMLName     xml.Name            `xml:"SignedIdentifiers"`
	Identifiers []signedIdentifierXML `xml:"SignedIdentifier"`
}

type signedIdentifierXML struct {
	ID     string          `xml:"Id"`
	Access accessPolicyXML `xml:"AccessPolicy"`
}

type accessPolicyXML struct {
	Start      string `xml:"Start"`
	Expiry     string `xml:"Expiry"`
	Permission string `xml:"Permission"`
}

// AccessPolicy is one signed identifier on a container, with its
// permission string expanded to explicit, default-false fields.
type AccessPolicy struct {
	ID                                      string
	Start, Expiry                           string
	Read, Add, Create, Write, Delete, List  bool
}

func parseContainerACL(payload []byte) ([]AccessPolicy, error) {
	var x signedIdentifiersXML
	if len(payload) == 0 {
		return nil, nil
	}
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := make([]AccessPolicy, 0, len(x.Identifiers))
	for _, id := range x.Identifiers {
		p := AccessPolicy{ID: id.ID, Start: id.Access.Start, Expiry: id.Access.Expiry}
		for _, c := range id.Access.Permission {
			switch c {
			case 'r':
				p.Read = true
			case 'a':
				p.Add = true
			case 'c':
				p.Create = true
			case 'w':
				p.Write = true
			case 'd':
				p.Delete = true
			case 'l':
				p.List = true
			}
		}
		result = append(result, p)
	}
	return result, nil
}

type blockListXML struct {
	XMLName           xml.Name   `xml:"BlockList"`
	CommittedBlocks   []blockXML `xml:"CommittedBlocks>Block"`
	UncommittedBlocks []blockXML `xml:"UncommittedBlocks>Block"`
}

type blockXML struct {
	Name string `xml:"Name"`
	Size int64  `xml:"Size"`
}

// Block is one committed or uncommitted block of a block blob.
type Block struct {
	Name string
	Size int64
}

// BlockListResult separates committed from uncommitted blocks.
type BlockListResult struct {
	Committed   []Block
	Uncommitted []Block
}

func parseBlockList(payload []byte) (*BlockListResult, error) {
	var x blockListXML
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := &BlockListResult{
		Committed:   make([]Block, 0, len(x.CommittedBlocks)),
		Uncommitted: make([]Block, 0, len(x.UncommittedBlocks)),
	}
	for _, b := range x.CommittedBlocks {
		result.Committed = append(result.Committed, Block{Name: b.Name, Size: b.Size})
	}
	for _, b := range x.UncommittedBlocks {
		result.Uncommitted = append(result.Uncommitted, Block{Name: b.Name, Size: b.Size})
	}
	return result, nil
}

type retentionPolicyXML struct {
	Enabled bool `xml:"Enabled"`
	Days    int  `xml:"Days"`
}

type loggingXML struct {
	Version         string             `xml:"Version"`
	Delete          bool               `xml:"Delete"`
	Read            bool               `xml:"Read"`
	Write           bool               `xml:"Write"`
	RetentionPolicy retentionPolicyXML `xml:"RetentionPolicy"`
}

type metricsXML struct {
	Version         string             `xml:"Version"`
	Enabled         bool               `xml:"Enabled"`
	IncludeAPIs     bool               `xml:"IncludeAPIs"`
	RetentionPolicy retentionPolicyXML `xml:"RetentionPolicy"`
}

type corsRuleXML struct {
	AllowedOrigins  string `xml:"AllowedOrigins"`
	AllowedMethods  string `xml:"AllowedMethods"`
	AllowedHeaders  string `xml:"AllowedHeaders"`
	ExposedHeaders  string `xml:"ExposedHeaders"`
	MaxAgeInSeconds int    `xml:"MaxAgeInSeconds"`
}

type storageServicePropertiesXML struct {
	XMLName       xml.Name      `xml:"StorageServiceProperties"`
	Logging       *loggingXML   `xml:"Logging"`
	HourMetrics   *metricsXML   `xml:"HourMetrics"`
	MinuteMetrics *metricsXML   `xml:"MinuteMetrics"`
	Cors          []corsRuleXML `xml:"Cors>CorsRule"`
}

// RetentionPolicy mirrors the wire RetentionPolicy element.
type RetentionPolicy struct {
	Enabled bool
	Days    int
}

// LoggingProperties mirrors the wire Logging element.
type LoggingProperties struct {
	Version         string
	Delete          bool
	Read            bool
	Write           bool
	RetentionPolicy RetentionPolicy
}

// MetricsProperties mirrors the wire HourMetrics/MinuteMetrics element.
type MetricsProperties struct {
	Version         string
	Enabled         bool
	IncludeAPIs     bool
	RetentionPolicy RetentionPolicy
}

// CorsRule mirrors one wire CorsRule element.
type CorsRule struct {
	AllowedOrigins  string
	AllowedMethods  string
	AllowedHeaders  string
	ExposedHeaders  string
	MaxAgeInSeconds int
}

// ServiceProperties is the parsed response of a get-service-properties
// call.
type ServiceProperties struct {
	Logging       *LoggingProperties
	HourMetrics   *MetricsProperties
	MinuteMetrics *MetricsProperties
	Cors          []CorsRule
}

func parseServiceProperties(payload []byte) (*ServiceProperties, error) {
	var x storageServicePropertiesXML
	if err := xml.Unmarshal(payload, &x); err != nil {
		return nil, newMalformedError(err)
	}
	result := &ServiceProperties{}
	if x.Logging != nil {
		result.Logging = &LoggingProperties{
			Version: x.Logging.Version,
			Delete:  x.Logging.Delete,
			Read:    x.Logging.Read,
			Write:   x.Logging.Write,
			RetentionPolicy: RetentionPolicy{
				Enabled: x.Logging.RetentionPolicy.Enabled,
				Days:    x.Logging.RetentionPolicy.Days,
			},
		}
	}
	convertMetrics := func(m *metricsXML) *MetricsProperties {
		if m == nil {
			return nil
		}
		return &MetricsProperties{
			Version:     m.Version,
			Enabled:     m.Enabled,
			IncludeAPIs: m.IncludeAPIs,
			RetentionPolicy: RetentionPolicy{
				Enabled: m.RetentionPolicy.Enabled,
				Days:    m.RetentionPolicy.Days,
			},
		}
	}
	result.HourMetrics = convertMetrics(x.HourMetrics)
	result.MinuteMetrics = convertMetrics(x.MinuteMetrics)
	for _, c := range x.Cors {
		result.Cors = append(result.Cors, CorsRule{
			AllowedOrigins:  c.AllowedOrigins,
			AllowedMethods:  c.AllowedMethods,
			AllowedHeaders:  c.AllowedHeaders,
			ExposedHeaders:  c.ExposedHeaders,
			MaxAgeInSeconds: c.MaxAgeInSeconds,
		})
	}
	return result, nil
}
