package azstore

import (
	"net/url"
	"strings"
	"time"
)

// sasDateLayout is Azure's ISO-8601-without-milliseconds date format.
const sasDateLayout = "2006-01-02T15:04:05Z"

// Permissions is the subset of {read, add, create, write, delete,
// list} granted by a SAS. Generated permission strings always emit
// these in the fixed order r,a,c,w,d,l regardless of which fields a
// caller set first.
type Permissions struct {
	Read, Add, Create, Write, Delete, List bool
}

// String renders the permission characters in Azure's required order.
func (p Permissions) String() string {
	var b strings.Builder
	if p.Read {
		b.WriteByte('r')
	}
	if p.Add {
		b.WriteByte('a')
	}
	if p.Create {
		b.WriteByte('c')
	}
	if p.Write {
		b.WriteByte('w')
	}
	if p.Delete {
		b.WriteByte('d')
	}
	if p.List {
		b.WriteByte('l')
	}
	return b.String()
}

// ResourceType is the SAS "sr" value: "b" (blob), "c" (container),
// "q" (queue), or "t" (table).
type ResourceType string

// Resource type values accepted by SAS generation.
const (
	ResourceBlob      ResourceType = "b"
	ResourceContainer ResourceType = "c"
	ResourceQueue     ResourceType = "q"
	ResourceTable     ResourceType = "t"
)

// SASOptions describes a single service SAS to mint.
type SASOptions struct {
	Version      string
	Start        *time.Time
	Expiry       time.Time
	Permissions  Permissions
	ResourceType ResourceType

	StoredPolicyID string // "si"; when set, Permissions/Start/Expiry may be empty
	SignedIP       string // "sip"
	Protocol       string // "spr"; defaults to "https"

	ResponseCacheControl       string // "rscc"
	ResponseContentDisposition string // "rscd"
	ResponseContentEncoding    string // "rsce"
	ResponseContentLanguage    string // "rscl"
	ResponseContentType        string // "rsct"
}

// GenerateAccountSAS mints a service SAS for a Blob/Queue resource
// rooted at servicePrefix ("blob" or "queue") and path (e.g.
// "/container" or "/container/blob"). The returned string is a
// URL-encoded query string suitable for appending to a request, or
// for handing to NewStaticSASCredential or a SASProvider.
func GenerateAccountSAS(accountID string, key []byte, servicePrefix, path string, opts SASOptions) (string, error) {
	if opts.StoredPolicyID == "" && opts.Expiry.IsZero() {
		return "", newError(KindPermanent, "ErrorWithoutCode", "either an expiry or a stored policy id is required")
	}
	version := opts.Version
	if version == "" {
		version = DefaultAPIVersion
	}
	protocol := opts.Protocol
	if protocol == "" {
		protocol = "https"
	}

	signedStart := ""
	if opts.Start != nil {
		signedStart = opts.Start.UTC().Format(sasDateLayout)
	}
	signedExpiry := ""
	if !opts.Expiry.IsZero() {
		signedExpiry = opts.Expiry.UTC().Format(sasDateLayout)
	}

	canonicalizedResource := "/" + servicePrefix + "/" + strings.ToLower(accountID) + path

	stringToSign := strings.Join([]string{
		opts.Permissions.String(),
		signedStart,
		signedExpiry,
		canonicalizedResource,
		opts.StoredPolicyID,
		opts.SignedIP,
		protocol,
		version,
		opts.ResponseCacheControl,
		opts.ResponseContentDisposition,
		opts.ResponseContentEncoding,
		opts.ResponseContentLanguage,
		opts.ResponseContentType,
	}, "\n")

	sig := sign(key, stringToSign)

	q := url.Values{}
	q.Set("sv", version)
	if signedStart != "" {
		q.Set("st", signedStart)
	}
	if signedExpiry != "" {
		q.Set("se", signedExpiry)
	}
	q.Set("sr", string(opts.ResourceType))
	if perm := opts.Permissions.String(); perm != "" {
		q.Set("sp", perm)
	}
	if opts.StoredPolicyID != "" {
		q.Set("si", opts.StoredPolicyID)
	}
	if opts.SignedIP != "" {
		q.Set("sip", opts.SignedIP)
	}
	q.Set("spr", protocol)
	setIfNonEmpty(q, "rscc", opts.ResponseCacheControl)
	setIfNonEmpty(q, "rscd", opts.ResponseContentDisposition)
	setIfNonEmpty(q, "rsce", opts.ResponseContentEncoding)
	setIfNonEmpty(q, "rscl", opts.ResponseContentLanguage)
	setIfNonEmpty(q, "rsct", opts.ResponseContentType)
	q.Set("sig", sig)

	return q.Encode(), nil
}

func setIfNonEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
