package azstore

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeQuery(t *testing.T) {
	assert.Equal(t, "/container", serializeQuery("/container", url.Values{}))
	assert.Equal(t, "/container?comp=list", serializeQuery("/container", url.Values{"comp": {"list"}}))
}

func TestSerializeQueryWithSAS(t *testing.T) {
	assert.Equal(t, "/container?sv=x", serializeQueryWithSAS("/container", url.Values{}, "sv=x"))
	assert.Equal(t, "/container?comp=list&sv=x", serializeQueryWithSAS("/container", url.Values{"comp": {"list"}}, "sv=x"))
	assert.Equal(t, "/container", serializeQueryWithSAS("/container", url.Values{}, ""))
}

func TestSharedKeyCredentialAuthorizeBlob(t *testing.T) {
	cred, err := NewSharedKeyCredential("myaccount", "YWJjZGVmZ2g=")
	require.NoError(t, err)

	req, err := cred.authorize(context.Background(), signRequest{
		AccountID: "myaccount",
		Service:   ServiceBlob,
		Supported: []string{"comp"},
		Method:    "GET",
		Path:      "/container",
		Query:     url.Values{"comp": {"list"}},
		Headers:   map[string]string{"x-ms-date": "Mon, 01 Jan 2024 00:00:00 GMT"},
	})
	require.NoError(t, err)
	assert.Equal(t, "myaccount.blob.core.windows.net", req.Host)
	assert.Equal(t, "/container?comp=list", req.Path)
	assert.Contains(t, req.Headers["Authorization"], "SharedKey myaccount:")
}

func TestSharedKeyCredentialAuthorizeTableUsesLiteScheme(t *testing.T) {
	cred, err := NewSharedKeyCredential("myaccount", "YWJjZGVmZ2g=")
	require.NoError(t, err)

	req, err := cred.authorize(context.Background(), signRequest{
		AccountID: "myaccount",
		Service:   ServiceTable,
		Method:    "GET",
		Path:      "/Tables",
		Query:     url.Values{},
		Headers:   map[string]string{"x-ms-date": "Mon, 01 Jan 2024 00:00:00 GMT"},
	})
	require.NoError(t, err)
	assert.Contains(t, req.Headers["Authorization"], "SharedKeyLite myaccount:")
}

func TestStaticSASCredentialTrimsLeadingQuestionMark(t *testing.T) {
	cred := NewStaticSASCredential("?sv=2016-05-31&sig=abc")
	req, err := cred.authorize(context.Background(), signRequest{
		AccountID: "myaccount",
		Service:   ServiceBlob,
		Method:    "GET",
		Path:      "/container",
		Query:     url.Values{},
	})
	require.NoError(t, err)
	assert.Equal(t, "/container?sv=2016-05-31&sig=abc", req.Path)
}

func TestAnonymousCredentialSignsNothing(t *testing.T) {
	req, err := AnonymousCredential{}.authorize(context.Background(), signRequest{
		AccountID: "myaccount",
		Service:   ServiceBlob,
		Method:    "GET",
		Path:      "/container/blob.txt",
		Query:     url.Values{},
		Headers:   map[string]string{"Accept": "application/xml"},
	})
	require.NoError(t, err)
	_, hasAuth := req.Headers["Authorization"]
	assert.False(t, hasAuth)
}

func futureSAS(t *testing.T, expiry time.Time) string {
	t.Helper()
	q := url.Values{}
	q.Set("se", expiry.UTC().Format(sasDateLayout))
	q.Set("sig", "deadbeef")
	return q.Encode()
}

func TestRefreshingSASCredentialRefreshesOnce(t *testing.T) {
	var calls int32
	provider := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return futureSAS(t, time.Now().Add(time.Hour)), nil
	}
	cred := NewRefreshingSASCredential(provider, time.Minute, nil)

	for i := 0; i < 5; i++ {
		_, err := cred.authorize(context.Background(), signRequest{
			AccountID: "myaccount", Service: ServiceBlob, Method: "GET", Path: "/c", Query: url.Values{},
		})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

// TestRefreshingSASCredentialCollapsesConcurrentRefreshes exercises the
// singleflight path: many callers racing against an expired/initial SAS
// must observe exactly one provider invocation.
func TestRefreshingSASCredentialCollapsesConcurrentRefreshes(t *testing.T) {
	var calls int32
	unblock := make(chan struct{})
	provider := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-unblock
		return futureSAS(t, time.Now().Add(time.Hour)), nil
	}
	cred := NewRefreshingSASCredential(provider, time.Minute, nil)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := cred.authorize(context.Background(), signRequest{
				AccountID: "myaccount", Service: ServiceBlob, Method: "GET", Path: "/c", Query: url.Values{},
			})
			assert.NoError(t, err)
		}()
	}
	close(unblock)
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRefreshingSASCredentialReportsProviderError(t *testing.T) {
	var reported error
	provider := func(ctx context.Context) (string, error) {
		return "", assertErr
	}
	cred := NewRefreshingSASCredential(provider, time.Minute, func(e error) { reported = e })

	_, err := cred.authorize(context.Background(), signRequest{
		AccountID: "myaccount", Service: ServiceBlob, Method: "GET", Path: "/c", Query: url.Values{},
	})
	require.Error(t, err)
	require.Error(t, reported)
}

func TestRefreshingSASCredentialFlagsTooCloseToExpiry(t *testing.T) {
	var reported []error
	var mu sync.Mutex
	provider := func(ctx context.Context) (string, error) {
		return futureSAS(t, time.Now().Add(time.Second)), nil
	}
	cred := NewRefreshingSASCredential(provider, time.Minute, func(e error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, e)
	})

	_, err := cred.authorize(context.Background(), signRequest{
		AccountID: "myaccount", Service: ServiceBlob, Method: "GET", Path: "/c", Query: url.Values{},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reported)
}

func TestParseSASExpiry(t *testing.T) {
	expiry := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	sas := futureSAS(t, expiry)
	got, err := parseSASExpiry(sas)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(got))
}

func TestParseSASExpiryMissing(t *testing.T) {
	_, err := parseSASExpiry("sig=abc")
	require.Error(t, err)
}

var assertErr = newError(KindTransient, "ProviderDown", "provider unavailable")
