package azstore

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsStringFixedOrder(t *testing.T) {
	p := Permissions{List: true, Delete: true, Read: true, Write: true, Create: true, Add: true}
	assert.Equal(t, "racwdl", p.String())
}

func TestPermissionsStringPartial(t *testing.T) {
	assert.Equal(t, "rw", Permissions{Write: true, Read: true}.String())
	assert.Equal(t, "", Permissions{}.String())
}

func TestGenerateAccountSASRequiresExpiryOrPolicy(t *testing.T) {
	key, _ := decodeAccountKey("YWJjZGVmZ2g=")
	_, err := GenerateAccountSAS("myaccount", key, "blob", "/container", SASOptions{
		Permissions:  Permissions{Read: true},
		ResourceType: ResourceContainer,
	})
	require.Error(t, err)
}

func TestGenerateAccountSASQueryShape(t *testing.T) {
	key, err := decodeAccountKey("YWJjZGVmZ2g=")
	require.NoError(t, err)

	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	qs, err := GenerateAccountSAS("myaccount", key, "blob", "/container/blob.txt", SASOptions{
		Expiry:       expiry,
		Permissions:  Permissions{Read: true, Write: true},
		ResourceType: ResourceBlob,
	})
	require.NoError(t, err)

	q, err := url.ParseQuery(qs)
	require.NoError(t, err)
	assert.Equal(t, "rw", q.Get("sp"))
	assert.Equal(t, "b", q.Get("sr"))
	assert.Equal(t, "https", q.Get("spr"))
	assert.Equal(t, DefaultAPIVersion, q.Get("sv"))
	assert.Equal(t, "2026-01-01T00:00:00Z", q.Get("se"))
	assert.NotEmpty(t, q.Get("sig"))
	assert.Empty(t, q.Get("st"))
}

func TestGenerateAccountSASStoredPolicyOmitsPermissions(t *testing.T) {
	key, _ := decodeAccountKey("YWJjZGVmZ2g=")
	qs, err := GenerateAccountSAS("myaccount", key, "blob", "/container", SASOptions{
		StoredPolicyID: "policy1",
		ResourceType:   ResourceContainer,
	})
	require.NoError(t, err)
	q, err := url.ParseQuery(qs)
	require.NoError(t, err)
	assert.Equal(t, "policy1", q.Get("si"))
	assert.Empty(t, q.Get("sp"))
}

func TestGenerateAccountSASDeterministicSignature(t *testing.T) {
	key, _ := decodeAccountKey("YWJjZGVmZ2g=")
	expiry := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	opts := SASOptions{Expiry: expiry, Permissions: Permissions{Read: true}, ResourceType: ResourceBlob}

	qs1, err := GenerateAccountSAS("myaccount", key, "blob", "/c/b", opts)
	require.NoError(t, err)
	qs2, err := GenerateAccountSAS("myaccount", key, "blob", "/c/b", opts)
	require.NoError(t, err)

	q1, _ := url.ParseQuery(qs1)
	q2, _ := url.ParseQuery(qs2)
	assert.Equal(t, q1.Get("sig"), q2.Get("sig"))
}
