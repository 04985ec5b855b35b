package azstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// sign computes HMAC-SHA256(key, message), base64-encoded. key is
// already base64-decoded account key bytes.
func sign(key []byte, message string) string {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// decodeAccountKey base64-decodes a raw account key string once at
// credential construction time, so a SharedKey credential never carries
// the raw base64 string past construction.
func decodeAccountKey(raw string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, newError(KindPermanent, "ErrorWithoutCode", "account key is not valid base64: "+err.Error())
	}
	return key, nil
}
