package azstore

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// xmlServiceError is the Blob/Queue/File error document: a top-level
// <Error> element with Code/Message and an optional auth detail.
type xmlServiceError struct {
	XMLName                   xml.Name `xml:"Error"`
	Code                      string   `xml:"Code"`
	Message                   string   `xml:"Message"`
	AuthenticationErrorDetail string   `xml:"AuthenticationErrorDetail"`
}

// odataServiceError is the Table error envelope.
type odataServiceError struct {
	ODataError struct {
		Code    string `json:"code"`
		Message struct {
			Value string `json:"value"`
		} `json:"message"`
	} `json:"odata.error"`
}

// authCodes are service error codes classified as Auth-kind and never
// retried.
var authCodes = map[string]struct{}{
	"AuthenticationFailed":     {},
	"InvalidAuthenticationInfo": {},
}

// conflictCodes are service error codes classified as Conflict-kind
// regardless of status code.
var conflictCodes = map[string]struct{}{
	"LeaseAlreadyPresent": {},
	"QueueBeingDeleted":   {},
}

// classifyResponse turns a non-2xx Response into a typed *Error. A
// 2xx response classifies to nil: the caller dispatches it to the
// operation's own success parser instead.
func classifyResponse(resp *Response, cfg *Config) *Error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	code, message, detail := parseErrorBody(resp)

	e := &Error{
		Code:       code,
		Message:    message,
		Detail:     detail,
		StatusCode: resp.StatusCode,
	}
	e.Kind = kindFor(resp.StatusCode, code, cfg)
	return e
}

func kindFor(statusCode int, code string, cfg *Config) Kind {
	if _, ok := authCodes[code]; ok {
		return KindAuth
	}
	if statusCode == 401 || statusCode == 403 {
		return KindAuth
	}
	if statusCode == 404 {
		return KindNotFound
	}
	if _, ok := conflictCodes[code]; ok {
		return KindConflict
	}
	if statusCode == 409 || statusCode == 412 {
		return KindConflict
	}
	if _, ok := cfg.TransientErrorCodes[code]; ok {
		return KindTransient
	}
	if statusCode >= 500 {
		return KindTransient
	}
	return KindPermanent
}

// parseErrorBody picks the XML or JSON error parser by Content-Type
// and falls back to a synthesized ErrorWithoutCode/InternalErrorWithoutCode
// when parsing fails or Code is absent.
func parseErrorBody(resp *Response) (code, message, detail string) {
	contentType := resp.Header("content-type")

	if len(resp.Payload) > 0 {
		if strings.Contains(contentType, "json") {
			var e odataServiceError
			if err := json.Unmarshal(resp.Payload, &e); err == nil && e.ODataError.Code != "" {
				return e.ODataError.Code, e.ODataError.Message.Value, ""
			}
		} else {
			var e xmlServiceError
			if err := xml.Unmarshal(resp.Payload, &e); err == nil && e.Code != "" {
				return e.Code, e.Message, e.AuthenticationErrorDetail
			}
		}
	}

	if resp.StatusCode >= 500 {
		code = "InternalErrorWithoutCode"
	} else {
		code = "ErrorWithoutCode"
	}
	message = fmt.Sprintf("No error message given, in payload '%s'", string(resp.Payload))
	return code, message, ""
}
