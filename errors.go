// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/molecula/graphity/encoding"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/sparql"
)

const (
	ErrBadRequest           errors.Code = "BadRequest"
	ErrNotAcceptable        errors.Code = "NotAcceptable"
	ErrNotFound             errors.Code = "NotFound"
	ErrTransportFailure     errors.Code = "TransportFailure"
	ErrUnsupportedOperation errors.Code = "UnsupportedOperation"
	ErrDecodingFailure                  = encoding.ErrDecodingFailure
)

// RequestError is returned when a remote service answers with a redirect, a
// client error or a server error.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Reason     string
}

// NewRequestError returns a RequestError for resp. The reason phrase is taken
// from the status line when the server sent one.
func NewRequestError(resp *http.Response) *RequestError {
	e := &RequestError{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp)}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		if resp.Request.URL != nil {
			e.URL = resp.Request.URL.String()
		}
	}
	return e
}

func reasonPhrase(resp *http.Response) string {
	// Status is "404 Not Found"; the phrase may differ from the standard one.
	if i := strings.IndexByte(resp.Status, ' '); i >= 0 && strings.TrimSpace(resp.Status[i+1:]) != "" {
		return strings.TrimSpace(resp.Status[i+1:])
	}
	return http.StatusText(resp.StatusCode)
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Reason)
}

func (e *RequestError) IsRedirect() bool    { return e.StatusCode >= 300 && e.StatusCode < 400 }
func (e *RequestError) IsClientError() bool { return e.StatusCode >= 400 && e.StatusCode < 500 }
func (e *RequestError) IsServerError() bool { return e.StatusCode >= 500 }
func (e *RequestError) IsNotFound() bool    { return e.StatusCode == http.StatusNotFound }

// TransportError is returned when a remote service could not be reached or
// the exchange was interrupted. It is never reported as a missing graph.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotAcceptableError is returned when none of the offered variants satisfies
// the client's Accept header.
type NotAcceptableError struct {
	Offered []Variant
}

func (e *NotAcceptableError) Error() string {
	offered := make([]string, len(e.Offered))
	for i, v := range e.Offered {
		offered[i] = v.ContentType()
	}
	return "not acceptable; offered: " + strings.Join(offered, ", ")
}

// IsTransportError reports whether err was caused by a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusFromError returns the HTTP status err is reported with.
func StatusFromError(err error) int {
	var notAcceptable *NotAcceptableError
	var requestErr *RequestError
	var transportErr *TransportError

	switch {
	case errors.As(err, &notAcceptable):
		return http.StatusNotAcceptable
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, sparql.ErrEmptyQuery),
		errors.Is(err, sparql.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.As(err, &requestErr),
		errors.As(err, &transportErr),
		errors.Is(err, ErrDecodingFailure):
		// The query was fine but a service behind us failed.
		return http.StatusBadGateway
	case errors.Is(err, ErrUnsupportedOperation):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
