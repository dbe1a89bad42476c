// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package encoding reads and writes graphs and query results in the media
// types offered by the query endpoint and the graph store.
package encoding

import (
	"io"
	"mime"
	"strings"

	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
	"github.com/molecula/graphity/sparql"
)

// Media types.
const (
	MediaTypeResultsXML  = "application/sparql-results+xml"
	MediaTypeResultsJSON = "application/sparql-results+json"
	MediaTypeRDFXML      = "application/rdf+xml"
	MediaTypeTurtle      = "text/turtle"
	MediaTypeNTriples    = "application/n-triples"
	MediaTypeSPARQLQuery = "application/sparql-query"
	MediaTypeForm        = "application/x-www-form-urlencoded"
	MediaTypeJSON        = "application/json"
	MediaTypeTextPlain   = "text/plain"
)

const (
	// ErrDecodingFailure is returned for bodies which cannot be read, either
	// because the media type is not supported or the content is malformed.
	ErrDecodingFailure errors.Code = "DecodingFailure"

	// ErrUnsupportedMediaType is returned when asked to write a media type
	// which has no encoder.
	ErrUnsupportedMediaType errors.Code = "UnsupportedMediaType"
)

type (
	graphEncoder   func(w io.Writer, g *rdf.Graph) error
	graphDecoder   func(r io.Reader) (*rdf.Graph, error)
	resultsEncoder func(w io.Writer, rs *sparql.ResultSet) error
	resultsDecoder func(r io.Reader) (*sparql.ResultSet, error)
)

var graphEncoders = map[string]graphEncoder{
	MediaTypeNTriples: writeNTriples,
	MediaTypeTurtle:   writeTurtle,
	MediaTypeRDFXML:   writeRDFXML,
}

var graphDecoders = map[string]graphDecoder{
	MediaTypeNTriples:  readNTriples,
	MediaTypeTextPlain: readNTriples, // legacy N-Triples registration
	MediaTypeTurtle:    readTurtle,
	MediaTypeRDFXML:    readRDFXML,
}

var resultsEncoders = map[string]resultsEncoder{
	MediaTypeResultsJSON: writeResultsJSON,
	MediaTypeResultsXML:  writeResultsXML,
}

var resultsDecoders = map[string]resultsDecoder{
	MediaTypeResultsJSON: readResultsJSON,
	MediaTypeJSON:        readResultsJSON,
	MediaTypeResultsXML:  readResultsXML,
}

// MediaType returns the lowercased type/subtype of a Content-Type value with
// its parameters removed.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// CanDecodeGraph reports whether DecodeGraph supports contentType.
func CanDecodeGraph(contentType string) bool {
	_, ok := graphDecoders[MediaType(contentType)]
	return ok
}

// EncodeGraph writes g to w in the given media type.
func EncodeGraph(w io.Writer, contentType string, g *rdf.Graph) error {
	enc, ok := graphEncoders[MediaType(contentType)]
	if !ok {
		return errors.Newf(ErrUnsupportedMediaType, "no graph writer for %q", contentType)
	}
	return enc(w, g)
}

// DecodeGraph reads a graph of the given media type from r. The returned
// graph is mutable.
func DecodeGraph(r io.Reader, contentType string) (*rdf.Graph, error) {
	dec, ok := graphDecoders[MediaType(contentType)]
	if !ok {
		return nil, errors.Newf(ErrDecodingFailure, "unsupported media type %q", contentType)
	}
	return dec(r)
}

// EncodeResults writes rs to w in the given media type. The result set is
// consumed from its current position.
func EncodeResults(w io.Writer, contentType string, rs *sparql.ResultSet) error {
	enc, ok := resultsEncoders[MediaType(contentType)]
	if !ok {
		return errors.Newf(ErrUnsupportedMediaType, "no result writer for %q", contentType)
	}
	return enc(w, rs)
}

// DecodeResults reads a result set of the given media type from r.
func DecodeResults(r io.Reader, contentType string) (*sparql.ResultSet, error) {
	dec, ok := resultsDecoders[MediaType(contentType)]
	if !ok {
		return nil, errors.Newf(ErrDecodingFailure, "unsupported media type %q", contentType)
	}
	return dec(r)
}

func decodingError(err error, format string) error {
	return errors.Newf(ErrDecodingFailure, "reading %s: %v", format, err)
}
