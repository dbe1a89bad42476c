// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package graphity

import (
	"strings"

	"github.com/molecula/graphity/encoding"
	"github.com/munnerz/goautoneg"
)

// Variant is one representation a response can be served in.
type Variant struct {
	MediaType string
	Charset   string
}

// ContentType returns the Content-Type header value for v.
func (v Variant) ContentType() string {
	if v.Charset == "" {
		return v.MediaType
	}
	return v.MediaType + "; charset=" + v.Charset
}

// IsZero reports whether v is unset.
func (v Variant) IsZero() bool { return v.MediaType == "" }

// ResultSetVariants are offered for SELECT and ASK results, in order of
// preference.
var ResultSetVariants = []Variant{
	{MediaType: encoding.MediaTypeResultsXML, Charset: "UTF-8"},
	{MediaType: encoding.MediaTypeResultsJSON, Charset: "UTF-8"},
}

// GraphVariants are offered for CONSTRUCT and DESCRIBE results and for graph
// store reads, in order of preference.
var GraphVariants = []Variant{
	{MediaType: encoding.MediaTypeRDFXML, Charset: "UTF-8"},
	{MediaType: encoding.MediaTypeTurtle, Charset: "UTF-8"},
	{MediaType: encoding.MediaTypeNTriples, Charset: "UTF-8"},
}

// AcceptRange is one media range of an Accept header.
type AcceptRange = goautoneg.Accept

// ParseAccept parses an Accept header. A missing header accepts anything.
func ParseAccept(header string) []AcceptRange {
	if strings.TrimSpace(header) == "" {
		return []AcceptRange{{Type: "*", SubType: "*", Q: 1}}
	}
	return goautoneg.ParseAccept(header)
}

// Match specificity, lowest to highest.
const (
	matchNone = iota
	matchAny
	matchType
	matchSuffix
	matchExact
)

// specificity reports how closely r matches the media type typ/sub.
func specificity(r AcceptRange, typ, sub string) int {
	rt, rs := strings.ToLower(r.Type), strings.ToLower(r.SubType)
	switch {
	case rt == "*" && rs == "*":
		return matchAny
	case rt != typ:
		return matchNone
	case rs == "*":
		return matchType
	case rs == sub:
		return matchExact
	case strings.HasSuffix(sub, "+"+rs):
		// application/json accepts application/sparql-results+json.
		return matchSuffix
	}
	return matchNone
}

// quality returns the q-value the Accept ranges give the media type mt: the
// q of the most specific matching range.
func quality(accept []AcceptRange, mt string) float64 {
	typ, sub := mt, ""
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		typ, sub = mt[:i], mt[i+1:]
	}

	best, q := matchNone, 0.0
	for _, r := range accept {
		s := specificity(r, typ, sub)
		if s > best || (s == best && s != matchNone && r.Q > q) {
			best, q = s, r.Q
		}
	}
	return q
}

// SelectVariant picks the candidate with the highest non-zero quality. Ties
// go to the earlier candidate.
func SelectVariant(candidates []Variant, accept []AcceptRange) (Variant, bool) {
	var (
		best  Variant
		bestQ float64
	)
	for _, c := range candidates {
		if q := quality(accept, strings.ToLower(c.MediaType)); q > bestQ {
			best, bestQ = c, q
		}
	}
	return best, bestQ > 0
}

// Negotiate selects a variant for an Accept header value.
func Negotiate(candidates []Variant, acceptHeader string) (Variant, error) {
	v, ok := SelectVariant(candidates, ParseAccept(acceptHeader))
	if !ok {
		return Variant{}, &NotAcceptableError{Offered: candidates}
	}
	return v, nil
}
