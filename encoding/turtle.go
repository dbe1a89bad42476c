// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package encoding

import (
	"bytes"
	"io"

	knakk "github.com/knakk/rdf"
	"github.com/molecula/graphity/rdf"
)

// writeTurtle writes the N-Triples subset of Turtle.
func writeTurtle(w io.Writer, g *rdf.Graph) error {
	return writeNTriples(w, g)
}

func readTurtle(r io.Reader) (*rdf.Graph, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, decodingError(err, "turtle")
	}
	dec := knakk.NewTripleDecoder(bytes.NewReader(prefixTurtleLabels(doc)), knakk.Turtle)
	return decodeTriples(dec, "turtle")
}

// prefixTurtleLabels returns doc with docBlankPrefix inserted after every
// "_:" that starts a blank node label. IRIs, strings and comments are copied
// unchanged.
func prefixTurtleLabels(doc []byte) []byte {
	out := make([]byte, 0, len(doc)+64)
	for i := 0; i < len(doc); {
		var end int
		// Local names may hold escaped quotes and number signs.
		escaped := i > 0 && doc[i-1] == '\\'
		switch c := doc[i]; {
		case c == '#' && !escaped:
			end = skipTo(doc, i, '\n')
		case c == '<':
			end = skipTo(doc, i, '>')
		case (c == '"' || c == '\'') && !escaped:
			end = stringEnd(doc, i)
		case c == '_' && i+1 < len(doc) && doc[i+1] == ':' && (i == 0 || !isNameByte(doc[i-1])):
			out = append(out, "_:"+docBlankPrefix...)
			i += 2
			continue
		default:
			end = i + 1
		}
		out = append(out, doc[i:end]...)
		i = end
	}
	return out
}

// skipTo returns the offset just past the first c after doc[i], or the end
// of doc.
func skipTo(doc []byte, i int, c byte) int {
	if j := bytes.IndexByte(doc[i+1:], c); j >= 0 {
		return i + 1 + j + 1
	}
	return len(doc)
}

// stringEnd returns the offset just past the string literal starting at
// doc[i], which is a quote.
func stringEnd(doc []byte, i int) int {
	q := doc[i]
	long := bytes.HasPrefix(doc[i:], []byte{q, q, q})
	j := i + 1
	if long {
		j = i + 3
	}
	for j < len(doc) {
		switch {
		case doc[j] == '\\':
			j += 2
		case long && bytes.HasPrefix(doc[j:], []byte{q, q, q}):
			return j + 3
		case !long && doc[j] == q:
			return j + 1
		default:
			j++
		}
	}
	return len(doc)
}

func isNameByte(b byte) bool {
	return b >= 0x80 || b == '_' || b == '-' || b == '.' || b == ':' || b == '%' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
