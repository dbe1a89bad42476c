// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package encoding

import (
	"io"
	"strings"

	"github.com/google/uuid"
	knakk "github.com/knakk/rdf"
	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/rdf"
)

// docBlankPrefix is put in front of blank node labels written in a document
// before it is parsed. Labels the parser makes up for anonymous nodes never
// start with it.
const docBlankPrefix = "x"

// blankLabels maps parsed blank node labels back to graph labels. Labels
// from the document lose docBlankPrefix; made up labels move into a
// namespace unique to one decode.
type blankLabels struct {
	genid string
}

func newBlankLabels() blankLabels {
	return blankLabels{genid: "genid" + strings.ReplaceAll(uuid.NewString(), "-", "")}
}

func (l blankLabels) blank(label string) rdf.Term {
	if strings.HasPrefix(label, docBlankPrefix) {
		return rdf.Blank(label[len(docBlankPrefix):])
	}
	return rdf.Blank(l.genid + label)
}

func (l blankLabels) term(t knakk.Term) (rdf.Term, error) {
	switch t := t.(type) {
	case knakk.IRI:
		return rdf.IRI(t.String()), nil
	case knakk.Blank:
		return l.blank(t.String()), nil
	case knakk.Literal:
		if t.Lang() != "" {
			return rdf.LangLiteral(t.String(), t.Lang()), nil
		}
		return rdf.TypedLiteral(t.String(), t.DataType.String()), nil
	}
	return rdf.Term{}, errors.Errorf("unsupported term %T", t)
}

func (l blankLabels) triple(t knakk.Triple) (rdf.Triple, error) {
	s, err := l.term(t.Subj)
	if err != nil {
		return rdf.Triple{}, err
	}
	p, err := l.term(t.Pred)
	if err != nil {
		return rdf.Triple{}, err
	}
	o, err := l.term(t.Obj)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.NewTriple(s, p, o)
}

// decodeTriples drains dec into a new graph.
func decodeTriples(dec knakk.TripleDecoder, format string) (*rdf.Graph, error) {
	labels := newBlankLabels()
	g := rdf.NewGraph()
	for {
		kt, err := dec.Decode()
		if err == io.EOF {
			return g, nil
		} else if err != nil {
			return nil, decodingError(err, format)
		}
		t, err := labels.triple(kt)
		if err != nil {
			return nil, decodingError(err, format)
		}
		if err := g.Add(t); err != nil {
			return nil, decodingError(err, format)
		}
	}
}
