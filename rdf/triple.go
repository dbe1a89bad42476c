// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package rdf

import (
	"github.com/cayleygraph/quad"
	"github.com/molecula/graphity/errors"
)

// Triple is a single statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple returns a validated triple.
func NewTriple(s, p, o Term) (Triple, error) {
	t := Triple{Subject: s, Predicate: p, Object: o}
	return t, t.Validate()
}

// Validate checks the positional constraints on each term.
func (t Triple) Validate() error {
	switch {
	case !t.Subject.IsIRI() && !t.Subject.IsBlank():
		return errors.Newf(ErrInvalidTriple, "subject must be an IRI or blank node: %q", t.Subject.String())
	case !t.Predicate.IsIRI():
		return errors.Newf(ErrInvalidTriple, "predicate must be an IRI: %q", t.Predicate.String())
	case t.Object.IsZero():
		return errors.New(ErrInvalidTriple, "missing object")
	}
	return nil
}

// String returns the triple as an N-Triples statement without the line break.
func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Quad converts t into a cayley quad in the default graph.
func (t Triple) Quad() quad.Quad {
	return quad.Quad{
		Subject:   t.Subject.Quad(),
		Predicate: t.Predicate.Quad(),
		Object:    t.Object.Quad(),
	}
}

// TripleFromQuad converts a cayley quad into a triple, dropping its label.
func TripleFromQuad(q quad.Quad) (Triple, error) {
	s, err := TermFromQuad(q.Subject)
	if err != nil {
		return Triple{}, errors.Wrap(err, "subject")
	}
	p, err := TermFromQuad(q.Predicate)
	if err != nil {
		return Triple{}, errors.Wrap(err, "predicate")
	}
	o, err := TermFromQuad(q.Object)
	if err != nil {
		return Triple{}, errors.Wrap(err, "object")
	}
	return NewTriple(s, p, o)
}
